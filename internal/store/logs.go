package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"vmxio.com/itpec-quiz/internal/events"
)

const exportLimit = 10000

// LogRepository is the append-only activity log. It is also the emitter's
// primary sink.
type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Name() string { return "logs" }

// Deliver inserts one event as a log row.
func (r *LogRepository) Deliver(ctx context.Context, e events.Event) error {
	e = e.Normalize()
	entry := LogEntry{
		OccurredAt:  e.OccurredAt,
		Type:        string(e.Type),
		Action:      e.Action,
		ActorType:   e.ActorType,
		ActorID:     e.ActorID,
		UserID:      e.UserID,
		VisitorUUID: e.VisitorID,
		Page:        e.Page,
		Message:     e.Message,
	}
	if len(e.Details) > 0 {
		b, err := marshalJSON(e.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		entry.Details = b
	}
	if len(e.Metadata) > 0 {
		b, err := marshalJSON(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		entry.Metadata = b
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

type LogFilter struct {
	Type   string
	Search string
}

func (r *LogRepository) filtered(ctx context.Context, f LogFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&LogEntry{})
	if t := strings.ToLower(strings.TrimSpace(f.Type)); t != "" && t != "all" {
		q = q.Where("type = ?", t)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		clause, args := searchClause(s, "message", "action", "page")
		q = q.Where(clause, args...)
	}
	return q
}

// List returns one page of entries, newest first.
func (r *LogRepository) List(ctx context.Context, f LogFilter, p Params) ([]LogEntry, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count logs: %w", err)
	}
	var out []LogEntry
	if err := r.filtered(ctx, f).
		Order("occurred_at DESC, id DESC").
		Limit(p.Limit()).Offset(p.Offset()).
		Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list logs: %w", err)
	}
	return out, total, nil
}

// Counts returns the number of entries per type plus "total".
func (r *LogRepository) Counts(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Type string
		N    int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&LogEntry{}).
		Select("type, COUNT(*) AS n").
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}
	out := map[string]int64{
		"total":                    0,
		string(events.TypeSuccess): 0,
		string(events.TypeError):   0,
		string(events.TypeInfo):    0,
		string(events.TypeWarning): 0,
	}
	for _, rc := range rows {
		out[rc.Type] = rc.N
		out["total"] += rc.N
	}
	return out, nil
}

// Export returns the matching entries, newest first, capped at exportLimit.
func (r *LogRepository) Export(ctx context.Context, f LogFilter) ([]LogEntry, error) {
	var out []LogEntry
	if err := r.filtered(ctx, f).
		Order("occurred_at DESC, id DESC").
		Limit(exportLimit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("export logs: %w", err)
	}
	return out, nil
}

// Clear deletes every entry and returns how many were removed.
func (r *LogRepository) Clear(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&LogEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
