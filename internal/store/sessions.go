package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vmxio.com/itpec-quiz/internal/catalog"
	"vmxio.com/itpec-quiz/internal/quiz"
)

// SessionRepository stores quiz sessions in quiz_sessions and implements
// quiz.SessionStore.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func toRecord(s *quiz.Session) (*SessionRecord, error) {
	rec := &SessionRecord{
		ID:          s.ID,
		Code:        s.Code,
		UserID:      s.UserID,
		VisitorUUID: s.VisitorID,
		Track:       s.Track,
		Paper:       s.Paper,
		Sitting:     s.Sitting,
		Requested:   s.Requested,
		Finished:    s.Finished,
		TimeSpent:   s.TimeSpent,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	var err error
	if rec.Papers, err = marshalJSON(nonNilStrings(s.Papers)); err != nil {
		return nil, fmt.Errorf("encode papers: %w", err)
	}
	questions := s.Questions
	if questions == nil {
		questions = []catalog.Question{}
	}
	if rec.Questions, err = marshalJSON(questions); err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	answers := s.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	if rec.Answers, err = marshalJSON(answers); err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	if s.Summary != nil {
		if rec.Summary, err = marshalJSON(s.Summary); err != nil {
			return nil, fmt.Errorf("encode summary: %w", err)
		}
	}
	return rec, nil
}

// toSession decodes a row. Malformed JSON columns decode to empty values so
// a damaged row can still be shown.
func toSession(rec *SessionRecord) *quiz.Session {
	s := &quiz.Session{
		ID:        rec.ID,
		Code:      rec.Code,
		UserID:    rec.UserID,
		VisitorID: rec.VisitorUUID,
		Track:     rec.Track,
		Paper:     rec.Paper,
		Sitting:   rec.Sitting,
		Requested: rec.Requested,
		Finished:  rec.Finished,
		TimeSpent: rec.TimeSpent,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if len(rec.Papers) > 0 {
		_ = json.Unmarshal(rec.Papers, &s.Papers)
	}
	if len(rec.Questions) > 0 {
		_ = json.Unmarshal(rec.Questions, &s.Questions)
	}
	if len(rec.Answers) > 0 {
		_ = json.Unmarshal(rec.Answers, &s.Answers)
	}
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	if len(rec.Summary) > 0 {
		var sum quiz.Summary
		if err := json.Unmarshal(rec.Summary, &sum); err == nil && string(rec.Summary) != "null" {
			s.Summary = &sum
		}
	}
	return s
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (r *SessionRepository) CreateSession(ctx context.Context, s *quiz.Session) error {
	rec, err := toRecord(s)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.ID = rec.ID
	s.CreatedAt = rec.CreatedAt
	s.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *SessionRepository) first(ctx context.Context, query string, args ...any) (*quiz.Session, error) {
	var rec SessionRecord
	err := r.db.WithContext(ctx).Where(query, args...).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, quiz.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return toSession(&rec), nil
}

func (r *SessionRepository) SessionByCode(ctx context.Context, code string) (*quiz.Session, error) {
	return r.first(ctx, "code = ?", code)
}

func (r *SessionRepository) SessionByID(ctx context.Context, id uint) (*quiz.Session, error) {
	return r.first(ctx, "id = ?", id)
}

// SessionForUser returns the session with code only if userID owns it.
func (r *SessionRepository) SessionForUser(ctx context.Context, code string, userID uint) (*quiz.Session, error) {
	return r.first(ctx, "code = ? AND user_id = ?", code, userID)
}

// UpdateProgress writes answers, summary, completion and time spent in a
// single statement. Other columns are never touched.
func (r *SessionRepository) UpdateProgress(ctx context.Context, id uint, p quiz.Progress) error {
	answers, err := marshalJSON(p.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	updates := map[string]any{
		"answers":    answers,
		"finished":   p.Finished,
		"time_spent": p.TimeSpent,
		"updated_at": p.UpdatedAt,
		"summary":    nil,
	}
	if p.Summary != nil {
		summary, err := marshalJSON(p.Summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		updates["summary"] = summary
	}
	res := r.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return quiz.ErrSessionNotFound
	}
	return nil
}

// Terminate marks a session finished without scoring it.
func (r *SessionRepository) Terminate(ctx context.Context, id uint) (*quiz.Session, error) {
	res := r.db.WithContext(ctx).Model(&SessionRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"finished": true, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, fmt.Errorf("terminate session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, quiz.ErrSessionNotFound
	}
	return r.SessionByID(ctx, id)
}

type SessionFilter struct {
	Search string
	// Status is "all", "completed" or "in-progress".
	Status string
	UserID *uint
}

func (r *SessionRepository) filtered(ctx context.Context, f SessionFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&SessionRecord{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	switch strings.ToLower(f.Status) {
	case "completed", "finished":
		q = q.Where("finished = ?", true)
	case "in-progress", "in_progress", "active":
		q = q.Where("finished = ?", false)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		clause, args := searchClause(s, "code", "visitor_uuid", "track", "paper")
		q = q.Where(clause, args...)
	}
	return q
}

// List returns one page of sessions, newest first, and the filtered total.
func (r *SessionRepository) List(ctx context.Context, f SessionFilter, p Params) ([]*quiz.Session, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	var recs []SessionRecord
	if err := r.filtered(ctx, f).
		Order("created_at DESC, id DESC").
		Limit(p.Limit()).Offset(p.Offset()).
		Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]*quiz.Session, 0, len(recs))
	for i := range recs {
		out = append(out, toSession(&recs[i]))
	}
	return out, total, nil
}

// ForUser returns every session of a user, newest first.
func (r *SessionRepository) ForUser(ctx context.Context, userID uint) ([]*quiz.Session, error) {
	var recs []SessionRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	out := make([]*quiz.Session, 0, len(recs))
	for i := range recs {
		out = append(out, toSession(&recs[i]))
	}
	return out, nil
}

type SessionCounts struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Today     int64 `json:"today"`
}

func (r *SessionRepository) Counts(ctx context.Context, now time.Time) (SessionCounts, error) {
	var c SessionCounts
	db := r.db.WithContext(ctx)
	if err := db.Model(&SessionRecord{}).Count(&c.Total).Error; err != nil {
		return c, fmt.Errorf("count sessions: %w", err)
	}
	if err := db.Model(&SessionRecord{}).Where("finished = ?", true).Count(&c.Completed).Error; err != nil {
		return c, fmt.Errorf("count completed sessions: %w", err)
	}
	c.Active = c.Total - c.Completed
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&SessionRecord{}).Where("created_at >= ?", midnight).Count(&c.Today).Error; err != nil {
		return c, fmt.Errorf("count sessions today: %w", err)
	}
	return c, nil
}
