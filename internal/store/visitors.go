package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type VisitorRepository struct {
	db *gorm.DB
}

func NewVisitorRepository(db *gorm.DB) *VisitorRepository {
	return &VisitorRepository{db: db}
}

// Touch records a sighting of visitor id, creating the row on first sight.
func (r *VisitorRepository) Touch(ctx context.Context, id, deviceType string) (*Visitor, error) {
	now := time.Now()
	var v Visitor
	err := r.db.WithContext(ctx).First(&v, "uuid = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		v = Visitor{UUID: id, Role: RoleVisitor, DeviceType: deviceType, FirstSeen: now, LastSeen: now}
		if err := r.db.WithContext(ctx).Create(&v).Error; err != nil {
			return nil, fmt.Errorf("insert visitor: %w", err)
		}
		return &v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select visitor: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&v).Update("last_seen", now).Error; err != nil {
		return nil, fmt.Errorf("touch visitor: %w", err)
	}
	return &v, nil
}

// AttachUser links a visitor row to a signed-in account.
func (r *VisitorRepository) AttachUser(ctx context.Context, id string, userID uint, role, deviceType string) error {
	res := r.db.WithContext(ctx).Model(&Visitor{}).
		Where("uuid = ?", id).
		Updates(map[string]any{
			"user_id":     userID,
			"role":        role,
			"device_type": deviceType,
			"last_seen":   time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("attach visitor: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VisitorRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Visitor{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count visitors: %w", err)
	}
	return n, nil
}
