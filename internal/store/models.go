package store

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleAdmin   = "admin"
	RoleMember  = "member"
	RoleVisitor = "visitor"
)

// SessionRecord is a row of quiz_sessions. Questions is the snapshot taken
// at creation and is never updated.
type SessionRecord struct {
	ID          uint           `gorm:"primaryKey"`
	Code        string         `gorm:"uniqueIndex;size:32;not null"`
	UserID      *uint          `gorm:"index"`
	VisitorUUID string         `gorm:"index;size:36"`
	Track       string         `gorm:"size:16;not null;index"`
	Paper       string         `gorm:"size:64"`
	Sitting     string         `gorm:"size:16"`
	Requested   int            `gorm:"not null;default:0"`
	Papers      datatypes.JSON
	Questions   datatypes.JSON `gorm:"not null"`
	Answers     datatypes.JSON
	Finished    bool           `gorm:"not null;default:false;index"`
	TimeSpent   int            `gorm:"not null;default:0"`
	Summary     datatypes.JSON
	CreatedAt   time.Time      `gorm:"index"`
	UpdatedAt   time.Time
}

func (SessionRecord) TableName() string { return "quiz_sessions" }

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         string    `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	FullName     string    `gorm:"size:128" json:"fullName,omitempty"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:member;index" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LogEntry is a row of the append-only logs table.
type LogEntry struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OccurredAt  time.Time      `gorm:"index;not null" json:"occurred_at"`
	Type        string         `gorm:"size:16;index;not null" json:"type"`
	Action      string         `gorm:"size:64;not null;default:unknown" json:"action"`
	ActorType   string         `gorm:"size:16" json:"actor_type"`
	ActorID     string         `gorm:"size:64" json:"actor_id,omitempty"`
	UserID      *uint          `gorm:"index" json:"user_id,omitempty"`
	VisitorUUID string         `gorm:"size:36" json:"visitor_uuid,omitempty"`
	Page        string         `gorm:"size:255" json:"page,omitempty"`
	Message     string         `json:"message"`
	Details     datatypes.JSON `json:"details,omitempty"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
}

type Visitor struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       string    `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Role       string    `gorm:"size:16;not null;default:visitor" json:"role"`
	UserID     *uint     `gorm:"index" json:"userId,omitempty"`
	DeviceType string    `gorm:"size:16" json:"deviceType,omitempty"`
	FirstSeen  time.Time `json:"firstSeen"`
	LastSeen   time.Time `json:"lastSeen"`
}

// RevokedToken blocks a signed token id until it would have expired anyway.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}
