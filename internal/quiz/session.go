package quiz

import (
	"context"
	"errors"
	"time"

	"vmxio.com/itpec-quiz/internal/catalog"
	"vmxio.com/itpec-quiz/internal/events"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownQuestion = errors.New("question is not part of this session")
	ErrSessionFinished = errors.New("session already finished")
)

const (
	StatusCreated    = "created"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// Session is one quiz attempt. Questions is the snapshot taken at creation
// and never changes afterwards; answers map question id to option id.
type Session struct {
	ID        uint               `json:"id"`
	Code      string             `json:"code"`
	UserID    *uint              `json:"userId,omitempty"`
	VisitorID string             `json:"visitorUuid,omitempty"`
	Track     string             `json:"track"`
	Paper     string             `json:"paper"`
	Sitting   string             `json:"session"`
	Requested int                `json:"requested"`
	Papers    []string           `json:"papers"`
	Questions []catalog.Question `json:"questions"`
	Answers   map[string]string  `json:"answers"`
	Finished  bool               `json:"finished"`
	TimeSpent int                `json:"timeSpent"`
	Summary   *Summary           `json:"summary,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func (s *Session) Status() string {
	switch {
	case s.Finished:
		return StatusFinished
	case len(s.Answers) > 0:
		return StatusInProgress
	default:
		return StatusCreated
	}
}

func (s *Session) hasQuestion(id string) bool {
	for _, q := range s.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Progress is the mutable part of a stored session written on finish.
type Progress struct {
	Answers   map[string]string
	Summary   *Summary
	Finished  bool
	TimeSpent int
	UpdatedAt time.Time
}

// SessionStore persists sessions. Lookups return ErrSessionNotFound when no
// row matches.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	SessionByCode(ctx context.Context, code string) (*Session, error)
	SessionByID(ctx context.Context, id uint) (*Session, error)
	UpdateProgress(ctx context.Context, id uint, p Progress) error
}

// Resolver is the part of the catalog the workflow needs.
type Resolver interface {
	Track(id string) (catalog.Track, bool)
	Resolve(ctx context.Context, trackID, selector string) catalog.Resolution
}

type Emitter interface {
	Emit(e events.Event)
}
