package events

import (
	"strconv"
	"time"
)

// Type is the severity column of the logs table.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
)

const (
	ActorVisitor = "visitor"
	ActorUser    = "user"
)

const (
	ActionSessionCreated      = "session_created"
	ActionSessionCreateFailed = "session_create_failed"
	ActionSessionFinished     = "session_finished"
	ActionSessionFinishFailed = "session_finish_failed"
	ActionSessionTerminated   = "session_terminated"
	ActionLogin               = "login"
	ActionLoginFailed         = "login_failed"
	ActionLogout              = "logout"
	ActionRegister            = "register"
	ActionMemberCreated       = "member_created"
	ActionLogsCleared         = "logs_cleared"

	// ActionUnknown fills events emitted without an action.
	ActionUnknown = "unknown"
)

// Event is one activity record. It mirrors a row of the logs table and is
// also the JSON body published to the broker.
type Event struct {
	OccurredAt time.Time      `json:"occurred_at"`
	Type       Type           `json:"type"`
	Action     string         `json:"action"`
	ActorType  string         `json:"actor_type"`
	ActorID    string         `json:"actor_id,omitempty"`
	UserID     *uint          `json:"user_id,omitempty"`
	VisitorID  string         `json:"visitor_uuid,omitempty"`
	Page       string         `json:"page,omitempty"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func New(typ Type, action, message string) Event {
	return Event{
		OccurredAt: time.Now().UTC(),
		Type:       typ,
		Action:     action,
		ActorType:  ActorVisitor,
		Message:    message,
	}
}

func Success(action, message string) Event { return New(TypeSuccess, action, message) }
func Info(action, message string) Event    { return New(TypeInfo, action, message) }
func Warning(action, message string) Event { return New(TypeWarning, action, message) }

// Error builds an error event carrying err's text in details.
func Error(action, message string, err error) Event {
	e := New(TypeError, action, message)
	if err != nil {
		e = e.With("error", err.Error())
	}
	return e
}

// ForActor attributes the event to a signed-in user when userID is set, to
// the visitor otherwise.
func (e Event) ForActor(userID *uint, visitorID string) Event {
	e.VisitorID = visitorID
	if userID != nil {
		id := *userID
		e.UserID = &id
		e.ActorType = ActorUser
		e.ActorID = strconv.FormatUint(uint64(id), 10)
		return e
	}
	e.ActorType = ActorVisitor
	e.ActorID = visitorID
	return e
}

func (e Event) OnPage(page string) Event {
	e.Page = page
	return e
}

// With returns a copy of e with details[key] set.
func (e Event) With(key string, value any) Event {
	d := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		d[k] = v
	}
	d[key] = value
	e.Details = d
	return e
}

func (e Event) WithMeta(key string, value any) Event {
	m := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		m[k] = v
	}
	m[key] = value
	e.Metadata = m
	return e
}

// Normalize fills the defaults a stored row needs.
func (e Event) Normalize() Event {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if e.Type == "" {
		e.Type = TypeInfo
	}
	if e.Action == "" {
		e.Action = ActionUnknown
	}
	if e.ActorType == "" {
		e.ActorType = ActorVisitor
	}
	return e
}
