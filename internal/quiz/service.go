package quiz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"vmxio.com/itpec-quiz/internal/catalog"
	"vmxio.com/itpec-quiz/internal/events"
)

type CreateInput struct {
	Track string
	Paper string
	// Count is clamped to [MinCount, MaxCount]; callers apply DefaultCount
	// when the client sent none.
	Count     int
	Sitting   string
	UserID    *uint
	VisitorID string
}

// Outcome is returned by Finish. Persisted is false when the store update
// failed; the computed result is still returned.
type Outcome struct {
	Session   *Session `json:"session"`
	Persisted bool     `json:"persisted"`
}

type AnswerState struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// play is the in-memory answering state of a loaded session.
type play struct {
	questions map[string]struct{}
	answers   map[string]string
	loadedAt  time.Time
	lastSeen  time.Time
}

// Service runs the create, load, answer and finish workflow. Answers are
// buffered in memory per session code and written once on Finish.
type Service struct {
	catalog Resolver
	store   SessionStore
	events  Emitter

	// Now and Seed are overridable in tests.
	Now  func() time.Time
	Seed *int64

	mu    sync.Mutex
	plays map[string]*play
}

func NewService(c Resolver, store SessionStore, emitter Emitter) *Service {
	return &Service{
		catalog: c,
		store:   store,
		events:  emitter,
		Now:     time.Now,
		plays:   map[string]*play{},
	}
}

func (s *Service) emit(e events.Event) {
	if s.events != nil {
		s.events.Emit(e)
	}
}

// Create resolves the track and paper, samples the questions and inserts a
// new unfinished session.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Session, error) {
	track, ok := s.catalog.Track(in.Track)
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrTrackNotFound, in.Track)
	}

	count := ClampCount(in.Count)
	sitting := NormalizeSitting(in.Sitting)

	res := s.catalog.Resolve(ctx, track.ID, in.Paper)
	pool := FilterSitting(res.Questions, sitting)
	picked := Sample(pool, count, s.Seed)

	paper := res.ResolvedPaperID
	if paper == "" {
		if catalog.IsRandom(in.Paper) {
			paper = "random"
		} else {
			paper = strings.TrimSpace(in.Paper)
		}
	}

	now := s.Now()
	sess := &Session{
		Code:      NewCode(now),
		UserID:    in.UserID,
		VisitorID: in.VisitorID,
		Track:     track.ID,
		Paper:     paper,
		Sitting:   sitting,
		Requested: count,
		Papers:    append([]string{}, res.PaperIDs...),
		Questions: picked,
		Answers:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		s.emit(events.Error(events.ActionSessionCreateFailed, "Failed to create exam session", err).
			ForActor(in.UserID, in.VisitorID).
			With("track", track.ID).
			With("paper", paper))
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.emit(events.Success(events.ActionSessionCreated, "Exam session created").
		ForActor(in.UserID, in.VisitorID).
		With("code", sess.Code).
		With("track", track.ID).
		With("paper", paper).
		With("questions", len(picked)).
		With("requested", count))
	return sess, nil
}

// Lookup finds a session by numeric id or by code.
func (s *Service) Lookup(ctx context.Context, ref string) (*Session, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrSessionNotFound
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		sess, err := s.store.SessionByID(ctx, uint(id))
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}
	return s.store.SessionByCode(ctx, ref)
}

// Load reads a session and starts tracking its play. Answers already
// buffered for the session are merged into the returned copy.
func (s *Service) Load(ctx context.Context, code string) (*Session, error) {
	sess, err := s.store.SessionByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if sess.Finished {
		return sess, nil
	}

	now := s.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plays[sess.Code]
	if !ok {
		p = &play{
			questions: make(map[string]struct{}, len(sess.Questions)),
			answers:   make(map[string]string, len(sess.Answers)),
			loadedAt:  now,
		}
		for _, q := range sess.Questions {
			p.questions[q.ID] = struct{}{}
		}
		for qid, opt := range sess.Answers {
			if _, known := p.questions[qid]; known && opt != "" {
				p.answers[qid] = opt
			}
		}
		s.plays[sess.Code] = p
	}
	p.lastSeen = now

	merged := make(map[string]string, len(p.answers))
	for k, v := range p.answers {
		merged[k] = v
	}
	sess.Answers = merged
	return sess, nil
}

// Answer records optionID for questionID in the session's play. An empty
// optionID clears the answer. Nothing is written to the store.
func (s *Service) Answer(ctx context.Context, code, questionID, optionID string) (AnswerState, error) {
	s.mu.Lock()
	_, tracked := s.plays[code]
	s.mu.Unlock()
	if !tracked {
		sess, err := s.Load(ctx, code)
		if err != nil {
			return AnswerState{}, err
		}
		if sess.Finished {
			return AnswerState{}, ErrSessionFinished
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plays[code]
	if !ok {
		// evicted or finished between the two critical sections
		return AnswerState{}, ErrSessionFinished
	}
	if _, known := p.questions[questionID]; !known {
		return AnswerState{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if optionID == "" {
		delete(p.answers, questionID)
	} else {
		p.answers[questionID] = optionID
	}
	p.lastSeen = s.Now()
	return AnswerState{Answered: len(p.answers), Total: len(p.questions)}, nil
}

// Finish scores the session and writes answers, summary, completion and
// time spent in one update. answers from the caller override buffered ones;
// ids outside the snapshot are ignored. A failed write is reported through
// Outcome.Persisted and an error event, not as an error.
func (s *Service) Finish(ctx context.Context, code string, answers map[string]string) (*Outcome, error) {
	sess, err := s.store.SessionByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if sess.Finished {
		return nil, ErrSessionFinished
	}

	now := s.Now()
	started := sess.CreatedAt
	if sess.TimeSpent > 0 {
		started = sess.UpdatedAt
	}
	merged := make(map[string]string, len(sess.Questions))
	for qid, opt := range sess.Answers {
		if sess.hasQuestion(qid) && opt != "" {
			merged[qid] = opt
		}
	}

	s.mu.Lock()
	p, tracked := s.plays[code]
	if tracked {
		started = p.loadedAt
		for qid, opt := range p.answers {
			merged[qid] = opt
		}
	}
	s.mu.Unlock()

	for qid, opt := range answers {
		if opt == "" || !sess.hasQuestion(qid) {
			continue
		}
		merged[qid] = opt
	}

	summary := Score(sess.Questions, merged)
	elapsed := int(now.Sub(started).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	progress := Progress{
		Answers:   merged,
		Summary:   &summary,
		Finished:  AllAnswered(sess.Questions, merged),
		TimeSpent: sess.TimeSpent + elapsed,
		UpdatedAt: now,
	}

	sess.Answers = progress.Answers
	sess.Summary = progress.Summary
	sess.Finished = progress.Finished
	sess.TimeSpent = progress.TimeSpent
	sess.UpdatedAt = now

	out := &Outcome{Session: sess, Persisted: true}
	if err := s.store.UpdateProgress(ctx, sess.ID, progress); err != nil {
		out.Persisted = false
		s.emit(events.Error(events.ActionSessionFinishFailed, "Failed to save exam results", err).
			ForActor(sess.UserID, sess.VisitorID).
			With("code", sess.Code))
		return out, nil
	}

	s.Forget(code)
	s.emit(events.Success(events.ActionSessionFinished, "Exam session submitted").
		ForActor(sess.UserID, sess.VisitorID).
		With("code", sess.Code).
		With("score", summary.Score).
		With("correct", summary.Correct).
		With("total", summary.Total).
		With("finished", progress.Finished).
		With("time_spent", progress.TimeSpent))
	return out, nil
}

func (s *Service) Forget(code string) {
	s.mu.Lock()
	delete(s.plays, code)
	s.mu.Unlock()
}

// EvictIdle drops plays not touched within ttl and returns how many were
// removed. Their buffered answers are lost.
func (s *Service) EvictIdle(ttl time.Duration) int {
	cutoff := s.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for code, p := range s.plays {
		if p.lastSeen.Before(cutoff) {
			delete(s.plays, code)
			n++
		}
	}
	return n
}

// ActivePlays is the number of sessions currently being answered.
func (s *Service) ActivePlays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plays)
}
