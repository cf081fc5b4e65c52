package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"vmxio.com/itpec-quiz/internal/catalog"
	"vmxio.com/itpec-quiz/internal/events"
	"vmxio.com/itpec-quiz/internal/quiz"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", ":memory:", time.Second)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	return db
}

func sampleSession(code string) *quiz.Session {
	now := time.Now()
	return &quiz.Session{
		Code:      code,
		VisitorID: "visitor-1",
		Track:     "ip",
		Paper:     "random",
		Sitting:   quiz.SittingBoth,
		Requested: 20,
		Papers:    []string{"2023A", "2023O"},
		Questions: []catalog.Question{
			{ID: "1", Prompt: catalog.Plain("What is a CPU?"), Options: []catalog.Option{{ID: "a", Text: catalog.Plain("Processor")}}, Answer: "a"},
			{ID: "2", Prompt: catalog.Rich("Look at", "the figure"), Options: []catalog.Option{{ID: "a", Text: catalog.Plain("A")}}, Answer: "a", Session: "morning"},
		},
		Answers:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()

	s := sampleSession("abc123")
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if s.ID == 0 {
		t.Fatal("ID not assigned")
	}

	got, err := repo.SessionByCode(ctx, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Questions) != 2 || got.Questions[1].Prompt.Kind != catalog.RichText || got.Questions[1].Session != "morning" {
		t.Errorf("questions = %+v", got.Questions)
	}
	if got.Summary != nil || got.Finished || len(got.Answers) != 0 {
		t.Errorf("fresh session = %+v", got)
	}
	if len(got.Papers) != 2 {
		t.Errorf("papers = %v", got.Papers)
	}

	if _, err := repo.SessionByCode(ctx, "nope"); !errors.Is(err, quiz.ErrSessionNotFound) {
		t.Errorf("missing code error = %v", err)
	}
}

func TestUpdateProgressOnlyTouchesMutableColumns(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	s := sampleSession("code1")
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	answers := map[string]string{"1": "a"}
	summary := quiz.Score(s.Questions, answers)
	err := repo.UpdateProgress(ctx, s.ID, quiz.Progress{
		Answers:   answers,
		Summary:   &summary,
		Finished:  false,
		TimeSpent: 42,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, _ := repo.SessionByID(ctx, s.ID)
	if got.Answers["1"] != "a" || got.TimeSpent != 42 || got.Finished {
		t.Errorf("progress = %+v", got)
	}
	if got.Summary == nil || got.Summary.Correct != 1 || got.Summary.Score != 50 {
		t.Errorf("summary = %+v", got.Summary)
	}
	if got.Track != "ip" || len(got.Questions) != 2 {
		t.Error("snapshot columns changed")
	}

	if err := repo.UpdateProgress(ctx, 999, quiz.Progress{}); !errors.Is(err, quiz.ErrSessionNotFound) {
		t.Errorf("missing id error = %v", err)
	}
}

func TestSessionListCountsAndTerminate(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	uid := uint(5)

	for _, code := range []string{"alpha1", "beta22", "gamma3"} {
		s := sampleSession(code)
		if code == "beta22" {
			s.UserID = &uid
			s.Track = "fe"
		}
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	gamma, _ := repo.SessionByCode(ctx, "gamma3")
	if _, err := repo.Terminate(ctx, gamma.ID); err != nil {
		t.Fatal(err)
	}

	counts, err := repo.Counts(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if counts.Total != 3 || counts.Completed != 1 || counts.Active != 2 || counts.Today != 3 {
		t.Errorf("counts = %+v", counts)
	}

	params := NewParams(1, 10, AdminOpts)
	tests := []struct {
		name   string
		filter SessionFilter
		want   int64
	}{
		{"all", SessionFilter{}, 3},
		{"search code", SessionFilter{Search: "BETA"}, 1},
		{"search track", SessionFilter{Search: "fe"}, 1},
		{"completed", SessionFilter{Status: "completed"}, 1},
		{"in progress", SessionFilter{Status: "in-progress"}, 2},
		{"by user", SessionFilter{UserID: &uid}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := repo.List(ctx, tt.filter, params)
			if err != nil {
				t.Fatal(err)
			}
			if total != tt.want {
				t.Errorf("total = %d, want %d", total, tt.want)
			}
		})
	}

	if _, err := repo.SessionForUser(ctx, "alpha1", uid); !errors.Is(err, quiz.ErrSessionNotFound) {
		t.Errorf("foreign session error = %v", err)
	}
	if _, err := repo.Terminate(ctx, 404); !errors.Is(err, quiz.ErrSessionNotFound) {
		t.Errorf("terminate missing error = %v", err)
	}
}

func TestUserCreateRejectsDuplicates(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()
	email := "Ada@Example.com"

	u := &User{Username: "ada", Email: &email, PasswordHash: "x"}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	if u.UUID == "" || u.Role != RoleMember || *u.Email != "ada@example.com" {
		t.Errorf("user = %+v", u)
	}

	dupEmail := "ada@example.com"
	err := repo.Create(ctx, &User{Username: "ADA", Email: &dupEmail, PasswordHash: "x"})
	var dup *DuplicateError
	if !errors.As(err, &dup) || !errors.Is(err, ErrDuplicate) {
		t.Fatalf("error = %v, want DuplicateError", err)
	}
	if len(dup.Fields) != 2 {
		t.Errorf("fields = %v", dup.Fields)
	}

	if _, err := repo.ByUsername(ctx, "Ada"); err != nil {
		t.Errorf("ByUsername() error = %v", err)
	}
	if _, err := repo.ByUsername(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user error = %v", err)
	}
}

func TestSearchMatchesWildcardsLiterally(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()
	for _, name := range []string{"user_1", "user10", "100%sure"} {
		if err := repo.Create(ctx, &User{Username: name, PasswordHash: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		search string
		want   []string
	}{
		{"user_1", []string{"user_1"}},
		{"USER", []string{"user_1", "user10"}},
		{"0%s", []string{"100%sure"}},
		{"%", []string{"100%sure"}},
	}
	for _, tt := range tests {
		users, total, err := repo.List(ctx, tt.search, NewParams(1, 50, AdminOpts))
		if err != nil {
			t.Fatalf("List(%q) error = %v", tt.search, err)
		}
		got := map[string]bool{}
		for _, u := range users {
			got[u.Username] = true
		}
		if int(total) != len(tt.want) || len(users) != len(tt.want) {
			t.Errorf("List(%q) = %d users (total %d), want %v", tt.search, len(users), total, tt.want)
			continue
		}
		for _, name := range tt.want {
			if !got[name] {
				t.Errorf("List(%q) missing %s", tt.search, name)
			}
		}
	}

	if got := likePattern(` a_b%c\ `); got != `%a\_b\%c\\%` {
		t.Errorf("likePattern() = %q", got)
	}
}

func TestEnsureAdminAndRoleCounts(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.EnsureAdmin(ctx, "admin", "hash")
	if err != nil || !created {
		t.Fatalf("EnsureAdmin() = %v, %v", created, err)
	}
	created, err = repo.EnsureAdmin(ctx, "admin2", "hash")
	if err != nil || created {
		t.Fatalf("second EnsureAdmin() = %v, %v", created, err)
	}
	if err := repo.Create(ctx, &User{Username: "member1", PasswordHash: "x"}); err != nil {
		t.Fatal(err)
	}

	counts, err := repo.RoleCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["total"] != 2 || counts[RoleAdmin] != 1 || counts[RoleMember] != 1 {
		t.Errorf("counts = %v", counts)
	}

	users, total, err := repo.List(ctx, "MEM", NewParams(1, 10, DefaultOpts))
	if err != nil || total != 1 || users[0].Username != "member1" {
		t.Errorf("List() = %v, %d, %v", users, total, err)
	}
}

func TestLogRepository(t *testing.T) {
	repo := NewLogRepository(openTestDB(t))
	ctx := context.Background()
	uid := uint(1)

	evs := []events.Event{
		events.Success(events.ActionLogin, "Signed in").ForActor(&uid, "v1").With("username", "ada"),
		events.Error(events.ActionSessionCreateFailed, "Failed to create exam session", errors.New("boom")).OnPage("/exams/ip"),
		{Message: "no action"},
	}
	for _, e := range evs {
		if err := repo.Deliver(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	all, total, err := repo.List(ctx, LogFilter{}, NewParams(1, 50, AdminOpts))
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("total = %d", total)
	}
	var sawUnknown bool
	for _, e := range all {
		if e.Action == events.ActionUnknown {
			sawUnknown = true
		}
		if e.Action == events.ActionLogin && (e.ActorType != events.ActorUser || e.UserID == nil || len(e.Details) == 0) {
			t.Errorf("login entry = %+v", e)
		}
	}
	if !sawUnknown {
		t.Error("empty action not defaulted to unknown")
	}

	_, n, _ := repo.List(ctx, LogFilter{Type: "error"}, NewParams(1, 50, AdminOpts))
	if n != 1 {
		t.Errorf("error filter = %d", n)
	}
	_, n, _ = repo.List(ctx, LogFilter{Search: "exams/ip"}, NewParams(1, 50, AdminOpts))
	if n != 1 {
		t.Errorf("page search = %d", n)
	}

	counts, _ := repo.Counts(ctx)
	if counts["total"] != 3 || counts["success"] != 1 || counts["error"] != 1 || counts["info"] != 1 || counts["warning"] != 0 {
		t.Errorf("counts = %v", counts)
	}

	exported, _ := repo.Export(ctx, LogFilter{})
	if len(exported) != 3 {
		t.Errorf("export = %d", len(exported))
	}

	removed, err := repo.Clear(ctx)
	if err != nil || removed != 3 {
		t.Errorf("Clear() = %d, %v", removed, err)
	}
}

func TestVisitorTouchAndAttach(t *testing.T) {
	repo := NewVisitorRepository(openTestDB(t))
	ctx := context.Background()

	v, err := repo.Touch(ctx, "v-1", "desktop")
	if err != nil {
		t.Fatal(err)
	}
	if v.Role != RoleVisitor {
		t.Errorf("role = %q", v.Role)
	}
	if _, err := repo.Touch(ctx, "v-1", "desktop"); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("visitors = %d", n)
	}
	if err := repo.AttachUser(ctx, "v-1", 3, RoleMember, "mobile"); err != nil {
		t.Fatal(err)
	}
	if err := repo.AttachUser(ctx, "v-2", 3, RoleMember, "mobile"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown visitor error = %v", err)
	}
}

func TestTokenRevocation(t *testing.T) {
	repo := NewTokenRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now()

	if err := repo.Revoke(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Revoke(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatalf("second revoke error = %v", err)
	}
	if err := repo.Revoke(ctx, "old", now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	if ok, _ := repo.IsRevoked(ctx, "live"); !ok {
		t.Error("live token not revoked")
	}
	if ok, _ := repo.IsRevoked(ctx, "other"); ok {
		t.Error("unknown token reported revoked")
	}
	if n, err := repo.PurgeExpired(ctx, now); err != nil || n != 1 {
		t.Errorf("PurgeExpired() = %d, %v", n, err)
	}
}

func TestParamsAndMeta(t *testing.T) {
	p := NewParams(0, 1000, AdminOpts)
	if p.Page != 1 || p.PerPage != AdminOpts.MaxPerPage {
		t.Errorf("params = %+v", p)
	}
	m := BuildMeta(51, NewParams(2, 25, AdminOpts))
	if m.TotalPages != 3 || !m.HasNext || !m.HasPrev {
		t.Errorf("meta = %+v", m)
	}
	if BuildMeta(0, p).TotalPages != 0 {
		t.Error("empty meta should have zero pages")
	}
}
