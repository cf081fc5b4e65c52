package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "secret1") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "secret2") || CheckPassword("not-a-hash", "secret1") {
		t.Error("wrong password accepted")
	}
}

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("k1", time.Hour)
	token, claims, err := iss.Issue(7, "ada", "member")
	if err != nil {
		t.Fatal(err)
	}
	if claims.ID == "" || claims.Subject != "7" {
		t.Errorf("claims = %+v", claims)
	}

	got, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.UserID != 7 || got.Username != "ada" || got.Role != "member" || got.ID != claims.ID {
		t.Errorf("parsed = %+v", got)
	}

	if _, err := NewIssuer("other", time.Hour).Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret error = %v", err)
	}

	expired := NewIssuer("k1", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, _ := expired.Issue(7, "ada", "member")
	if _, err := iss.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v", err)
	}
}

type memKV struct {
	keys map[string]time.Duration
	err  error
}

func (m *memKV) Set(_ context.Context, key string, _ interface{}, ttl time.Duration) error {
	m.keys[key] = ttl
	return m.err
}

func (m *memKV) Exists(_ context.Context, keys ...string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.keys[k]; ok {
			n++
		}
	}
	return n, nil
}

func TestRedisRevoker(t *testing.T) {
	kv := &memKV{keys: map[string]time.Duration{}}
	r := NewRedisRevoker(kv)
	ctx := context.Background()

	if err := r.Revoke(ctx, "j1", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if ttl := kv.keys["auth:blacklist:j1"]; ttl <= 0 || ttl > time.Hour {
		t.Errorf("ttl = %v", ttl)
	}
	if ok, _ := r.IsRevoked(ctx, "j1"); !ok {
		t.Error("j1 should be revoked")
	}
	if err := r.Revoke(ctx, "j2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if ok, _ := r.IsRevoked(ctx, "j2"); ok {
		t.Error("expired token should not be stored")
	}
}

func newTestRouter(iss *Issuer, rev Revoker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Authenticate(iss, rev))
	r.GET("/open", func(c *gin.Context) {
		id, ok := FromContext(c)
		c.JSON(http.StatusOK, gin.H{"signedIn": ok, "user": id.Username})
	})
	r.GET("/member", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/admin", RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestMiddleware(t *testing.T) {
	iss := NewIssuer("k1", time.Hour)
	kv := &memKV{keys: map[string]time.Duration{}}
	rev := NewRedisRevoker(kv)
	r := newTestRouter(iss, rev)

	member, _, _ := iss.Issue(1, "ada", "member")
	admin, _, _ := iss.Issue(2, "root", "admin")
	revoked, revokedClaims, _ := iss.Issue(3, "gone", "admin")
	_ = rev.Revoke(context.Background(), revokedClaims.ID, revokedClaims.ExpiresAt.Time)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"anonymous open", "/open", "", http.StatusOK},
		{"garbage token is anonymous", "/open", "garbage", http.StatusOK},
		{"anonymous member", "/member", "", http.StatusUnauthorized},
		{"member member", "/member", member, http.StatusNoContent},
		{"member admin", "/admin", member, http.StatusForbidden},
		{"admin admin", "/admin", admin, http.StatusNoContent},
		{"revoked admin", "/admin", revoked, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
}
