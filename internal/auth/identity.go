package auth

import (
	"time"

	"github.com/gin-gonic/gin"
)

const identityKey = "auth.identity"

// Identity is the signed-in account attached to a request.
type Identity struct {
	UserID    uint      `json:"userId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (id Identity) IsAdmin() bool { return id.Role == "admin" }

func IdentityFromClaims(c *Claims) Identity {
	id := Identity{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     c.Role,
		TokenID:  c.ID,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

func WithIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// FromContext returns the identity set by Authenticate, if any.
func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// UserIDPtr is the signed-in user id, or nil for anonymous requests.
func UserIDPtr(c *gin.Context) *uint {
	id, ok := FromContext(c)
	if !ok {
		return nil
	}
	uid := id.UserID
	return &uid
}
