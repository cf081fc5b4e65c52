package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"vmxio.com/itpec-quiz/internal/auth"
	"vmxio.com/itpec-quiz/internal/events"
	"vmxio.com/itpec-quiz/internal/store"
)

const invalidCredentials = "Invalid username or password"

type AuthHandler struct {
	Users             *store.UserRepository
	Visitors          *store.VisitorRepository
	Issuer            *auth.Issuer
	Revoker           auth.Revoker
	Events            *events.Emitter
	AllowRegistration bool
}

type RegisterReq struct {
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Email           string `json:"email" validate:"required,email"`
	FullName        string `json:"fullName" validate:"max=128"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserDTO struct {
	ID       uint    `json:"id"`
	UUID     string  `json:"uuid"`
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
	FullName string  `json:"fullName,omitempty"`
	Role     string  `json:"role"`
}

func toUserDTO(u *store.User) UserDTO {
	return UserDTO{ID: u.ID, UUID: u.UUID, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

var validate = validator.New()

var fieldMessages = map[string]map[string]string{
	"Username":        {"required": "Username is required", "min": "Username must be at least 3 characters", "max": "Username is too long"},
	"Email":           {"required": "Email is required", "email": "Email is invalid"},
	"FullName":        {"max": "Full name is too long"},
	"Password":        {"required": "Password is required", "min": "Password must be at least 6 characters"},
	"ConfirmPassword": {"required": "Please confirm your password", "eqfield": "Passwords do not match"},
	"Role":            {"required": "Role is required", "oneof": "Role must be admin or member"},
}

// fieldErrors turns validator output into {"field": "message"} keyed by
// the JSON field name.
func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["request"] = "Invalid request"
		return out
	}
	for _, fe := range verrs {
		msg := fe.Field() + " is invalid"
		if m, ok := fieldMessages[fe.Field()][fe.Tag()]; ok {
			msg = m
		}
		name := fe.Field()
		out[strings.ToLower(name[:1])+name[1:]] = msg
	}
	return out
}

func duplicateFields(err error) (map[string]string, bool) {
	var dup *store.DuplicateError
	if errors.As(err, &dup) {
		return dup.Fields, true
	}
	return nil, false
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.AllowRegistration {
			c.JSON(http.StatusForbidden, gin.H{"error": "Registration is disabled"})
			return
		}
		var req RegisterReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrors(err)})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
			return
		}
		email := req.Email
		u := &store.User{Username: req.Username, Email: &email, FullName: strings.TrimSpace(req.FullName), PasswordHash: hash, Role: store.RoleMember}
		if err := h.Users.Create(c.Request.Context(), u); err != nil {
			if fields, ok := duplicateFields(err); ok {
				c.JSON(http.StatusConflict, gin.H{"error": "Account already exists", "fields": fields})
				return
			}
			log.Printf("[ERROR] register: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
			return
		}

		uid := u.ID
		h.Events.Emit(events.Success(events.ActionRegister, "Account registered").
			ForActor(&uid, VisitorID(c)).
			OnPage("/register").
			With("username", u.Username))
		c.JSON(http.StatusCreated, gin.H{"user": toUserDTO(u), "redirect": "/login"})
	}
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
			return
		}
		ctx := c.Request.Context()
		vid := VisitorID(c)

		u, err := h.Users.ByUsername(ctx, req.Username)
		if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				log.Printf("[ERROR] login lookup: %v", err)
			}
			h.Events.Emit(events.Warning(events.ActionLoginFailed, "Failed login attempt").
				ForActor(nil, vid).
				OnPage("/login").
				With("username", req.Username))
			c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentials})
			return
		}

		token, claims, err := h.Issuer.Issue(u.ID, u.Username, u.Role)
		if err != nil {
			log.Printf("[ERROR] issue token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}

		if vid != "" && h.Visitors != nil {
			if err := h.Visitors.AttachUser(ctx, vid, u.ID, u.Role, DeviceType(c.Request.UserAgent())); err != nil {
				log.Printf("[WARN] attach visitor %s: %v", vid, err)
			}
		}

		uid := u.ID
		h.Events.Emit(events.Success(events.ActionLogin, "User signed in").
			ForActor(&uid, vid).
			OnPage("/login").
			With("username", u.Username).
			With("role", u.Role))

		redirect := "/member/dashboard"
		if u.Role == store.RoleAdmin {
			redirect = "/admin/dashboard"
		}
		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"expiresAt": claims.ExpiresAt.Time,
			"user":      toUserDTO(u),
			"redirect":  redirect,
		})
	}
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"status": "signed out"})
			return
		}
		if h.Revoker != nil {
			if err := h.Revoker.Revoke(c.Request.Context(), id.TokenID, id.ExpiresAt); err != nil {
				log.Printf("[ERROR] revoke token: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
				return
			}
		}
		uid := id.UserID
		h.Events.Emit(events.Info(events.ActionLogout, "User signed out").
			ForActor(&uid, VisitorID(c)).
			With("username", id.Username))
		c.JSON(http.StatusOK, gin.H{"status": "signed out", "redirect": "/login"})
	}
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		u, err := h.Users.ByID(c.Request.Context(), id.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":      toUserDTO(u),
			"visitorId": VisitorID(c),
			"expiresAt": id.ExpiresAt,
		})
	}
}
