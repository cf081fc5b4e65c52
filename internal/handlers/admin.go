package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vmxio.com/itpec-quiz/internal/auth"
	"vmxio.com/itpec-quiz/internal/catalog"
	"vmxio.com/itpec-quiz/internal/events"
	"vmxio.com/itpec-quiz/internal/quiz"
	"vmxio.com/itpec-quiz/internal/store"
)

type AdminHandler struct {
	Users    *store.UserRepository
	Sessions *store.SessionRepository
	Logs     *store.LogRepository
	Visitors *store.VisitorRepository
	Catalog  *catalog.Catalog
	Quiz     *quiz.Service
	Events   *events.Emitter
}

// GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		roles, err := h.Users.RoleCounts(ctx)
		if err != nil {
			log.Printf("[ERROR] admin dashboard: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
			return
		}
		sessions, err := h.Sessions.Counts(ctx, time.Now())
		if err != nil {
			log.Printf("[ERROR] admin dashboard: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
			return
		}
		visitors, err := h.Visitors.Count(ctx)
		if err != nil {
			log.Printf("[WARN] admin dashboard visitors: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{
			"users":          roles["total"],
			"members":        roles[store.RoleMember],
			"admins":         roles[store.RoleAdmin],
			"visitors":       visitors,
			"sessions":       sessions.Total,
			"activeSessions": sessions.Active,
			"completed":      sessions.Completed,
			"sessionsToday":  sessions.Today,
			"questions":      h.Catalog.QuestionCount(ctx),
			"tracks":         len(h.Catalog.Tracks()),
			"livePlays":      h.Quiz.ActivePlays(),
			"events":         h.Events.Stats(),
		})
	}
}

// GET /api/v1/admin/members?search=&page=&per_page=
func (h *AdminHandler) ListMembers() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		p := pageParams(c, store.AdminOpts)
		users, total, err := h.Users.List(ctx, c.Query("search"), p)
		if err != nil {
			log.Printf("[ERROR] list members: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load members"})
			return
		}
		roles, err := h.Users.RoleCounts(ctx)
		if err != nil {
			log.Printf("[ERROR] list members: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load members"})
			return
		}
		items := make([]UserDTO, 0, len(users))
		for i := range users {
			items = append(items, toUserDTO(&users[i]))
		}
		c.JSON(http.StatusOK, gin.H{
			"items":      items,
			"counts":     roles,
			"pagination": store.BuildMeta(total, p),
		})
	}
}

type CreateMemberReq struct {
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Email           string `json:"email" validate:"omitempty,email"`
	FullName        string `json:"fullName" validate:"max=128"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=admin member"`
}

// POST /api/v1/admin/members
func (h *AdminHandler) CreateMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMemberReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		if req.Role == "" {
			req.Role = store.RoleMember
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrors(err)})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create member"})
			return
		}
		u := &store.User{Username: req.Username, FullName: strings.TrimSpace(req.FullName), PasswordHash: hash, Role: req.Role}
		if req.Email != "" {
			email := req.Email
			u.Email = &email
		}
		if err := h.Users.Create(c.Request.Context(), u); err != nil {
			if fields, ok := duplicateFields(err); ok {
				c.JSON(http.StatusConflict, gin.H{"error": "Account already exists", "fields": fields})
				return
			}
			log.Printf("[ERROR] create member: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create member"})
			return
		}

		admin, _ := auth.FromContext(c)
		h.Events.Emit(events.Success(events.ActionMemberCreated, "Member created").
			ForActor(auth.UserIDPtr(c), VisitorID(c)).
			OnPage("/admin/members").
			With("username", u.Username).
			With("role", u.Role).
			With("created_by", admin.Username))
		c.JSON(http.StatusCreated, gin.H{"user": toUserDTO(u)})
	}
}

// GET /api/v1/admin/sessions?search=&status=&page=&per_page=
func (h *AdminHandler) ListSessions() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		p := pageParams(c, store.AdminOpts)
		sessions, total, err := h.Sessions.List(ctx, store.SessionFilter{
			Search: c.Query("search"),
			Status: c.Query("status"),
		}, p)
		if err != nil {
			log.Printf("[ERROR] list sessions: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
			return
		}
		counts, err := h.Sessions.Counts(ctx, time.Now())
		if err != nil {
			log.Printf("[ERROR] list sessions: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
			return
		}
		items := make([]SessionSummaryDTO, 0, len(sessions))
		for _, s := range sessions {
			items = append(items, summarize(h.Catalog, s))
		}
		c.JSON(http.StatusOK, gin.H{
			"items":      items,
			"counts":     counts,
			"pagination": store.BuildMeta(total, p),
		})
	}
}

// POST /api/v1/admin/sessions/:id/terminate
func (h *AdminHandler) TerminateSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}
		sess, err := h.Sessions.Terminate(c.Request.Context(), uint(id))
		if errors.Is(err, quiz.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Exam session not found"})
			return
		}
		if err != nil {
			log.Printf("[ERROR] terminate session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to terminate session"})
			return
		}
		h.Quiz.Forget(sess.Code)

		h.Events.Emit(events.Warning(events.ActionSessionTerminated, "Exam session terminated").
			ForActor(auth.UserIDPtr(c), VisitorID(c)).
			OnPage("/admin/sessions").
			With("code", sess.Code))
		c.JSON(http.StatusOK, gin.H{"session": summarize(h.Catalog, sess)})
	}
}

func logFilter(c *gin.Context) store.LogFilter {
	return store.LogFilter{Type: c.Query("type"), Search: c.Query("search")}
}

// GET /api/v1/admin/logs?type=&search=&page=&per_page=
func (h *AdminHandler) ListLogs() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		p := pageParams(c, store.AdminOpts)
		entries, total, err := h.Logs.List(ctx, logFilter(c), p)
		if err != nil {
			log.Printf("[ERROR] list logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load logs"})
			return
		}
		counts, err := h.Logs.Counts(ctx)
		if err != nil {
			log.Printf("[ERROR] list logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"items":      entries,
			"counts":     counts,
			"pagination": store.BuildMeta(total, p),
		})
	}
}

// DELETE /api/v1/admin/logs
func (h *AdminHandler) ClearLogs() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := h.Logs.Clear(c.Request.Context())
		if err != nil {
			log.Printf("[ERROR] clear logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear logs"})
			return
		}
		h.Events.Emit(events.Warning(events.ActionLogsCleared, "Logs cleared").
			ForActor(auth.UserIDPtr(c), VisitorID(c)).
			OnPage("/admin/logs").
			With("removed", n))
		c.JSON(http.StatusOK, gin.H{"removed": n})
	}
}

// GET /api/v1/admin/logs/export
func (h *AdminHandler) ExportLogs() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.Logs.Export(c.Request.Context(), logFilter(c))
		if err != nil {
			log.Printf("[ERROR] export logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export logs"})
			return
		}
		if entries == nil {
			entries = []store.LogEntry{}
		}
		name := "logs-" + time.Now().Format("2006-01-02") + ".json"
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.IndentedJSON(http.StatusOK, entries)
	}
}
