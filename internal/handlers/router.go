package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vmxio.com/itpec-quiz/internal/auth"
	"vmxio.com/itpec-quiz/internal/catalog"
	"vmxio.com/itpec-quiz/internal/events"
	"vmxio.com/itpec-quiz/internal/quiz"
	"vmxio.com/itpec-quiz/internal/store"
)

type Deps struct {
	Catalog  *catalog.Catalog
	Quiz     *quiz.Service
	Sessions *store.SessionRepository
	Users    *store.UserRepository
	Logs     *store.LogRepository
	Visitors *store.VisitorRepository
	Issuer   *auth.Issuer
	Revoker  auth.Revoker
	Events   *events.Emitter

	CORSOrigins       []string
	SecureCookies     bool
	AllowRegistration bool
}

func allowOrigin(origins []string) func(string) bool {
	return func(origin string) bool {
		for _, o := range origins {
			if origin == o {
				return true
			}
		}
		// any http://localhost:PORT during development
		return strings.HasPrefix(origin, "http://localhost:")
	}
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  allowOrigin(d.CORSOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", visitorHeader},
		ExposeHeaders:    []string{visitorHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "events": d.Events.Stats()})
	})

	api := r.Group("/api/v1")
	api.Use(EnsureVisitor(d.Visitors, d.SecureCookies), auth.Authenticate(d.Issuer, d.Revoker))
	{
		api.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":    "ok",
				"livePlays": d.Quiz.ActivePlays(),
				"events":    d.Events.Stats(),
			})
		})

		// Catalog
		api.GET("/tracks", ListTracks(d.Catalog))
		api.GET("/tracks/:track", GetTrack(d.Catalog))

		// Exam sessions
		api.POST("/sessions", CreateSession(d.Quiz))
		api.GET("/sessions/:code", GetSession(d.Quiz, d.Catalog))
		api.PUT("/sessions/:code/answers", AnswerQuestion(d.Quiz))
		api.POST("/sessions/:code/finish", FinishSession(d.Quiz))
		api.GET("/results/:id", GetResult(d.Quiz, d.Catalog))

		// Auth
		ah := &AuthHandler{
			Users:             d.Users,
			Visitors:          d.Visitors,
			Issuer:            d.Issuer,
			Revoker:           d.Revoker,
			Events:            d.Events,
			AllowRegistration: d.AllowRegistration,
		}
		api.POST("/auth/register", ah.Register())
		api.POST("/auth/login", ah.Login())
		api.POST("/auth/logout", ah.Logout())
		api.GET("/auth/me", auth.RequireAuth(), ah.Me())

		// Member area
		mh := &MemberHandler{Sessions: d.Sessions, Labels: d.Catalog}
		member := api.Group("/member", auth.RequireAuth())
		member.GET("/dashboard", mh.Dashboard())
		member.GET("/history", mh.History())
		member.GET("/results/:code", mh.Result())

		// Admin area
		adm := &AdminHandler{
			Users:    d.Users,
			Sessions: d.Sessions,
			Logs:     d.Logs,
			Visitors: d.Visitors,
			Catalog:  d.Catalog,
			Quiz:     d.Quiz,
			Events:   d.Events,
		}
		admin := api.Group("/admin", auth.RequireRole(store.RoleAdmin))
		admin.GET("/dashboard", adm.Dashboard())
		admin.GET("/members", adm.ListMembers())
		admin.POST("/members", adm.CreateMember())
		admin.GET("/sessions", adm.ListSessions())
		admin.POST("/sessions/:id/terminate", adm.TerminateSession())
		admin.GET("/logs", adm.ListLogs())
		admin.GET("/logs/export", adm.ExportLogs())
		admin.DELETE("/logs", adm.ClearLogs())
	}
	return r
}
