package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vmxio.com/itpec-quiz/internal/store"
)

const (
	visitorCookie = "itpec_vid"
	visitorHeader = "X-Visitor-Id"
	visitorKey    = "visitorID"
)

// EnsureVisitor reads the visitor id from the X-Visitor-Id header or the
// visitor cookie, minting a new one when neither holds a valid uuid, and
// records the sighting. A failed write does not block the request.
func EnsureVisitor(visitors *store.VisitorRepository, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(visitorHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = ""
		}
		if id == "" {
			if v, err := c.Cookie(visitorCookie); err == nil {
				if _, err := uuid.Parse(v); err == nil {
					id = v
				}
			}
		}
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     visitorCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   365 * 24 * 3600,
				HttpOnly: true,
				Secure:   secureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Header(visitorHeader, id)
		c.Set(visitorKey, id)

		if visitors != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			if _, err := visitors.Touch(ctx, id, DeviceType(c.Request.UserAgent())); err != nil {
				log.Printf("[WARN] visitor %s: %v", id, err)
			}
			cancel()
		}
		c.Next()
	}
}

func VisitorID(c *gin.Context) string {
	return c.GetString(visitorKey)
}

// DeviceType classifies a User-Agent as mobile, tablet or desktop.
func DeviceType(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return "mobile"
	default:
		return "desktop"
	}
}
