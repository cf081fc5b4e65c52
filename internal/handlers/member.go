package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vmxio.com/itpec-quiz/internal/auth"
	"vmxio.com/itpec-quiz/internal/quiz"
	"vmxio.com/itpec-quiz/internal/store"
)

type MemberHandler struct {
	Sessions *store.SessionRepository
	Labels   quiz.Labeler
}

type DashboardStats struct {
	TotalExams        int      `json:"totalExams"`
	CompletedExams    int      `json:"completedExams"`
	InProgressExams   int      `json:"inProgressExams"`
	QuestionsAnswered int      `json:"questionsAnswered"`
	AverageScore      *float64 `json:"averageScore,omitempty"`
	BestScore         *int     `json:"bestScore,omitempty"`
	PassedExams       int      `json:"passedExams"`
	PassRate          *float64 `json:"passRate,omitempty"`
	StudyTimeSeconds  int      `json:"studyTimeSeconds"`
	StudyTime         string   `json:"studyTime"`
}

type SessionSummaryDTO struct {
	ID         uint      `json:"id"`
	Code       string    `json:"code"`
	Track      string    `json:"track"`
	TrackName  string    `json:"trackName"`
	Paper      string    `json:"paper"`
	PaperLabel string    `json:"paperLabel"`
	Questions  int       `json:"questions"`
	Answered   int       `json:"answered"`
	Score      *int      `json:"score,omitempty"`
	Passed     *bool     `json:"passed,omitempty"`
	Status     string    `json:"status"`
	TimeSpent  int       `json:"timeSpent"`
	VisitorID  string    `json:"visitorUuid,omitempty"`
	UserID     *uint     `json:"userId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func summarize(labels quiz.Labeler, s *quiz.Session) SessionSummaryDTO {
	dto := SessionSummaryDTO{
		ID:         s.ID,
		Code:       s.Code,
		Track:      s.Track,
		TrackName:  s.Track,
		Paper:      s.Paper,
		PaperLabel: s.Paper,
		Questions:  len(s.Questions),
		Answered:   len(s.Answers),
		Status:     s.Status(),
		TimeSpent:  s.TimeSpent,
		VisitorID:  s.VisitorID,
		UserID:     s.UserID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if labels != nil {
		if t, ok := labels.Track(s.Track); ok {
			dto.TrackName = t.Name
		}
		dto.PaperLabel = labels.PaperLabel(s.Track, s.Paper, nil)
	}
	if s.Summary != nil {
		score := s.Summary.Score
		passed := quiz.Passed(score)
		dto.Score = &score
		dto.Passed = &passed
	}
	return dto
}

// memberStats aggregates a user's sessions for the dashboard.
func memberStats(sessions []*quiz.Session) DashboardStats {
	var st DashboardStats
	scored, scoreSum := 0, 0
	for _, s := range sessions {
		st.TotalExams++
		if s.Finished {
			st.CompletedExams++
		} else {
			st.InProgressExams++
		}
		st.QuestionsAnswered += len(s.Answers)
		st.StudyTimeSeconds += s.TimeSpent
		if s.Summary == nil {
			continue
		}
		scored++
		scoreSum += s.Summary.Score
		if quiz.Passed(s.Summary.Score) {
			st.PassedExams++
		}
		if st.BestScore == nil || s.Summary.Score > *st.BestScore {
			best := s.Summary.Score
			st.BestScore = &best
		}
	}
	if scored > 0 {
		avg := math.Round(float64(scoreSum)/float64(scored)*10) / 10
		st.AverageScore = &avg
		rate := math.Round(float64(st.PassedExams)*1000/float64(scored)) / 10
		st.PassRate = &rate
	}
	st.StudyTime = quiz.FormatStudyTime(st.StudyTimeSeconds)
	return st
}

// GET /api/v1/member/dashboard
func (h *MemberHandler) Dashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		sessions, err := h.Sessions.ForUser(c.Request.Context(), id.UserID)
		if err != nil {
			log.Printf("[ERROR] member dashboard: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
			return
		}
		recent := make([]SessionSummaryDTO, 0, 5)
		for i, s := range sessions {
			if i == 5 {
				break
			}
			recent = append(recent, summarize(h.Labels, s))
		}
		c.JSON(http.StatusOK, gin.H{
			"user":   gin.H{"id": id.UserID, "username": id.Username, "role": id.Role},
			"stats":  memberStats(sessions),
			"recent": recent,
		})
	}
}

// GET /api/v1/member/history?status=all|completed|in-progress
func (h *MemberHandler) History() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		status := strings.ToLower(c.DefaultQuery("status", "all"))
		p := pageParams(c, store.DefaultOpts)
		uid := id.UserID

		sessions, total, err := h.Sessions.List(c.Request.Context(), store.SessionFilter{
			Status: status,
			Search: c.Query("search"),
			UserID: &uid,
		}, p)
		if err != nil {
			log.Printf("[ERROR] member history: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
			return
		}
		items := make([]SessionSummaryDTO, 0, len(sessions))
		for _, s := range sessions {
			items = append(items, summarize(h.Labels, s))
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     status,
			"items":      items,
			"pagination": store.BuildMeta(total, p),
		})
	}
}

// GET /api/v1/member/results/:code
func (h *MemberHandler) Result() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		sess, err := h.Sessions.SessionForUser(c.Request.Context(), c.Param("code"), id.UserID)
		if errors.Is(err, quiz.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Exam session not found", "redirect": "/member/history"})
			return
		}
		if err != nil {
			log.Printf("[ERROR] member result: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load exam results"})
			return
		}
		c.JSON(http.StatusOK, quiz.NewResultView(h.Labels, sess))
	}
}
