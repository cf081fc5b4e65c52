package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vmxio.com/itpec-quiz/internal/auth"
	"vmxio.com/itpec-quiz/internal/catalog"
	"vmxio.com/itpec-quiz/internal/quiz"
)

type CreateSessionReq struct {
	Track   string `json:"track" binding:"required"`
	Paper   string `json:"paper"`
	Count   any    `json:"count"`
	Session string `json:"session"`
}

// requestedCount accepts a JSON number or a numeric string. Only a missing
// or non-numeric count falls back to the default.
func requestedCount(v any) int {
	switch n := v.(type) {
	case float64:
		switch {
		case n <= quiz.MinCount:
			return quiz.MinCount
		case n >= quiz.MaxCount:
			return quiz.MaxCount
		default:
			return int(n)
		}
	case string:
		return quiz.ParseCount(n)
	default:
		return quiz.DefaultCount
	}
}

// POST /api/v1/sessions
func CreateSession(svc *quiz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSessionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "track is required", "redirect": "/exams"})
			return
		}
		sess, err := svc.Create(c.Request.Context(), quiz.CreateInput{
			Track:     req.Track,
			Paper:     req.Paper,
			Count:     requestedCount(req.Count),
			Sitting:   req.Session,
			UserID:    auth.UserIDPtr(c),
			VisitorID: VisitorID(c),
		})
		if errors.Is(err, catalog.ErrTrackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Track not found", "redirect": "/exams"})
			return
		}
		if err != nil {
			log.Printf("[ERROR] create session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create exam session", "redirect": "/exams"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":        sess.ID,
			"code":      sess.Code,
			"questions": len(sess.Questions),
			"requested": sess.Requested,
			"redirect":  "/quiz/session/" + sess.Code,
		})
	}
}

// GET /api/v1/sessions/:code
func GetSession(svc *quiz.Service, labels quiz.Labeler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svc.Load(c.Request.Context(), c.Param("code"))
		if errors.Is(err, quiz.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Exam session not found", "redirect": "/exams"})
			return
		}
		if err != nil {
			log.Printf("[ERROR] load session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load exam session"})
			return
		}
		if sess.Finished {
			c.JSON(http.StatusConflict, gin.H{
				"error":    "Exam session already finished",
				"redirect": resultPath(sess),
			})
			return
		}
		c.JSON(http.StatusOK, quiz.NewPlayView(labels, sess))
	}
}

type AnswerReq struct {
	QuestionID string `json:"questionId" binding:"required"`
	OptionID   string `json:"optionId"`
}

// PUT /api/v1/sessions/:code/answers
func AnswerQuestion(svc *quiz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnswerReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "questionId is required"})
			return
		}
		state, err := svc.Answer(c.Request.Context(), c.Param("code"), req.QuestionID, req.OptionID)
		switch {
		case errors.Is(err, quiz.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Exam session not found"})
		case errors.Is(err, quiz.ErrUnknownQuestion):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Question is not part of this session"})
		case errors.Is(err, quiz.ErrSessionFinished):
			c.JSON(http.StatusConflict, gin.H{"error": "Exam session already finished"})
		case err != nil:
			log.Printf("[ERROR] answer: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record answer"})
		default:
			c.JSON(http.StatusOK, state)
		}
	}
}

type FinishReq struct {
	Answers map[string]string `json:"answers"`
}

// POST /api/v1/sessions/:code/finish
func FinishSession(svc *quiz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FinishReq
		// an empty body means no client-side answers
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		out, err := svc.Finish(c.Request.Context(), c.Param("code"), req.Answers)
		switch {
		case errors.Is(err, quiz.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Exam session not found"})
			return
		case errors.Is(err, quiz.ErrSessionFinished):
			c.JSON(http.StatusConflict, gin.H{"error": "Exam session already finished"})
			return
		case err != nil:
			log.Printf("[ERROR] finish: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit exam"})
			return
		}

		s := out.Session
		c.JSON(http.StatusOK, gin.H{
			"id":        s.ID,
			"code":      s.Code,
			"persisted": out.Persisted,
			"finished":  s.Finished,
			"summary":   s.Summary,
			"passed":    quiz.Passed(s.Summary.Score),
			"timeSpent": s.TimeSpent,
			"redirect":  resultPath(s),
		})
	}
}

func resultPath(s *quiz.Session) string {
	if s.ID == 0 {
		return "/result/" + s.Code
	}
	return "/result/" + strconv.FormatUint(uint64(s.ID), 10)
}

// GET /api/v1/results/:id
func GetResult(svc *quiz.Service, labels quiz.Labeler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svc.Lookup(c.Request.Context(), c.Param("id"))
		if err != nil {
			if !errors.Is(err, quiz.ErrSessionNotFound) {
				log.Printf("[ERROR] result %s: %v", c.Param("id"), err)
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
			return
		}
		c.JSON(http.StatusOK, quiz.NewResultView(labels, sess))
	}
}
