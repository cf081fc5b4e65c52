package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vmxio.com/itpec-quiz/internal/catalog"
	"vmxio.com/itpec-quiz/internal/quiz"
)

// GET /api/v1/tracks
func ListTracks(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tracks": cat.Tracks()})
	}
}

// GET /api/v1/tracks/:track
func GetTrack(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := cat.Track(c.Param("track"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Track not found", "redirect": "/exams"})
			return
		}
		options := append([]catalog.Paper{{ID: "random", Label: cat.PaperLabel(t.ID, "random", nil)}}, t.Papers...)
		c.JSON(http.StatusOK, gin.H{
			"track":        t,
			"paperOptions": options,
			"count": gin.H{
				"default": quiz.DefaultCount,
				"min":     quiz.MinCount,
				"max":     quiz.MaxCount,
			},
			"sessions": []string{quiz.SittingBoth, quiz.SittingMorning, quiz.SittingAfternoon},
		})
	}
}
