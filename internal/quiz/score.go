package quiz

import (
	"math"

	"vmxio.com/itpec-quiz/internal/catalog"
)

// PassThreshold is the minimum score shown as "Passed".
const PassThreshold = 70

type Detail struct {
	ID            string           `json:"id"`
	Question      string           `json:"question"`
	Answers       []catalog.Option `json:"answers"`
	Picked        string           `json:"picked"`
	CorrectAnswer string           `json:"correctAnswer"`
	IsCorrect     bool             `json:"isCorrect"`
}

type Summary struct {
	Correct int      `json:"correct"`
	Total   int      `json:"total"`
	Score   int      `json:"score"`
	Details []Detail `json:"details"`
}

// Score grades answers against the snapshotted questions. A question is
// correct only when its recorded answer is non-empty and equals the correct
// option id; unanswered questions count as wrong.
func Score(questions []catalog.Question, answers map[string]string) Summary {
	s := Summary{Total: len(questions), Details: make([]Detail, 0, len(questions))}
	for _, q := range questions {
		picked := answers[q.ID]
		ok := picked != "" && picked == q.Answer
		if ok {
			s.Correct++
		}
		s.Details = append(s.Details, Detail{
			ID:            q.ID,
			Question:      q.Prompt.Display("Question text not available"),
			Answers:       q.Options,
			Picked:        picked,
			CorrectAnswer: q.Answer,
			IsCorrect:     ok,
		})
	}
	s.Score = ScorePercent(s.Correct, s.Total)
	return s
}

func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func Passed(score int) bool { return score >= PassThreshold }

func PassLabel(score int) string {
	if Passed(score) {
		return "Passed"
	}
	return "Failed"
}

// Grade is the display tier for a score.
func Grade(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 60:
		return "average"
	default:
		return "poor"
	}
}

// AllAnswered reports whether every question has a non-empty answer. An
// empty question list is vacuously complete.
func AllAnswered(questions []catalog.Question, answers map[string]string) bool {
	for _, q := range questions {
		if answers[q.ID] == "" {
			return false
		}
	}
	return true
}
