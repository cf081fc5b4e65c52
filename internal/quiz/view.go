package quiz

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vmxio.com/itpec-quiz/internal/catalog"
)

const (
	missingPrompt = "Question text not available"
	missingOption = "Option text not available"
	notAnswered   = "—"
	scoreNA       = "N/A"
)

// Labeler supplies display names for tracks and papers.
type Labeler interface {
	Track(id string) (catalog.Track, bool)
	PaperLabel(trackID, selector string, papers []catalog.Paper) string
}

type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type PlayQuestion struct {
	Number  int          `json:"number"`
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Options []OptionView `json:"options"`
	Session string       `json:"session,omitempty"`
}

// PlayView is what a player sees while answering. It never carries answer
// keys or explanations.
type PlayView struct {
	Code       string            `json:"code"`
	Track      string            `json:"track"`
	TrackName  string            `json:"trackName"`
	Paper      string            `json:"paper"`
	PaperLabel string            `json:"paperLabel"`
	Sitting    string            `json:"session"`
	Requested  int               `json:"requested"`
	Total      int               `json:"total"`
	Answered   int               `json:"answered"`
	Answers    map[string]string `json:"answers"`
	Status     string            `json:"status"`
	Finished   bool              `json:"finished"`
	Questions  []PlayQuestion    `json:"questions"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type ResultRow struct {
	Number       int          `json:"number"`
	ID           string       `json:"id"`
	Prompt       string       `json:"prompt"`
	Options      []OptionView `json:"options"`
	Selected     string       `json:"selected"`
	SelectedText string       `json:"selectedText"`
	Correct      string       `json:"correct"`
	CorrectText  string       `json:"correctText"`
	IsCorrect    bool         `json:"isCorrect"`
	Explanation  string       `json:"explanation,omitempty"`
}

type ResultView struct {
	ID         uint            `json:"id"`
	Code       string          `json:"code"`
	Track      string          `json:"track"`
	TrackName  string          `json:"trackName"`
	Paper      string          `json:"paper"`
	PaperLabel string          `json:"paperLabel"`
	Score      string          `json:"score"`
	ScoreValue *int            `json:"scoreValue"`
	Correct    int             `json:"correct"`
	Total      int             `json:"total"`
	Requested  int             `json:"requested"`
	Papers     []catalog.Paper `json:"papers"`
	Passed     bool            `json:"passed"`
	PassLabel  string          `json:"passLabel,omitempty"`
	Grade      string          `json:"grade,omitempty"`
	TimeSpent  int             `json:"timeSpent"`
	Duration   string          `json:"duration"`
	Finished   bool            `json:"finished"`
	CreatedAt  time.Time       `json:"createdAt"`
	Questions  []ResultRow     `json:"questions"`
}

func optionViews(opts []catalog.Option) []OptionView {
	out := make([]OptionView, 0, len(opts))
	for _, o := range opts {
		out = append(out, OptionView{ID: o.ID, Text: o.Text.Display(missingOption)})
	}
	return out
}

func optionText(opts []catalog.Option, id string) string {
	if id == "" {
		return notAnswered
	}
	for _, o := range opts {
		if o.ID == id {
			return o.Text.Display(missingOption)
		}
	}
	return missingOption
}

func labels(l Labeler, s *Session) (trackName, paperLabel string, papers []catalog.Paper) {
	trackName = s.Track
	if t, ok := l.Track(s.Track); ok {
		trackName = t.Name
		for _, id := range s.Papers {
			for _, p := range t.Papers {
				if p.ID == id {
					papers = append(papers, p)
				}
			}
		}
	}
	paperLabel = l.PaperLabel(s.Track, s.Paper, papers)
	return trackName, paperLabel, papers
}

func NewPlayView(l Labeler, s *Session) PlayView {
	trackName, paperLabel, _ := labels(l, s)
	v := PlayView{
		Code:       s.Code,
		Track:      s.Track,
		TrackName:  trackName,
		Paper:      s.Paper,
		PaperLabel: paperLabel,
		Sitting:    s.Sitting,
		Requested:  s.Requested,
		Total:      len(s.Questions),
		Answered:   len(s.Answers),
		Answers:    s.Answers,
		Status:     s.Status(),
		Finished:   s.Finished,
		Questions:  make([]PlayQuestion, 0, len(s.Questions)),
		CreatedAt:  s.CreatedAt,
	}
	if v.Answers == nil {
		v.Answers = map[string]string{}
	}
	for i, q := range s.Questions {
		v.Questions = append(v.Questions, PlayQuestion{
			Number:  i + 1,
			ID:      q.ID,
			Prompt:  q.Prompt.Display(missingPrompt),
			Options: optionViews(q.Options),
			Session: q.Session,
		})
	}
	return v
}

// NewResultView renders a stored session for review. Missing or malformed
// content is replaced with placeholders; a session without a summary shows
// its score as N/A.
func NewResultView(l Labeler, s *Session) ResultView {
	trackName, paperLabel, papers := labels(l, s)
	v := ResultView{
		ID:         s.ID,
		Code:       s.Code,
		Track:      s.Track,
		TrackName:  trackName,
		Paper:      s.Paper,
		PaperLabel: paperLabel,
		Score:      scoreNA,
		Total:      len(s.Questions),
		Requested:  s.Requested,
		Papers:     papers,
		TimeSpent:  s.TimeSpent,
		Duration:   FormatDuration(s.TimeSpent),
		Finished:   s.Finished,
		CreatedAt:  s.CreatedAt,
		Questions:  make([]ResultRow, 0, len(s.Questions)),
	}
	if v.Papers == nil {
		v.Papers = []catalog.Paper{}
	}

	for i, q := range s.Questions {
		picked := s.Answers[q.ID]
		row := ResultRow{
			Number:       i + 1,
			ID:           q.ID,
			Prompt:       q.Prompt.Display(missingPrompt),
			Options:      optionViews(q.Options),
			Selected:     picked,
			SelectedText: optionText(q.Options, picked),
			Correct:      q.Answer,
			CorrectText:  optionText(q.Options, q.Answer),
			IsCorrect:    picked != "" && picked == q.Answer,
		}
		if picked == "" {
			row.Selected = notAnswered
		}
		if q.Explanation != nil {
			row.Explanation = q.Explanation.Display("")
		}
		v.Questions = append(v.Questions, row)
	}

	if s.Summary != nil {
		score := s.Summary.Score
		v.ScoreValue = &score
		v.Score = strconv.Itoa(score)
		v.Correct = s.Summary.Correct
		v.Total = s.Summary.Total
		v.Passed = Passed(score)
		v.PassLabel = PassLabel(score)
		v.Grade = Grade(score)
	} else {
		for _, row := range v.Questions {
			if row.IsCorrect {
				v.Correct++
			}
		}
	}
	return v
}

// FormatDuration renders seconds as "Xm Ys", or "0m" for zero.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0m"
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// FormatStudyTime renders a longer total as "Xh Ym" or "Ym".
func FormatStudyTime(seconds int) string {
	if seconds <= 0 {
		return "0m"
	}
	h, m := seconds/3600, (seconds%3600)/60
	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%dh ", h)
	}
	fmt.Fprintf(&b, "%dm", m)
	return b.String()
}
