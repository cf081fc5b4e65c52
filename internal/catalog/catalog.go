package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

var ErrTrackNotFound = errors.New("track not found")

const (
	indexFile    = "catalog.json"
	papersDir    = "itpec"
	loadParallel = 4

	defaultLevel   = "Practice"
	defaultSummary = "Additional papers are in development."
)

// Friendly metadata for tracks; catalog.json only carries ids and names.
var trackMeta = map[string]struct {
	name, level, summary string
}{
	"ip": {"IT Passport (IP)", "Beginner", "Perfect starting point covering the core fundamentals of information technology."},
	"fe": {"Fundamental Engineer (FE)", "Intermediate", "Build on your foundation with algorithm, database, and network deep dives."},
	"ap": {"Applied Engineer (AP)", "Advanced", "Challenge yourself with applied scenarios that mirror the actual exam."},
}

type Paper struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Track struct {
	ExamID      string  `json:"examId"`
	ExamTitle   string  `json:"examTitle"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Summary     string  `json:"summary"`
	Level       string  `json:"level"`
	Papers      []Paper `json:"papers"`
}

// Resolution is the outcome of resolving a paper selector for a track.
type Resolution struct {
	Questions       []Question
	PaperIDs        []string
	PaperOptions    []Paper
	ResolvedPaperID string
}

// Catalog serves track metadata and lazily loaded paper files. Successfully
// loaded papers are kept in memory; the files never change at runtime.
type Catalog struct {
	fsys   fs.FS
	tracks []Track

	mu     sync.RWMutex
	papers map[string][]Question
}

type indexJSON struct {
	Exams []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Types []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Years       []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"years"`
		} `json:"types"`
	} `json:"exams"`
}

// Load reads catalog.json from fsys. Paper files are read on demand from
// itpec/<track>/<paper>.json.
func Load(fsys fs.FS) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, indexFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", indexFile, err)
	}
	var idx indexJSON
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("parse %s: %w", indexFile, err)
	}

	c := &Catalog{fsys: fsys, papers: map[string][]Question{}}
	for _, exam := range idx.Exams {
		for _, typ := range exam.Types {
			meta := trackMeta[typ.ID]
			t := Track{
				ExamID:      exam.ID,
				ExamTitle:   exam.Title,
				ID:          typ.ID,
				Name:        firstNonEmpty(meta.name, typ.Name, typ.ID),
				Description: typ.Description,
				Summary:     firstNonEmpty(meta.summary, typ.Description, defaultSummary),
				Level:       firstNonEmpty(meta.level, defaultLevel),
				Papers:      make([]Paper, 0, len(typ.Years)),
			}
			for _, y := range typ.Years {
				t.Papers = append(t.Papers, Paper{ID: y.ID, Label: firstNonEmpty(y.Name, y.ID)})
			}
			c.tracks = append(c.tracks, t)
		}
	}
	return c, nil
}

func (c *Catalog) Tracks() []Track {
	return append([]Track(nil), c.tracks...)
}

func (c *Catalog) Track(id string) (Track, bool) {
	for _, t := range c.tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

func (c *Catalog) PaperOptions(trackID string) []Paper {
	t, ok := c.Track(trackID)
	if !ok {
		return nil
	}
	return append([]Paper(nil), t.Papers...)
}

// IsRandom reports whether selector asks for every paper of a track.
func IsRandom(selector string) bool {
	s := strings.ToLower(strings.TrimSpace(selector))
	return s == "" || s == "random" || s == "all"
}

// PaperLabel is the human label for a selector. papers narrows the lookup to
// the papers actually used; when empty the track's papers are used.
func (c *Catalog) PaperLabel(trackID, selector string, papers []Paper) string {
	if selector == "" {
		return ""
	}
	if len(papers) == 0 {
		papers = c.PaperOptions(trackID)
	}
	if IsRandom(selector) {
		if len(papers) <= 1 {
			if len(papers) == 1 {
				return papers[0].Label
			}
			return "Random selection"
		}
		return fmt.Sprintf("Random mix of %d papers", len(papers))
	}
	for _, p := range papers {
		if strings.EqualFold(p.ID, selector) {
			return p.Label
		}
	}
	return selector
}

// Resolve returns the questions a selector refers to. Random selectors load
// every paper and concatenate them in catalog order; an exact (case
// insensitive) paper id loads that paper; anything else resolves to nothing.
// Papers that fail to load contribute no questions.
func (c *Catalog) Resolve(ctx context.Context, trackID, selector string) Resolution {
	options := c.PaperOptions(trackID)
	res := Resolution{PaperOptions: options}
	if len(options) == 0 {
		return res
	}

	if IsRandom(selector) {
		parts := make([][]Question, len(options))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(loadParallel)
		for i, p := range options {
			i, p := i, p
			g.Go(func() error {
				parts[i] = c.loadPaper(gctx, trackID, p.ID)
				return nil
			})
		}
		_ = g.Wait()

		for i, p := range options {
			res.PaperIDs = append(res.PaperIDs, p.ID)
			res.Questions = append(res.Questions, parts[i]...)
		}
		return res
	}

	for _, p := range options {
		if strings.EqualFold(p.ID, strings.TrimSpace(selector)) {
			res.PaperIDs = []string{p.ID}
			res.ResolvedPaperID = p.ID
			res.Questions = append([]Question(nil), c.loadPaper(ctx, trackID, p.ID)...)
			return res
		}
	}
	return res
}

// QuestionCount totals the questions of every paper in the catalog.
func (c *Catalog) QuestionCount(ctx context.Context) int {
	total := 0
	for _, t := range c.tracks {
		total += len(c.Resolve(ctx, t.ID, "all").Questions)
	}
	return total
}

func (c *Catalog) loadPaper(ctx context.Context, trackID, paperID string) []Question {
	key := trackID + "/" + paperID
	c.mu.RLock()
	qs, ok := c.papers[key]
	c.mu.RUnlock()
	if ok {
		return qs
	}
	if ctx.Err() != nil {
		return nil
	}

	file := path.Join(papersDir, trackID, paperID+".json")
	raw, err := fs.ReadFile(c.fsys, file)
	if err != nil {
		log.Printf("[WARN] catalog: failed to load questions for %s: %v", file, err)
		return nil
	}
	qs, err = DecodePaper(raw)
	if err != nil {
		log.Printf("[WARN] catalog: failed to decode questions for %s: %v", file, err)
		return nil
	}

	c.mu.Lock()
	c.papers[key] = qs
	c.mu.Unlock()
	return qs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
