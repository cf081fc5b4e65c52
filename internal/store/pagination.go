package store

import "math"

// Options bound the page sizes a listing accepts.
type Options struct {
	DefaultPerPage int
	MaxPerPage     int
}

var (
	DefaultOpts = Options{DefaultPerPage: 20, MaxPerPage: 100}
	AdminOpts   = Options{DefaultPerPage: 25, MaxPerPage: 200}
)

type Params struct {
	Page    int
	PerPage int
}

// NewParams normalizes a requested page and page size.
func NewParams(page, perPage int, opt Options) Params {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = opt.DefaultPerPage
	}
	if perPage > opt.MaxPerPage {
		perPage = opt.MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

func (p Params) Limit() int  { return p.PerPage }
func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }

type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func BuildMeta(total int64, p Params) Meta {
	totalPages := 0
	if total > 0 && p.PerPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(p.PerPage)))
	}
	return Meta{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    p.Page > 1,
		HasNext:    totalPages > 0 && p.Page < totalPages,
	}
}
