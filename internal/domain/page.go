package domain

import "math"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPage 保证 (page-1)*limit 不溢出
	MaxPage = math.MaxInt / MaxPageLimit
)

type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPage 非法值回落到默认
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page > MaxPage {
		page = MaxPage
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func (p Page) Paginate(total int64) Pagination {
	l := int64(p.Limit)
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: (total + l - 1) / l}
}
