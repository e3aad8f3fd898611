package domain

import (
	"strings"
	"time"
)

// TokenType tags which credential a session row was issued for.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Session is a server-side record that must stay active for its token to be honored.
// Rows are never deleted; revocation flips Active to false.
type Session struct {
	ID        string
	UserID    string
	Token     string // signed token issued for this session
	TokenType TokenType
	IP        string
	OS        string
	Device    string
	Browser   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter narrows a session listing by substring on client metadata. Empty fields match everything.
type Filter struct {
	IP      string
	OS      string
	Device  string
	Browser string
}

// Matches reports whether s satisfies every non-empty field of f.
func (f Filter) Matches(s *Session) bool {
	return strings.Contains(s.IP, f.IP) &&
		strings.Contains(s.OS, f.OS) &&
		strings.Contains(s.Device, f.Device) &&
		strings.Contains(s.Browser, f.Browser)
}

// Page is one page of a session listing, newest first.
type Page struct {
	Items           []*Session
	TotalItems      int64
	TotalPages      int64
	Page            int
	PerPage         int
	HasPreviousPage bool
	HasNextPage     bool
}

// NewPage builds page metadata for items at 1-based page of size perPage out of total rows.
func NewPage(items []*Session, total int64, page, perPage int) *Page {
	var pages int64
	if perPage > 0 {
		pages = (total + int64(perPage) - 1) / int64(perPage)
	}
	if items == nil {
		items = []*Session{}
	}
	return &Page{
		Items:           items,
		TotalItems:      total,
		TotalPages:      pages,
		Page:            page,
		PerPage:         perPage,
		HasPreviousPage: page > 1,
		HasNextPage:     int64(page) < pages,
	}
}
