package handler

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/meisaku0/backend/internal/identity/service"
	"github.com/meisaku0/backend/internal/session/domain"
)

const defaultPerPage = 10

// ListQuery is the query string of GET /user/sessions.
type ListQuery struct {
	Page    int    `form:"page" json:"page"`
	PerPage int    `form:"per_page" json:"per_page"`
	IP      string `form:"ip" json:"ip"`
	OS      string `form:"os" json:"os"`
	Device  string `form:"device" json:"device"`
	Browser string `form:"browser" json:"browser"`
}

func (q ListQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Page, validation.Required, validation.Min(1), validation.Max(service.MaxPerPage)),
		validation.Field(&q.PerPage, validation.Required, validation.Min(1), validation.Max(service.MaxPerPage)),
	)
}

func (q ListQuery) filter() domain.Filter {
	return domain.Filter{IP: q.IP, OS: q.OS, Device: q.Device, Browser: q.Browser}
}

// SessionItem is one session in a listing.
type SessionItem struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	OS        string    `json:"os"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"created_at"`
}

// PageResponse is the body of GET /user/sessions.
type PageResponse struct {
	Items           []SessionItem `json:"items"`
	TotalItems      int64         `json:"total_items"`
	TotalPages      int64         `json:"total_pages"`
	Page            int           `json:"page"`
	PerPage         int           `json:"per_page"`
	HasPreviousPage bool          `json:"has_previous_page"`
	HasNextPage     bool          `json:"has_next_page"`
}

func toPageResponse(p *domain.Page, currentSessionID string) PageResponse {
	items := make([]SessionItem, 0, len(p.Items))
	for _, s := range p.Items {
		items = append(items, SessionItem{
			ID:        s.ID,
			IP:        s.IP,
			OS:        s.OS,
			Device:    s.Device,
			Browser:   s.Browser,
			Current:   s.ID == currentSessionID,
			CreatedAt: s.CreatedAt,
		})
	}
	return PageResponse{
		Items:           items,
		TotalItems:      p.TotalItems,
		TotalPages:      p.TotalPages,
		Page:            p.Page,
		PerPage:         p.PerPage,
		HasPreviousPage: p.HasPreviousPage,
		HasNextPage:     p.HasNextPage,
	}
}
