package report

import (
	"time"

	"github.com/sarang-youth/mokjang/core"
)

// Report is the weekly report of a mokjang; there is at most one per (MokjangID, Date).
type Report struct {
	ID             string    `json:"id"`
	MokjangID      string    `json:"mokjang_id"`
	Date           core.Date `json:"date"`
	Content        string    `json:"content"`
	PrayerRequests string    `json:"prayer_requests"`
	Suggestions    string    `json:"suggestions"`
	AuthorID       *string   `json:"author_id"` // teacher id
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type SaveReport struct {
	MokjangID      string    `json:"mokjang_id" validate:"required,uuid"`
	Date           core.Date `json:"date" validate:"required"`
	Content        string    `json:"content" validate:"required,notblank"`
	PrayerRequests string    `json:"prayer_requests"`
	Suggestions    string    `json:"suggestions"`
}

func (sr *SaveReport) Clean() {
	sr.MokjangID = core.CleanString(sr.MokjangID)
	sr.Content = core.CleanString(sr.Content)
	sr.PrayerRequests = core.CleanString(sr.PrayerRequests)
	sr.Suggestions = core.CleanString(sr.Suggestions)
}

type QueryFilter struct {
	MokjangID  string
	MokjangIDs []string // nil: any
	From       core.Date
	To         core.Date
}

// submittedEmailData is rendered by the report_submitted email templates.
type submittedEmailData struct {
	ReportID       string
	MokjangName    string
	Date           string
	AuthorName     string
	Content        string
	PrayerRequests string
	Suggestions    string
}
