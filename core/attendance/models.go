package attendance

import (
	"time"

	"github.com/sarang-youth/mokjang/core"
)

// Statuses
const (
	StatusAttended = "attended"
	StatusLate     = "late"
	StatusAbsent   = "absent"
	StatusExcused  = "excused"
)

var (
	AllStatuses = []string{StatusAttended, StatusLate, StatusAbsent, StatusExcused}

	// PresentStatuses count as having been to church.
	PresentStatuses = []string{StatusAttended, StatusLate}
)

// Log is the attendance of one student on one date. There is at most one Log per (StudentID, Date).
type Log struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Date      core.Date `json:"date"`
	Status    string    `json:"status"`
	Memo      string    `json:"memo"`
	CheckedBy *string   `json:"checked_by"` // teacher id
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Entry struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	Status    string `json:"status" validate:"required,oneof=attended late absent excused"`
	Memo      string `json:"memo"`
}

// SaveAttendance records the attendance of several students on one date.
type SaveAttendance struct {
	Date    core.Date `json:"date" validate:"required"`
	Entries []Entry   `json:"entries" validate:"required,min=1,dive"`
}

func (sa *SaveAttendance) Clean() {
	seen := make(map[string]int, len(sa.Entries))
	entries := make([]Entry, 0, len(sa.Entries))
	for _, e := range sa.Entries {
		e.StudentID = core.CleanString(e.StudentID)
		e.Status = core.CleanString(e.Status, true /* lower */)
		e.Memo = core.CleanString(e.Memo)
		// the last entry of a student wins
		if idx, ok := seen[e.StudentID]; ok {
			entries[idx] = e
			continue
		}
		seen[e.StudentID] = len(entries)
		entries = append(entries, e)
	}
	sa.Entries = entries
}

func (sa SaveAttendance) StudentIDs() []string {
	ids := make([]string, len(sa.Entries))
	for i, e := range sa.Entries {
		ids[i] = e.StudentID
	}
	return ids
}

// RosterEntry is a student with their attendance on a date; Status is empty when not checked yet.
type RosterEntry struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Grade       string  `json:"grade"`
	MokjangID   *string `json:"mokjang_id"`
	Status      string  `json:"status"`
	Memo        string  `json:"memo"`
}

type QueryFilter struct {
	StudentID  string
	StudentIDs []string
	Date       core.Date
	From       core.Date
	To         core.Date
}

// DailyCount is the number of logs per status on a date.
type DailyCount struct {
	Date     core.Date `json:"date" boil:"date"`
	Attended int       `json:"attended" boil:"attended"`
	Late     int       `json:"late" boil:"late"`
	Absent   int       `json:"absent" boil:"absent"`
	Excused  int       `json:"excused" boil:"excused"`
}

type StatsFilter struct {
	From      core.Date
	To        core.Date
	MokjangID string
}
