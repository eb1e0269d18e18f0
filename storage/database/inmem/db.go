// Package inmemdb implements the repositories in memory. It backs the API tests.
package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/attendance"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/memo"
	"github.com/sarang-youth/mokjang/core/ministry"
	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/observation"
	"github.com/sarang-youth/mokjang/core/report"
	"github.com/sarang-youth/mokjang/core/student"
	"github.com/sarang-youth/mokjang/core/teacher"
	"github.com/sarang-youth/mokjang/core/user"
)

// DB holds every table behind a single lock.
type DB struct {
	mu sync.RWMutex

	users        map[string]*user.User
	teachers     map[string]*teacher.Teacher
	mokjangs     map[string]*mokjang.Mokjang
	students     map[string]*student.Student
	attendance   map[attendanceKey]*attendance.Log
	reports      map[string]*report.Report
	observations map[string]*observation.Observation
	memos        map[string]*memo.Memo
	ministries   map[string]*ministry.Ministry
	loginLogs    []audit.LoginLog
	changeLogs   []audit.ChangeLog

	// link tables: owner id -> member ids
	mokjangTeachers  map[string][]string
	ministryTeachers map[string][]string
	ministryStudents map[string][]string
}

type attendanceKey struct {
	studentID string
	date      string
}

func Open() *DB {
	return &DB{
		users:            make(map[string]*user.User),
		teachers:         make(map[string]*teacher.Teacher),
		mokjangs:         make(map[string]*mokjang.Mokjang),
		students:         make(map[string]*student.Student),
		attendance:       make(map[attendanceKey]*attendance.Log),
		reports:          make(map[string]*report.Report),
		observations:     make(map[string]*observation.Observation),
		memos:            make(map[string]*memo.Memo),
		ministries:       make(map[string]*ministry.Ministry),
		mokjangTeachers:  make(map[string][]string),
		ministryTeachers: make(map[string][]string),
		ministryStudents: make(map[string][]string),
	}
}

// PingContext always succeeds; it lets the DB stand in for a core.Pinger.
func (db *DB) PingContext(context.Context) error {
	return nil
}

func newID() string {
	return uuid.New().String()
}

// owners returns the sorted owners whose links contain memberID.
func owners(links map[string][]string, memberID string) []string {
	ids := make([]string, 0)
	for owner, members := range links {
		if core.ContainsString(members, memberID) {
			ids = append(ids, owner)
		}
	}
	sort.Strings(ids)
	return ids
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}

// unlink removes memberID from every owner's links.
func unlink(links map[string][]string, memberID string) {
	for owner, members := range links {
		kept := members[:0]
		for _, id := range members {
			if id != memberID {
				kept = append(kept, id)
			}
		}
		links[owner] = kept
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inRange(d, from, to core.Date) bool {
	if !from.IsZero() && d.Before(from.Time) {
		return false
	}
	if !to.IsZero() && d.After(to.Time) {
		return false
	}
	return true
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
