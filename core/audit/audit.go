// Package audit keeps track of logins and data changes.
// Writes are best-effort: a failing write is logged, never returned to the caller.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sarang-youth/mokjang/core"
)

// Actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

type LoginLog struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id"`
	Username  string    `json:"username"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

type ChangeLog struct {
	ID        string          `json:"id"`
	UserID    *string         `json:"user_id"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Detail    json.RawMessage `json:"detail"`
	CreatedAt time.Time       `json:"created_at"`
}

type QueryFilter struct {
	UserID string
	Entity string
	From   core.Date
	To     core.Date // inclusive
	core.Page
}

type Repository interface {
	CreateLoginLog(ctx context.Context, l LoginLog) error
	CreateChangeLog(ctx context.Context, l ChangeLog) error
	// QueryLoginLogs returns the matching logs, newest first. QueryFilter.Entity is ignored.
	QueryLoginLogs(ctx context.Context, filter QueryFilter) ([]LoginLog, error)
	// QueryChangeLogs returns the matching logs, newest first.
	QueryChangeLogs(ctx context.Context, filter QueryFilter) ([]ChangeLog, error)
}

type Recorder struct {
	repo   Repository
	logger core.Logger
}

func NewRecorder(repo Repository, logger core.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

func (rec *Recorder) LogLogin(ctx context.Context, l LoginLog) {
	l.CreatedAt = time.Now().UTC()
	if err := rec.repo.CreateLoginLog(ctx, l); err != nil {
		rec.logger.Error("audit: saving login log: "+err.Error(), err, map[string]interface{}{
			"username": l.Username,
			"success":  l.Success,
		})
	}
}

// LogChange records a data change; `detail` is marshaled to JSON and may be nil.
func (rec *Recorder) LogChange(ctx context.Context, userID, action, entity, entityID string, detail interface{}) {
	l := ChangeLog{
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		CreatedAt: time.Now().UTC(),
	}
	if userID != "" {
		l.UserID = &userID
	}
	if detail != nil {
		data, err := json.Marshal(detail)
		if err != nil {
			rec.logger.Error("audit: marshaling change detail: "+err.Error(), err)
		} else {
			l.Detail = data
		}
	}
	if err := rec.repo.CreateChangeLog(ctx, l); err != nil {
		rec.logger.Error("audit: saving change log: "+err.Error(), err, map[string]interface{}{
			"action":    action,
			"entity":    entity,
			"entity_id": entityID,
		})
	}
}

func (rec *Recorder) LoginLogs(ctx context.Context, filter QueryFilter) ([]LoginLog, error) {
	filter.Clean()
	return rec.repo.QueryLoginLogs(ctx, filter)
}

func (rec *Recorder) ChangeLogs(ctx context.Context, filter QueryFilter) ([]ChangeLog, error) {
	filter.Clean()
	return rec.repo.QueryChangeLogs(ctx, filter)
}
