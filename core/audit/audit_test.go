package audit

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepo struct{}

func (failingRepo) CreateLoginLog(context.Context, LoginLog) error   { return errors.New("db down") }
func (failingRepo) CreateChangeLog(context.Context, ChangeLog) error { return errors.New("db down") }
func (failingRepo) QueryLoginLogs(context.Context, QueryFilter) ([]LoginLog, error) {
	return nil, errors.New("db down")
}
func (failingRepo) QueryChangeLogs(context.Context, QueryFilter) ([]ChangeLog, error) {
	return nil, errors.New("db down")
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func TestRecorderSwallowsErrors(t *testing.T) {
	logger := &recordingLogger{}
	rec := NewRecorder(failingRepo{}, logger)

	assert.NotPanics(t, func() {
		rec.LogLogin(context.Background(), LoginLog{Username: "kim"})
		rec.LogChange(context.Background(), "u1", ActionCreate, "student", "s1", map[string]string{"name": "Lee"})
	})
	require.Len(t, logger.errors, 2)
	assert.Contains(t, logger.errors[0], "login log")
	assert.Contains(t, logger.errors[1], "change log")
}
