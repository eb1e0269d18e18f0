package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/student"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeGateway struct {
	sent []Message
	mass []MassMessage
}

var okResp = json.RawMessage(`{"result_code":"1"}`)

func (gw *fakeGateway) Send(_ context.Context, msg Message) (json.RawMessage, error) {
	gw.sent = append(gw.sent, msg)
	return okResp, nil
}

func (gw *fakeGateway) SendMass(_ context.Context, msg MassMessage) (json.RawMessage, error) {
	gw.mass = append(gw.mass, msg)
	return okResp, nil
}

func (gw *fakeGateway) List(context.Context, HistoryFilter) (json.RawMessage, error) { return okResp, nil }
func (gw *fakeGateway) Detail(context.Context, string, int, int) (json.RawMessage, error) {
	return okResp, nil
}
func (gw *fakeGateway) Remain(context.Context) (json.RawMessage, error)         { return okResp, nil }
func (gw *fakeGateway) Cancel(context.Context, string) (json.RawMessage, error) { return okResp, nil }

type fakeStudents []student.Student

func (fs fakeStudents) Query(_ context.Context, filter student.QueryFilter, _ ...core.DBOrdering) ([]student.Student, error) {
	var out []student.Student
	for _, s := range fs {
		if core.ContainsString(filter.IDs, s.ID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func newStudents(n int) fakeStudents {
	students := make(fakeStudents, n)
	for i := range students {
		students[i] = student.Student{
			ID:          uuid.New().String(),
			Name:        fmt.Sprintf("Student %d", i),
			ParentPhone: fmt.Sprintf("010-%04d-%04d", i/10000, i%10000),
		}
	}
	return students
}

func studentIDs(students fakeStudents) []string {
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	return ids
}

func newTestService(students fakeStudents) (*Service, *fakeGateway) {
	validate, _ := core.NewValidator()
	gw := new(fakeGateway)
	return NewService(gw, students, validate, nopLogger{}), gw
}

// fieldErrors maps the failed JSON fields of `err` to their tags or messages.
func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	got := make(map[string]string)
	switch e := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			got[fe.Field()] = fe.Tag()
		}
	case *core.ValidationError:
		for _, fe := range e.Fields {
			got[fe.Field] = fe.Error
		}
	default:
		t.Fatalf("unexpected error: %v", err)
	}
	return got
}

func TestSendReservation(t *testing.T) {
	tests := []struct {
		name    string
		rdate   string
		rtime   string
		wantErr map[string]string
	}{
		{name: "not reserved"},
		{name: "reserved", rdate: "20261025", rtime: "1030"},
		{name: "time only", rtime: "1030", wantErr: map[string]string{"rdate": "required_with"}},
		{name: "date only", rdate: "20261025", wantErr: map[string]string{"rtime": "required_with"}},
		{name: "invalid month", rdate: "20261399", rtime: "1030", wantErr: map[string]string{"rdate": "datetime"}},
		{name: "invalid time", rdate: "20261025", rtime: "9999", wantErr: map[string]string{"rtime": "datetime"}},
		{name: "both invalid", rdate: "2026-10-25", rtime: "10:30", wantErr: map[string]string{"rdate": "datetime", "rtime": "datetime"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, gw := newTestService(nil)
			_, err := svc.Send(context.Background(), SendRequest{
				Receivers:   []string{"010-1234-5678"},
				Message:     "Retreat bus leaves at 7.",
				ReserveDate: tt.rdate,
				ReserveTime: tt.rtime,
			})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, fieldErrors(t, err))
				assert.Empty(t, gw.sent, "nothing must be sent")
				return
			}
			require.NoError(t, err)
			require.Len(t, gw.sent, 1)
			assert.Equal(t, tt.rdate, gw.sent[0].ReserveDate)
			assert.Equal(t, tt.rtime, gw.sent[0].ReserveTime)
		})
	}
}

func TestSendPersonalized(t *testing.T) {
	students := newStudents(MaxMassItems + 1)

	t.Run("names substituted", func(t *testing.T) {
		svc, gw := newTestService(students)
		_, err := svc.Send(context.Background(), SendRequest{
			StudentIDs: studentIDs(students[:2]),
			Message:    "{name}, see you on Sunday!",
		})
		require.NoError(t, err)
		require.Len(t, gw.mass, 1)
		texts := []string{gw.mass[0].Items[0].Text, gw.mass[0].Items[1].Text}
		assert.ElementsMatch(t, []string{"Student 0, see you on Sunday!", "Student 1, see you on Sunday!"}, texts)
	})

	t.Run("direct receivers", func(t *testing.T) {
		svc, gw := newTestService(students)
		_, err := svc.Send(context.Background(), SendRequest{
			Receivers:  []string{"010-1234-5678"},
			StudentIDs: studentIDs(students[:1]),
			Message:    "{name}, see you on Sunday!",
		})
		require.Error(t, err)
		assert.Equal(t, map[string]string{"message": "{name} can only be sent to students"}, fieldErrors(t, err))
		assert.Empty(t, gw.mass)
	})

	t.Run("vendor limit", func(t *testing.T) {
		svc, gw := newTestService(students)
		_, err := svc.Send(context.Background(), SendRequest{
			StudentIDs: studentIDs(students),
			Message:    "{name}, see you on Sunday!",
		})
		require.Error(t, err)
		assert.Equal(t,
			map[string]string{"student_ids": fmt.Sprintf("personalized messages are limited to %d recipients", MaxMassItems)},
			fieldErrors(t, err))
		assert.Empty(t, gw.mass)
	})

	t.Run("at vendor limit", func(t *testing.T) {
		svc, gw := newTestService(students)
		_, err := svc.Send(context.Background(), SendRequest{
			StudentIDs: studentIDs(students[:MaxMassItems]),
			Message:    "{name}, see you on Sunday!",
		})
		require.NoError(t, err)
		require.Len(t, gw.mass, 1)
		assert.Len(t, gw.mass[0].Items, MaxMassItems)
	})

	t.Run("plain message to many", func(t *testing.T) {
		svc, gw := newTestService(students)
		_, err := svc.Send(context.Background(), SendRequest{
			StudentIDs: studentIDs(students),
			Message:    "See you on Sunday!",
		})
		require.NoError(t, err)
		require.Len(t, gw.sent, 1)
		assert.Len(t, gw.sent[0].Receivers, MaxMassItems+1)
	})
}
