package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/sarang-youth/mokjang/apps/api/echo"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/mokjang"
	testutil "github.com/sarang-youth/mokjang/tests"
)

type failingAuditRepo struct{}

var errAuditDown = errors.New("audit store down")

func (failingAuditRepo) CreateLoginLog(context.Context, audit.LoginLog) error   { return errAuditDown }
func (failingAuditRepo) CreateChangeLog(context.Context, audit.ChangeLog) error { return errAuditDown }
func (failingAuditRepo) QueryLoginLogs(context.Context, audit.QueryFilter) ([]audit.LoginLog, error) {
	return nil, errAuditDown
}
func (failingAuditRepo) QueryChangeLogs(context.Context, audit.QueryFilter) ([]audit.ChangeLog, error) {
	return nil, errAuditDown
}

func TestAuditFailureDoesNotFailRequests(t *testing.T) {
	env := setup(t, func(deps *ServerDeps) {
		deps.Audit = audit.NewRecorder(failingAuditRepo{}, deps.Logger)
	})
	admin := env.createAdmin(t)

	rec := env.do(newRequest(http.MethodPost, "/api/auth/login",
		marshalObj(t, LoginRequest{Username: admin.Username, Password: testutil.Password})))
	assert.Equal(t, http.StatusOK, rec.Code)

	session := env.sessionFor(t, admin)
	rec = env.do(newAuthRequest(http.MethodPost, "/api/mokjangs", session, marshalObj(t, mokjang.NewMokjang{Name: "Joshua"})))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created mokjang.Mokjang
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	mokjangs, err := env.mokjangSvc.Query(context.Background(), mokjang.QueryFilter{})
	require.NoError(t, err)
	if assert.Len(t, mokjangs, 1) {
		assert.Equal(t, created.ID, mokjangs[0].ID)
		assert.Equal(t, "Joshua", mokjangs[0].Name)
	}
}

func TestChangeLogs(t *testing.T) {
	env := setup(t)
	admin := env.createAdmin(t)
	session := env.sessionFor(t, admin)

	rec := env.do(newAuthRequest(http.MethodPost, "/api/mokjangs", session, marshalObj(t, mokjang.NewMokjang{Name: "Joshua"})))
	require.Equal(t, http.StatusCreated, rec.Code)
	var mkj mokjang.Mokjang
	unmarshalBody(t, rec, &mkj)

	rec = env.do(newAuthRequest(http.MethodPut, "/api/mokjangs/"+mkj.ID, session, []byte(`{"target_grade":"1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(newAuthRequest(http.MethodGet, "/api/admin/logs/changes?entity=mokjang", session))
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []audit.ChangeLog
	unmarshalBody(t, rec, &logs)
	require.Len(t, logs, 2)

	actions := []string{logs[0].Action, logs[1].Action}
	assert.ElementsMatch(t, []string{audit.ActionCreate, audit.ActionUpdate}, actions)
	for _, l := range logs {
		assert.Equal(t, mkj.ID, l.EntityID)
		if assert.NotNil(t, l.UserID) {
			assert.Equal(t, admin.UserID, *l.UserID)
		}
	}
	var detail map[string]interface{}
	for _, l := range logs {
		if l.Action == audit.ActionCreate {
			require.NoError(t, json.Unmarshal(l.Detail, &detail))
		}
	}
	assert.Equal(t, "Joshua", detail["name"])

	t.Run("paging", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/api/admin/logs/changes?entity=mokjang&page=2&page_size=1", session))
		require.Equal(t, http.StatusOK, rec.Code)
		var page []audit.ChangeLog
		unmarshalBody(t, rec, &page)
		assert.Len(t, page, 1)
	})

	t.Run("bad date", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/api/admin/logs/login?from=yesterday", session))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
