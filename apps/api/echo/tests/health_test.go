package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	. "github.com/sarang-youth/mokjang/apps/api/echo"
)

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		opts       []func(*ServerDeps)
		wantCode   int
		wantStatus string
		wantError  string
	}{
		{name: "ok", wantCode: http.StatusOK, wantStatus: "ok"},
		{
			name:       "database down",
			opts:       []func(*ServerDeps){func(deps *ServerDeps) { deps.DB = downDB{} }},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "error",
			wantError:  "database unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t, tt.opts...)
			rec := env.do(newRequest(http.MethodGet, "/api/health"))
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp map[string]interface{}
			unmarshalBody(t, rec, &resp)
			assert.Equal(t, tt.wantStatus, resp["status"])
			assert.Equal(t, "2021-03-14T03:00:00Z", resp["timestamp"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp["error"])
			} else {
				assert.NotContains(t, resp, "error")
			}
		})
	}
}
