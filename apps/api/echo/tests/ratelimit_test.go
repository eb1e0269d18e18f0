package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/sarang-youth/mokjang/apps/api/echo"
	"github.com/sarang-youth/mokjang/services/ratelimit"
)

func TestLoginRateLimit(t *testing.T) {
	limiter := ratelimit.New(time.Minute, 2)
	defer limiter.Close()

	env := setup(t, func(deps *ServerDeps) {
		deps.Limiters.Login = limiter
	})
	body := marshalObj(t, LoginRequest{Username: "nobody", Password: "whatever"})

	for i := 0; i < 2; i++ {
		rec := env.do(newRequest(http.MethodPost, "/api/auth/login", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	env.clock.Advance(20 * time.Second)
	rec := env.do(newRequest(http.MethodPost, "/api/auth/login", body))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusTooManyRequests,
		wantData: marshalObj(t, httpErr{Error: "too many requests"}),
	}, rec)
	assert.Equal(t, "40", rec.Header().Get("Retry-After"))

	// another client is not limited
	req := newRequest(http.MethodPost, "/api/auth/login", body)
	req.Header.Set("X-Real-IP", "10.0.0.7")
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)

	env.clock.Advance(41 * time.Second)
	rec = env.do(newRequest(http.MethodPost, "/api/auth/login", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSMSRateLimitIsPerUser(t *testing.T) {
	limiter := ratelimit.New(time.Minute, 1)
	defer limiter.Close()

	env := setup(t, func(deps *ServerDeps) {
		deps.Limiters.SMS = limiter
	})
	admin := env.createAdmin(t)
	session := env.sessionFor(t, admin)

	rec := env.do(newAuthRequest(http.MethodGet, "/api/sms/remain", session))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(newAuthRequest(http.MethodGet, "/api/sms/remain", session))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
