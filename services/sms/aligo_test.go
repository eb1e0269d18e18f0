package smssvc

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/sms"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(msg string, _ ...interface{}) {
	log.Fatal(msg)
}

type received struct {
	path   string
	fields map[string]string
}

func newVendor(t *testing.T, body string, status int) (*httptest.Server, *[]received) {
	var (
		mu   sync.Mutex
		reqs []received
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		fields := make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		mu.Lock()
		reqs = append(reqs, received{path: r.URL.Path, fields: fields})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newTestGateway(srv *httptest.Server) *aligoGateway {
	return newAligoGateway(core.SMSConfig{
		AligoBaseURL: srv.URL + "/",
		AligoApiKey:  "key",
		AligoUserID:  "church",
		Sender:       "010-0000-0000",
		TestMode:     true,
	}, srv.Client(), nopLogger{})
}

func TestAligoSend(t *testing.T) {
	body := `{"result_code":"1","message":"success","msg_id":"123","success_cnt":2,"error_cnt":0,"msg_type":"SMS"}`
	srv, reqs := newVendor(t, body, http.StatusOK)
	gw := newTestGateway(srv)

	resp, err := gw.Send(context.Background(), sms.Message{
		Receivers: []string{"01011112222", "01033334444"},
		Text:      "hello",
		Title:     "ignored for SMS",
		MsgType:   sms.TypeSMS,
	})
	require.NoError(t, err)
	assert.JSONEq(t, body, string(resp)) // passed through verbatim

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "/send/", req.path)
	assert.Equal(t, map[string]string{
		"key":         "key",
		"user_id":     "church",
		"sender":      "01000000000",
		"receiver":    "01011112222,01033334444",
		"msg":         "hello",
		"msg_type":    "SMS",
		"testmode_yn": "Y",
	}, req.fields)
}

func TestAligoSendMass(t *testing.T) {
	srv, reqs := newVendor(t, `{"result_code":"1","message":"success"}`, http.StatusOK)
	gw := newTestGateway(srv)

	_, err := gw.SendMass(context.Background(), sms.MassMessage{
		Items: []sms.MassItem{
			{Receiver: "01011112222", Text: "hi Kim"},
			{Receiver: "01033334444", Text: "hi Lee"},
		},
		Title:   "Retreat",
		MsgType: sms.TypeLMS,
	})
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	fields := (*reqs)[0].fields
	assert.Equal(t, "/send_mass/", (*reqs)[0].path)
	assert.Equal(t, "2", fields["cnt"])
	assert.Equal(t, "01033334444", fields["rec_2"])
	assert.Equal(t, "hi Lee", fields["msg_2"])
	assert.Equal(t, "Retreat", fields["title"])
}

func TestAligoErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "negative result code", body: `{"result_code":-101,"message":"invalid key"}`, status: http.StatusOK},
		{name: "http error", body: `oops`, status: http.StatusBadGateway},
		{name: "not json", body: `<html></html>`, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newVendor(t, tt.body, tt.status)
			gw := newTestGateway(srv)

			_, err := gw.Remain(context.Background())
			require.Error(t, err)
			assert.Equal(t, sms.ErrVendor, errors.Cause(err))
		})
	}
}

func TestAligoCancel(t *testing.T) {
	srv, reqs := newVendor(t, `{"result_code":1,"message":"success","cancel_date":"2024-03-17 10:00:00"}`, http.StatusOK)
	gw := newTestGateway(srv)

	resp, err := gw.Cancel(context.Background(), "123")
	require.NoError(t, err)
	assert.Contains(t, string(resp), "cancel_date")
	assert.Equal(t, "/cancel/", (*reqs)[0].path)
	assert.Equal(t, "123", (*reqs)[0].fields["mid"])
}
