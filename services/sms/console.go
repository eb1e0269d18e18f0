package smssvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/sms"
)

var (
	// SentMessages holds every message "sent" by a console gateway, one per receiver.
	SentMessages = make([]sms.MassItem, 0)
	mu           sync.Mutex
)

func ClearSentMessages() {
	mu.Lock()
	SentMessages = make([]sms.MassItem, 0)
	mu.Unlock()
}

func GetSentMessages() []sms.MassItem {
	mu.Lock()
	defer mu.Unlock()
	return append([]sms.MassItem(nil), SentMessages...)
}

type consoleGateway struct {
	logger core.Logger
	nextID int
}

var _ sms.Gateway = (*consoleGateway)(nil)

// NewConsoleGateway logs the messages instead of sending them; used in debug mode and tests.
func NewConsoleGateway(logger core.Logger) sms.Gateway {
	return &consoleGateway{logger: logger, nextID: 1000}
}

func (gw *consoleGateway) record(msgType string, items []sms.MassItem) json.RawMessage {
	mu.Lock()
	SentMessages = append(SentMessages, items...)
	gw.nextID++
	mid := gw.nextID
	mu.Unlock()

	for _, item := range items {
		gw.logger.Info(fmt.Sprintf("sms [%s] to %s: %s", msgType, item.Receiver, item.Text))
	}
	return json.RawMessage(fmt.Sprintf(
		`{"result_code":"1","message":"success","msg_id":"%d","success_cnt":%d,"error_cnt":0,"msg_type":%q}`,
		mid, len(items), msgType,
	))
}

func (gw *consoleGateway) Send(_ context.Context, msg sms.Message) (json.RawMessage, error) {
	items := make([]sms.MassItem, len(msg.Receivers))
	for i, rcv := range msg.Receivers {
		items[i] = sms.MassItem{Receiver: rcv, Text: msg.Text}
	}
	return gw.record(msg.MsgType, items), nil
}

func (gw *consoleGateway) SendMass(_ context.Context, msg sms.MassMessage) (json.RawMessage, error) {
	return gw.record(msg.MsgType, msg.Items), nil
}

func (gw *consoleGateway) List(context.Context, sms.HistoryFilter) (json.RawMessage, error) {
	return json.RawMessage(`{"result_code":1,"message":"success","list":[],"next_yn":"N"}`), nil
}

func (gw *consoleGateway) Detail(_ context.Context, mid string, _, _ int) (json.RawMessage, error) {
	return json.RawMessage(`{"result_code":1,"message":"success","mid":` + strconv.Quote(mid) + `,"list":[]}`), nil
}

func (gw *consoleGateway) Remain(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"result_code":1,"message":"success","SMS_CNT":9999,"LMS_CNT":9999,"MMS_CNT":9999}`), nil
}

func (gw *consoleGateway) Cancel(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{"result_code":1,"message":"success","cancel_date":""}`), nil
}
