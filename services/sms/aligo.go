package smssvc

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/sms"
)

// vendor endpoints
const (
	sendPath     = "/send/"
	sendMassPath = "/send_mass/"
	listPath     = "/list/"
	detailPath   = "/sms_list/"
	remainPath   = "/remain/"
	cancelPath   = "/cancel/"
)

type aligoGateway struct {
	client   *rest.Client
	baseURL  string
	key      string
	userID   string
	sender   string
	testMode bool
	logger   core.Logger
}

var _ sms.Gateway = (*aligoGateway)(nil)

// NewAligoGateway returns a sms.Gateway posting to the Aligo API.
func NewAligoGateway(conf core.SMSConfig, logger core.Logger) sms.Gateway {
	return newAligoGateway(conf, &http.Client{Timeout: 15 * time.Second}, logger)
}

func newAligoGateway(conf core.SMSConfig, httpClient *http.Client, logger core.Logger) *aligoGateway {
	return &aligoGateway{
		client:   &rest.Client{HTTPClient: httpClient},
		baseURL:  strings.TrimRight(conf.AligoBaseURL, "/"),
		key:      conf.AligoApiKey,
		userID:   conf.AligoUserID,
		sender:   core.CleanPhone(conf.Sender),
		testMode: conf.TestMode,
		logger:   logger,
	}
}

// vendorResult holds the fields common to every vendor response.
// result_code is a number or a numeric string depending on the endpoint.
type vendorResult struct {
	ResultCode json.RawMessage `json:"result_code"`
	Message    string          `json:"message"`
}

func (r vendorResult) code() (int, error) {
	s := strings.Trim(string(r.ResultCode), `"`)
	return strconv.Atoi(s)
}

// post submits `fields` as multipart/form-data with the credentials and returns the raw response.
func (gw *aligoGateway) post(ctx context.Context, path string, fields map[string]string) (json.RawMessage, error) {
	fields["key"] = gw.key
	fields["user_id"] = gw.userID

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, errors.Wrap(err, "writing form field "+k)
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "closing form")
	}

	resp, err := gw.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: gw.baseURL + path,
		Headers: map[string]string{"Content-Type": w.FormDataContentType()},
		Body:    body.Bytes(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "posting to "+path)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.Wrapf(sms.ErrVendor, "%s: status %d: %s", path, resp.StatusCode, resp.Body)
	}

	raw := json.RawMessage(resp.Body)
	var result vendorResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrapf(sms.ErrVendor, "%s: invalid response %q", path, resp.Body)
	}
	code, err := result.code()
	if err != nil {
		return nil, errors.Wrapf(sms.ErrVendor, "%s: invalid result_code %s", path, result.ResultCode)
	}
	if code < 0 {
		return nil, errors.Wrapf(sms.ErrVendor, "%s: result_code %d: %s", path, code, result.Message)
	}
	gw.logger.Debug("sms: "+path+" ok", map[string]interface{}{"result_code": code})
	return raw, nil
}

func (gw *aligoGateway) sendFields(msgType, title, rdate, rtime string) map[string]string {
	fields := map[string]string{
		"sender":   gw.sender,
		"msg_type": msgType,
	}
	if msgType == sms.TypeLMS && title != "" {
		fields["title"] = title
	}
	if rdate != "" && rtime != "" {
		fields["rdate"] = rdate
		fields["rtime"] = rtime
	}
	if gw.testMode {
		fields["testmode_yn"] = "Y"
	}
	return fields
}

func (gw *aligoGateway) Send(ctx context.Context, msg sms.Message) (json.RawMessage, error) {
	fields := gw.sendFields(msg.MsgType, msg.Title, msg.ReserveDate, msg.ReserveTime)
	fields["receiver"] = strings.Join(msg.Receivers, ",")
	fields["msg"] = msg.Text
	return gw.post(ctx, sendPath, fields)
}

func (gw *aligoGateway) SendMass(ctx context.Context, msg sms.MassMessage) (json.RawMessage, error) {
	if len(msg.Items) > sms.MaxMassItems {
		return nil, errors.Errorf("too many messages: %d > %d", len(msg.Items), sms.MaxMassItems)
	}
	fields := gw.sendFields(msg.MsgType, msg.Title, msg.ReserveDate, msg.ReserveTime)
	fields["cnt"] = strconv.Itoa(len(msg.Items))
	for i, item := range msg.Items {
		n := strconv.Itoa(i + 1)
		fields["rec_"+n] = item.Receiver
		fields["msg_"+n] = item.Text
	}
	return gw.post(ctx, sendMassPath, fields)
}

func (gw *aligoGateway) List(ctx context.Context, filter sms.HistoryFilter) (json.RawMessage, error) {
	fields := map[string]string{}
	if filter.Page > 0 {
		fields["page"] = strconv.Itoa(filter.Page)
	}
	if filter.PageSize > 0 {
		fields["page_size"] = strconv.Itoa(filter.PageSize)
	}
	if filter.StartDate != "" {
		fields["start_date"] = filter.StartDate
	}
	if filter.LimitDay > 0 {
		fields["limit_day"] = strconv.Itoa(filter.LimitDay)
	}
	return gw.post(ctx, listPath, fields)
}

func (gw *aligoGateway) Detail(ctx context.Context, mid string, page, pageSize int) (json.RawMessage, error) {
	fields := map[string]string{"mid": mid}
	if page > 0 {
		fields["page"] = strconv.Itoa(page)
	}
	if pageSize > 0 {
		fields["page_size"] = strconv.Itoa(pageSize)
	}
	return gw.post(ctx, detailPath, fields)
}

func (gw *aligoGateway) Remain(ctx context.Context) (json.RawMessage, error) {
	return gw.post(ctx, remainPath, map[string]string{})
}

func (gw *aligoGateway) Cancel(ctx context.Context, mid string) (json.RawMessage, error) {
	return gw.post(ctx, cancelPath, map[string]string{"mid": mid})
}
