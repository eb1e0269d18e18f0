package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/student"
)

var (
	// ErrVendor is wrapped by gateways when the vendor reports a failure.
	ErrVendor = errors.New("sms vendor error")

	// ErrSendFailed and ErrUnavailable are the only gateway errors surfaced to clients.
	ErrSendFailed  = errors.New("failed to send SMS")
	ErrUnavailable = errors.New("SMS service unavailable")
)

// Targets of a student recipient
const (
	TargetStudent = "student"
	TargetParent  = "parent"
	TargetBoth    = "both"
)

// NamePlaceholder is replaced by each student's name; such messages are sent one per recipient.
const NamePlaceholder = "{name}"

// MaxMassItems is the vendor limit of personalized messages per send.
const MaxMassItems = 500

// Message is sent as-is to all its receivers.
type Message struct {
	Receivers   []string
	Text        string
	Title       string // LMS only
	MsgType     string
	ReserveDate string // YYYYMMDD
	ReserveTime string // HHMM
}

type MassItem struct {
	Receiver string
	Text     string
}

// MassMessage carries a different text per receiver.
type MassMessage struct {
	Items       []MassItem
	Title       string
	MsgType     string
	ReserveDate string
	ReserveTime string
}

type HistoryFilter struct {
	Page      int
	PageSize  int
	StartDate string // YYYYMMDD
	LimitDay  int
}

// Gateway talks to the SMS vendor. Vendor responses are returned verbatim.
type Gateway interface {
	Send(ctx context.Context, msg Message) (json.RawMessage, error)
	SendMass(ctx context.Context, msg MassMessage) (json.RawMessage, error)
	List(ctx context.Context, filter HistoryFilter) (json.RawMessage, error)
	Detail(ctx context.Context, mid string, page, pageSize int) (json.RawMessage, error)
	Remain(ctx context.Context) (json.RawMessage, error)
	Cancel(ctx context.Context, mid string) (json.RawMessage, error)
}

type SendRequest struct {
	Receivers   []string `json:"receivers" validate:"omitempty,dive,phone"`
	StudentIDs  []string `json:"student_ids" validate:"omitempty,dive,uuid"`
	Target      string   `json:"target" validate:"omitempty,oneof=student parent both"`
	Message     string   `json:"message" validate:"required,notblank,max=2000"`
	Title       string   `json:"title" validate:"omitempty,max=44"`
	ReserveDate string   `json:"rdate" validate:"required_with=ReserveTime,omitempty,datetime=20060102"`
	ReserveTime string   `json:"rtime" validate:"required_with=ReserveDate,omitempty,datetime=1504"`
}

func (sr *SendRequest) Clean() {
	sr.StudentIDs = core.UniqueStrings(sr.StudentIDs)
	sr.Message = strings.TrimSpace(sr.Message)
	sr.Title = core.CleanString(sr.Title)
	if sr.Target == "" {
		sr.Target = TargetParent
	}
}

type CancelRequest struct {
	MID string `json:"mid" validate:"required,numeric"`
}

type recipient struct {
	phone string
	name  string
}

type (
	StudentQuerier interface {
		Query(ctx context.Context, filter student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error)
	}

	Service struct {
		gw       Gateway
		students StudentQuerier
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(gw Gateway, students StudentQuerier, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{gw: gw, students: students, validate: validate, logger: logger}
}

// recipients resolves the phone numbers to send to, de-duplicated, digits only.
func (svc *Service) recipients(ctx context.Context, req SendRequest) ([]recipient, error) {
	seen := make(map[string]struct{})
	var out []recipient
	add := func(phone, name string) {
		phone = core.CleanPhone(phone)
		if phone == "" {
			return
		}
		if _, ok := seen[phone]; ok {
			return
		}
		seen[phone] = struct{}{}
		out = append(out, recipient{phone: phone, name: name})
	}

	for _, phone := range req.Receivers {
		add(phone, "")
	}
	if len(req.StudentIDs) == 0 {
		return out, nil
	}

	students, err := svc.students.Query(ctx, student.QueryFilter{IDs: req.StudentIDs})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	for _, s := range students {
		if req.Target == TargetStudent || req.Target == TargetBoth {
			add(s.Phone, s.Name)
		}
		if req.Target == TargetParent || req.Target == TargetBoth {
			add(s.ParentPhone, s.Name)
		}
	}
	return out, nil
}

// Send sends the message to the requested receivers and students.
func (svc *Service) Send(ctx context.Context, req SendRequest) (json.RawMessage, error) {
	req.Clean()
	if err := svc.validate.Struct(req); err != nil {
		return nil, err
	}
	personalized := strings.Contains(req.Message, NamePlaceholder)
	if personalized && len(req.Receivers) > 0 {
		// direct receivers have no name to substitute
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "message",
			Error: NamePlaceholder + " can only be sent to students",
		})
	}
	recipients, err := svc.recipients(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "receivers", Error: "no recipient with a phone number"})
	}
	if personalized && len(recipients) > MaxMassItems {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "student_ids",
			Error: fmt.Sprintf("personalized messages are limited to %d recipients", MaxMassItems),
		})
	}

	var resp json.RawMessage
	if personalized {
		mass := MassMessage{
			Items:       make([]MassItem, len(recipients)),
			Title:       req.Title,
			MsgType:     TypeSMS,
			ReserveDate: req.ReserveDate,
			ReserveTime: req.ReserveTime,
		}
		for i, rcpt := range recipients {
			text := strings.ReplaceAll(req.Message, NamePlaceholder, rcpt.name)
			if MessageType(text) == TypeLMS {
				mass.MsgType = TypeLMS
			}
			mass.Items[i] = MassItem{Receiver: rcpt.phone, Text: text}
		}
		resp, err = svc.gw.SendMass(ctx, mass)
	} else {
		phones := make([]string, len(recipients))
		for i, rcpt := range recipients {
			phones[i] = rcpt.phone
		}
		resp, err = svc.gw.Send(ctx, Message{
			Receivers:   phones,
			Text:        req.Message,
			Title:       req.Title,
			MsgType:     MessageType(req.Message),
			ReserveDate: req.ReserveDate,
			ReserveTime: req.ReserveTime,
		})
	}
	if err != nil {
		svc.logger.Error("sms: sending: "+err.Error(), err, map[string]interface{}{"recipients": len(recipients)})
		return nil, ErrSendFailed
	}
	return resp, nil
}

func (svc *Service) History(ctx context.Context, filter HistoryFilter) (json.RawMessage, error) {
	resp, err := svc.gw.List(ctx, filter)
	if err != nil {
		svc.logger.Error("sms: listing history: "+err.Error(), err)
		return nil, ErrUnavailable
	}
	return resp, nil
}

func (svc *Service) Detail(ctx context.Context, mid string, page, pageSize int) (json.RawMessage, error) {
	resp, err := svc.gw.Detail(ctx, mid, page, pageSize)
	if err != nil {
		svc.logger.Error("sms: getting detail: "+err.Error(), err, map[string]interface{}{"mid": mid})
		return nil, ErrUnavailable
	}
	return resp, nil
}

func (svc *Service) Remain(ctx context.Context) (json.RawMessage, error) {
	resp, err := svc.gw.Remain(ctx)
	if err != nil {
		svc.logger.Error("sms: getting remaining quota: "+err.Error(), err)
		return nil, ErrUnavailable
	}
	return resp, nil
}

func (svc *Service) Cancel(ctx context.Context, req CancelRequest) (json.RawMessage, error) {
	req.MID = core.CleanString(req.MID)
	if err := svc.validate.Struct(req); err != nil {
		return nil, err
	}
	resp, err := svc.gw.Cancel(ctx, req.MID)
	if err != nil {
		svc.logger.Error("sms: cancelling: "+err.Error(), err, map[string]interface{}{"mid": req.MID})
		return nil, ErrUnavailable
	}
	return resp, nil
}
