package report

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/user"
)

var ErrNotFound = errors.Wrap(core.ErrNotFound, "report")

type (
	Repository interface {
		// UpsertReport creates the report or updates the one of the same (mokjang, date).
		// `created` tells which happened.
		UpsertReport(ctx context.Context, r Report) (rep Report, created bool, err error)
		GetReport(ctx context.Context, id string) (Report, error)
		// QueryReports returns the matching reports, newest first.
		QueryReports(ctx context.Context, filter QueryFilter) ([]Report, error)
		DeleteReport(ctx context.Context, id string) error
	}

	AdminLister interface {
		ActiveAdmins(ctx context.Context) ([]user.User, error)
	}

	Service struct {
		repo     Repository
		admins   AdminLister
		mailSvc  core.EmailService
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	admins AdminLister,
	mailSvc core.EmailService,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{repo: repo, admins: admins, mailSvc: mailSvc, validate: validate, logger: logger}
}

// Author identifies who saves a report.
type Author struct {
	TeacherID *string
	Name      string
}

// Save creates or updates the report of a mokjang for a date.
// Admins are notified by email the first time a report is submitted.
func (svc *Service) Save(ctx context.Context, data SaveReport, mokjangName string, author Author) (Report, bool, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return Report{}, false, err
	}

	now := time.Now().UTC()
	rep, created, err := svc.repo.UpsertReport(ctx, Report{
		MokjangID:      data.MokjangID,
		Date:           data.Date,
		Content:        data.Content,
		PrayerRequests: data.PrayerRequests,
		Suggestions:    data.Suggestions,
		AuthorID:       author.TeacherID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Report{}, false, err
	}
	if created {
		svc.notifyAdmins(ctx, rep, mokjangName, author.Name)
	}
	return rep, created, nil
}

func (svc *Service) notifyAdmins(ctx context.Context, rep Report, mokjangName, authorName string) {
	admins, err := svc.admins.ActiveAdmins(ctx)
	if err != nil {
		svc.logger.Error("report: listing admins: "+err.Error(), err)
		return
	}

	var to []mail.Address
	for _, adm := range admins {
		if adm.Email != "" {
			to = append(to, mail.Address{Name: adm.Name, Address: adm.Email})
		}
	}
	if len(to) == 0 {
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      "[" + mokjangName + "] report submitted for " + rep.Date.String(),
		TemplateName: "report_submitted",
		TemplateData: submittedEmailData{
			ReportID:       rep.ID,
			MokjangName:    mokjangName,
			Date:           rep.Date.String(),
			AuthorName:     authorName,
			Content:        rep.Content,
			PrayerRequests: rep.PrayerRequests,
			Suggestions:    rep.Suggestions,
		},
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Report, error) {
	return svc.repo.QueryReports(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Report, error) {
	return svc.repo.GetReport(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteReport(ctx, id)
}
