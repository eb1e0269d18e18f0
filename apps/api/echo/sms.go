package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/sms"
)

type smsApi struct {
	*Server
}

// registerSMSAPI expects `g` to be restricted to admins and rate limited.
func registerSMSAPI(g *echo.Group, s *Server) {
	api := smsApi{s}

	g.POST("/send", api.smsSend)
	g.GET("/history", api.smsHistory)
	g.GET("/history/:mid", api.smsDetail)
	g.GET("/remain", api.smsRemain)
	g.POST("/cancel", api.smsCancel)
}

// Vendor responses are relayed as-is.

func (api smsApi) smsSend(ctx echo.Context) error {
	var data sms.SendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendRequest")
	}

	resp, err := api.deps.SMSSvc.Send(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	api.logChange(ctx, audit.ActionCreate, "sms", "", echo.Map{
		"receivers":   len(data.Receivers),
		"student_ids": data.StudentIDs,
		"target":      data.Target,
		"reserved":    data.ReserveDate != "",
	})
	return ctx.JSONBlob(http.StatusOK, resp)
}

func (api smsApi) smsHistory(ctx echo.Context) error {
	var (
		filter sms.HistoryFilter
		err    error
	)
	if filter.Page, err = queryInt(ctx, "page", 1); err != nil {
		return err
	}
	if filter.PageSize, err = queryInt(ctx, "page_size", 30); err != nil {
		return err
	}
	if filter.LimitDay, err = queryInt(ctx, "limit_day", 7); err != nil {
		return err
	}
	filter.StartDate = ctx.QueryParam("start_date")

	resp, err := api.deps.SMSSvc.History(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusOK, resp)
}

func (api smsApi) smsDetail(ctx echo.Context) error {
	page, err := queryInt(ctx, "page", 1)
	if err != nil {
		return err
	}
	pageSize, err := queryInt(ctx, "page_size", 30)
	if err != nil {
		return err
	}

	resp, err := api.deps.SMSSvc.Detail(ctx.Request().Context(), ctx.Param("mid"), page, pageSize)
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusOK, resp)
}

func (api smsApi) smsRemain(ctx echo.Context) error {
	resp, err := api.deps.SMSSvc.Remain(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusOK, resp)
}

func (api smsApi) smsCancel(ctx echo.Context) error {
	var data sms.CancelRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CancelRequest")
	}

	resp, err := api.deps.SMSSvc.Cancel(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	api.logChange(ctx, audit.ActionDelete, "sms", data.MID, nil)
	return ctx.JSONBlob(http.StatusOK, resp)
}
