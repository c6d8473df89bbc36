package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core/access"
	"github.com/trezcool/classboard/core/notice"
	eventsvc "github.com/trezcool/classboard/services/events"
)

type noticeApi struct {
	svc      *notice.Service
	hub      *eventsvc.Hub
	validate *validator.Validate
}

func registerNoticeAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *notice.Service, hub *eventsvc.Hub, validate *validator.Validate) {
	api := noticeApi{svc: svc, hub: hub, validate: validate}
	teacher := roleMiddleware(access.RoleTeacher)

	ng := g.Group("/notices", auth)
	ng.GET("", api.query)
	ng.POST("", api.create, teacher)
	ng.GET("/:id", api.retrieve)
	ng.PUT("/:id", api.update, teacher)
	ng.DELETE("/:id", api.destroy, teacher)
}

func (api *noticeApi) publish() {
	if api.hub != nil {
		api.hub.Publish(eventsvc.NewEvent(eventsvc.KindNotices, "local"))
	}
}

// Handlers

func (api *noticeApi) query(ctx echo.Context) error {
	notices, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (api *noticeApi) create(ctx echo.Context) error {
	var data notice.NewNotice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, status, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	api.publish()
	return ctx.JSON(http.StatusCreated, newMutationResponse(n, status, "Posted"))
}

func (api *noticeApi) retrieve(ctx echo.Context) error {
	n, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving announcement")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *noticeApi) update(ctx echo.Context) error {
	var data notice.UpdateNotice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateNotice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, status, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}
	api.publish()
	return ctx.JSON(http.StatusOK, newMutationResponse(n, status, "Updated"))
}

func (api *noticeApi) destroy(ctx echo.Context) error {
	status, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	api.publish()
	return ctx.JSON(http.StatusOK, newMutationResponse(nil, status, "Deleted"))
}
