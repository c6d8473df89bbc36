package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core/access"
	"github.com/trezcool/classboard/core/viewer"
	"github.com/trezcool/classboard/core/work"
	eventsvc "github.com/trezcool/classboard/services/events"
)

type workApi struct {
	svc         *work.Service
	hub         *eventsvc.Hub
	validate    *validator.Validate
	maxUploadMB int64
}

func registerWorkAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *work.Service, hub *eventsvc.Hub, validate *validator.Validate, maxUploadMB int64) {
	api := workApi{svc: svc, hub: hub, validate: validate, maxUploadMB: maxUploadMB}
	teacher := roleMiddleware(access.RoleTeacher)
	student := roleMiddleware(access.RoleStudent)

	wg := g.Group("/work", auth)
	wg.GET("", api.query)
	wg.POST("", api.create, teacher)
	wg.GET("/:id", api.retrieve)
	wg.PUT("/:id", api.update, teacher)
	wg.DELETE("/:id", api.destroy, teacher)
	wg.GET("/:id/attachments/:index", api.viewAttachment)

	cg := g.Group("/completed", auth, student)
	cg.GET("", api.queryCompleted)
	cg.PUT("/:id", api.setCompleted)
}

func (api *workApi) publish(kind eventsvc.Kind) {
	if api.hub != nil {
		api.hub.Publish(eventsvc.NewEvent(kind, "local"))
	}
}

// Handlers

// query lists the items matching the query filter, or month groups of them with `group=month`.
func (api *workApi) query(ctx echo.Context) error {
	filter := bindFilter(ctx)
	if ctx.QueryParam("group") == "month" {
		groups, err := api.svc.QueryGrouped(ctx.Request().Context(), filter)
		if err != nil {
			return errors.Wrap(err, "querying grouped work items")
		}
		return ctx.JSON(http.StatusOK, groups)
	}

	items, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying work items")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *workApi) create(ctx echo.Context) error {
	data, err := bindNewItem(ctx, api.maxUploadMB)
	if err != nil {
		return err
	}
	// rejects disallowed attachments before anything is stored
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	it, status, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating work item")
	}
	api.publish(eventsvc.KindWork)
	return ctx.JSON(http.StatusCreated, newMutationResponse(it, status, "Uploaded"))
}

func (api *workApi) retrieve(ctx echo.Context) error {
	it, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving work item")
	}
	return ctx.JSON(http.StatusOK, it)
}

func (api *workApi) update(ctx echo.Context) error {
	var data work.UpdateItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	it, status, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating work item")
	}
	api.publish(eventsvc.KindWork)
	return ctx.JSON(http.StatusOK, newMutationResponse(it, status, "Updated"))
}

func (api *workApi) destroy(ctx echo.Context) error {
	status, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting work item")
	}
	api.publish(eventsvc.KindWork)
	return ctx.JSON(http.StatusOK, newMutationResponse(nil, status, "Deleted"))
}

// viewAttachment opens the attachment viewer of an item at :index and applies the optional `key` shortcut.
func (api *workApi) viewAttachment(ctx echo.Context) error {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return errHttpNotFound
	}
	it, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving work item")
	}
	if len(it.Files) > 0 && (index < 0 || index >= len(it.Files)) {
		return errHttpNotFound
	}

	gallery, err := viewer.New(it.Files, index)
	if err != nil {
		return err
	}
	if key := ctx.QueryParam("key"); key != "" && !gallery.HandleKey(key) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown key")
	}
	return ctx.JSON(http.StatusOK, ViewerResponse{Frame: gallery.Frame(), Closed: gallery.Closed()})
}

func (api *workApi) queryCompleted(ctx echo.Context) error {
	ids, err := api.svc.CompletedIDs(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying completed items")
	}
	return ctx.JSON(http.StatusOK, ids)
}

func (api *workApi) setCompleted(ctx echo.Context) error {
	var data CompletionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompletionRequest")
	}
	if err := api.svc.SetCompleted(ctx.Request().Context(), ctx.Param("id"), data.Completed); err != nil {
		return errors.Wrap(err, "setting completion")
	}
	api.publish(eventsvc.KindCompleted)
	return ctx.NoContent(http.StatusNoContent)
}
