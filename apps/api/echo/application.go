package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/application"
)

type applicationApi struct {
	svc application.Service
}

func registerApplicationAPI(g *echo.Group, auth, submitLimit echo.MiddlewareFunc, svc application.Service) {
	api := applicationApi{svc: svc}

	ag := g.Group("/applications", auth)
	ag.POST("", api.submit, canMiddleware(core.ActionApplicationSubmit), submitLimit)
	ag.GET("", api.query)
	ag.GET("/statistics", api.stats, canMiddleware(core.ActionApplicationStats))

	ag.GET("/:id", api.retrieve)
	decide := canMiddleware(core.ActionApplicationDecide)
	ag.POST("/:id/review", api.review, decide)
	ag.POST("/:id/set-interview", api.scheduleInterview, decide)
	ag.POST("/:id/accept", api.accept, decide)
	ag.POST("/:id/reject", api.reject, decide)
	ag.DELETE("/:id", api.destroy)
}

func (api *applicationApi) submit(ctx echo.Context) error {
	var data application.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	app, err := api.svc.Submit(ctx.Request().Context(), getContextActor(ctx), data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *applicationApi) query(ctx echo.Context) error {
	var filter application.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	apps, err := api.svc.Query(ctx.Request().Context(), getContextActor(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context(), getContextActor(ctx))
	if err != nil {
		return errors.Wrap(err, "computing application statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	app, err := api.svc.Get(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) review(ctx echo.Context) error {
	var data application.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	app, err := api.svc.Review(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) scheduleInterview(ctx echo.Context) error {
	var data application.InterviewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InterviewSchedule")
	}
	app, err := api.svc.ScheduleInterview(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "scheduling interview")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) accept(ctx echo.Context) error {
	var data application.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	app, err := api.svc.Accept(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "accepting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) reject(ctx echo.Context) error {
	var data application.Rejection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Rejection")
	}
	app, err := api.svc.Reject(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "rejecting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

// destroy withdraws the caller's own application when they are a student, deletes it otherwise.
func (api *applicationApi) destroy(ctx echo.Context) error {
	actor := getContextActor(ctx)
	if actor.Is(core.RoleStudent) {
		if err := api.svc.Withdraw(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
			return errors.Wrap(err, "withdrawing application")
		}
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Application withdrawn."})
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Application deleted."})
}
