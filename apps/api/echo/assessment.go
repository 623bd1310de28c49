package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/assessment"
	"github.com/simagang/simagang/core/dashboard"
)

type assessmentApi struct {
	svc assessment.Service
}

func registerAssessmentAPI(g *echo.Group, auth echo.MiddlewareFunc, svc assessment.Service) {
	api := assessmentApi{svc: svc}

	ag := g.Group("/assessments", auth)
	ag.POST("", api.create, canMiddleware(core.ActionAssessmentCreate))
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.DELETE("/:id", api.destroy, canMiddleware(core.ActionAssessmentDelete))
}

func (api *assessmentApi) create(ctx echo.Context) error {
	var data assessment.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	a, err := api.svc.Create(ctx.Request().Context(), getContextActor(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assessmentApi) query(ctx echo.Context) error {
	var filter assessment.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	as, err := api.svc.Query(ctx.Request().Context(), getContextActor(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assessment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Assessment deleted."})
}

func registerStatsAPI(g *echo.Group, auth echo.MiddlewareFunc, svc dashboard.Service) {
	g.GET("/stats", func(ctx echo.Context) error {
		stats, err := svc.Stats(ctx.Request().Context(), getContextActor(ctx))
		if err != nil {
			return errors.Wrap(err, "computing dashboard statistics")
		}
		return ctx.JSON(http.StatusOK, stats)
	}, auth, canMiddleware(core.ActionStatsView))
}
