package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/placement"
)

type placementApi struct {
	svc placement.Service
}

func registerPlacementAPI(g *echo.Group, auth echo.MiddlewareFunc, svc placement.Service) {
	api := placementApi{svc: svc}

	pg := g.Group("/placements", auth)
	manage := canMiddleware(core.ActionPlacementManage)
	pg.POST("", api.create, manage)
	pg.GET("", api.query)
	pg.GET("/candidates", api.candidates, manage)

	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update, manage)
	pg.DELETE("/:id", api.destroy, manage)
}

func (api *placementApi) create(ctx echo.Context) error {
	var data placement.NewPlacement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlacement")
	}
	p, err := api.svc.Create(ctx.Request().Context(), getContextActor(ctx), data)
	if err != nil {
		// an application that is not accepted or already placed is unprocessable input here
		if core.IsConflict(err) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, errors.Cause(err).Error())
		}
		return errors.Wrap(err, "creating placement")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *placementApi) query(ctx echo.Context) error {
	var filter placement.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	placements, err := api.svc.Query(ctx.Request().Context(), getContextActor(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying placements")
	}
	return ctx.JSON(http.StatusOK, placements)
}

func (api *placementApi) candidates(ctx echo.Context) error {
	apps, err := api.svc.Candidates(ctx.Request().Context(), getContextActor(ctx))
	if err != nil {
		return errors.Wrap(err, "listing placement candidates")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *placementApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting placement")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *placementApi) update(ctx echo.Context) error {
	var data placement.UpdatePlacement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePlacement")
	}
	p, err := api.svc.Update(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating placement")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *placementApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting placement")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Placement deleted."})
}
