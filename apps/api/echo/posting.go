package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/posting"
)

type postingApi struct {
	svc posting.Service
}

func registerPostingAPI(g *echo.Group, auth echo.MiddlewareFunc, svc posting.Service) {
	api := postingApi{svc: svc}

	pg := g.Group("/postings", auth)
	pg.POST("", api.create, canMiddleware(core.ActionPostingCreate))
	pg.GET("", api.query)
	pg.GET("/statistics", api.stats, canMiddleware(core.ActionPostingStats))

	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update, canMiddleware(core.ActionPostingEdit))
	pg.PUT("/:id/status", api.setStatus, canMiddleware(core.ActionPostingSetStatus))
	pg.POST("/:id/approve", api.approve, canMiddleware(core.ActionPostingDecide))
	pg.POST("/:id/reject", api.reject, canMiddleware(core.ActionPostingDecide))
	pg.DELETE("/:id", api.destroy, canMiddleware(core.ActionPostingDelete))
}

func (api *postingApi) create(ctx echo.Context) error {
	var data posting.NewPosting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPosting")
	}
	p, err := api.svc.Create(ctx.Request().Context(), getContextActor(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating posting")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *postingApi) query(ctx echo.Context) error {
	var filter posting.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	postings, err := api.svc.Query(ctx.Request().Context(), getContextActor(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying postings")
	}
	return ctx.JSON(http.StatusOK, postings)
}

func (api *postingApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context(), getContextActor(ctx))
	if err != nil {
		return errors.Wrap(err, "computing posting statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *postingApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting posting")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postingApi) update(ctx echo.Context) error {
	var data posting.Content
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Content")
	}
	p, err := api.svc.Update(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating posting")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postingApi) setStatus(ctx echo.Context) error {
	var data posting.StatusChange
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusChange")
	}
	p, err := api.svc.SetStatus(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting posting status")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postingApi) approve(ctx echo.Context) error {
	var data posting.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	p, err := api.svc.Approve(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "approving posting")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postingApi) reject(ctx echo.Context) error {
	var data posting.Rejection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Rejection")
	}
	p, err := api.svc.Reject(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "rejecting posting")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postingApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting posting")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Posting deleted."})
}
