package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/profile"
)

type profileApi struct {
	svc profile.Service
}

func registerProfileAPI(g *echo.Group, auth echo.MiddlewareFunc, svc profile.Service) {
	api := profileApi{svc: svc}

	pg := g.Group("/profiles", auth)

	sg := pg.Group("/students")
	sg.GET("", api.queryStudents)
	sg.GET("/me", api.retrieveOwnStudent)
	sg.PUT("/me", api.saveOwnStudent)
	sg.GET("/:id", api.retrieveStudent)
	api.registerVerification(sg, profile.KindStudent)

	cg := pg.Group("/companies")
	cg.GET("", api.queryCompanies)
	cg.GET("/me", api.retrieveOwnCompany)
	cg.PUT("/me", api.saveOwnCompany)
	cg.GET("/:id", api.retrieveCompany)
	api.registerVerification(cg, profile.KindCompany)

	tg := pg.Group("/teachers")
	tg.GET("", api.queryTeachers)
	tg.GET("/me", api.retrieveOwnTeacher)
	tg.PUT("/me", api.saveOwnTeacher)
	tg.GET("/:id", api.retrieveTeacher)
}

func (api *profileApi) registerVerification(g *echo.Group, kind profile.Kind) {
	verify := canMiddleware(core.ActionProfileVerify)
	g.POST("/:id/verify", func(ctx echo.Context) error {
		if err := api.svc.Verify(ctx.Request().Context(), getContextActor(ctx), kind, ctx.Param("id")); err != nil {
			return errors.Wrap(err, "verifying profile")
		}
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Profile verified."})
	}, verify)
	g.POST("/:id/reject", func(ctx echo.Context) error {
		var data profile.Rejection
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to Rejection")
		}
		if err := api.svc.Reject(ctx.Request().Context(), getContextActor(ctx), kind, ctx.Param("id"), data); err != nil {
			return errors.Wrap(err, "rejecting profile")
		}
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Profile rejected."})
	}, verify)
	g.DELETE("/:id", func(ctx echo.Context) error {
		if err := api.svc.Delete(ctx.Request().Context(), getContextActor(ctx), kind, ctx.Param("id")); err != nil {
			return errors.Wrap(err, "deleting profile")
		}
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Profile deleted."})
	}, verify)
}

func bindProfileFilter(ctx echo.Context) (profile.QueryFilter, error) {
	var filter profile.QueryFilter
	err := ctx.Bind(&filter)
	return filter, errors.Wrap(err, "binding to QueryFilter")
}

// Students

func (api *profileApi) queryStudents(ctx echo.Context) error {
	filter, err := bindProfileFilter(ctx)
	if err != nil {
		return err
	}
	profiles, err := api.svc.QueryStudents(ctx.Request().Context(), getContextActor(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying student profiles")
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *profileApi) retrieveStudent(ctx echo.Context) error {
	p, err := api.svc.GetStudent(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) retrieveOwnStudent(ctx echo.Context) error {
	actor := getContextActor(ctx)
	p, err := api.svc.GetStudent(ctx.Request().Context(), actor, actor.UserID)
	if err != nil {
		return errors.Wrap(err, "getting own student profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) saveOwnStudent(ctx echo.Context) error {
	var data profile.StudentInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentInput")
	}
	p, err := api.svc.SaveOwnStudent(ctx.Request().Context(), getContextActor(ctx), data)
	if err != nil {
		return errors.Wrap(err, "saving student profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Companies

func (api *profileApi) queryCompanies(ctx echo.Context) error {
	filter, err := bindProfileFilter(ctx)
	if err != nil {
		return err
	}
	profiles, err := api.svc.QueryCompanies(ctx.Request().Context(), getContextActor(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying company profiles")
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *profileApi) retrieveCompany(ctx echo.Context) error {
	p, err := api.svc.GetCompany(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting company profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) retrieveOwnCompany(ctx echo.Context) error {
	actor := getContextActor(ctx)
	p, err := api.svc.GetCompany(ctx.Request().Context(), actor, actor.UserID)
	if err != nil {
		return errors.Wrap(err, "getting own company profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) saveOwnCompany(ctx echo.Context) error {
	var data profile.CompanyInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompanyInput")
	}
	p, err := api.svc.SaveOwnCompany(ctx.Request().Context(), getContextActor(ctx), data)
	if err != nil {
		return errors.Wrap(err, "saving company profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Teachers

func (api *profileApi) queryTeachers(ctx echo.Context) error {
	filter, err := bindProfileFilter(ctx)
	if err != nil {
		return err
	}
	profiles, err := api.svc.QueryTeachers(ctx.Request().Context(), getContextActor(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying teacher profiles")
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *profileApi) retrieveTeacher(ctx echo.Context) error {
	p, err := api.svc.GetTeacher(ctx.Request().Context(), getContextActor(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) retrieveOwnTeacher(ctx echo.Context) error {
	actor := getContextActor(ctx)
	p, err := api.svc.GetTeacher(ctx.Request().Context(), actor, actor.UserID)
	if err != nil {
		return errors.Wrap(err, "getting own teacher profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) saveOwnTeacher(ctx echo.Context) error {
	var data profile.TeacherInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TeacherInput")
	}
	p, err := api.svc.SaveOwnTeacher(ctx.Request().Context(), getContextActor(ctx), data)
	if err != nil {
		return errors.Wrap(err, "saving teacher profile")
	}
	return ctx.JSON(http.StatusOK, p)
}
