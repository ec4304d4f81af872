package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/schedule"
)

type dashboardApi struct {
	svc *schedule.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service) {
	api := dashboardApi{svc: svc}
	g.GET("/dashboard", api.retrieve, jwt)
}

func (api *dashboardApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	dash, err := api.svc.Dashboard(ctx.Request().Context(), claims.Subject, time.Now())
	if err != nil {
		return errors.Wrap(err, "assembling dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
