package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

type calendarApi struct {
	svc *schedule.Service
}

func registerCalendarAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service) {
	api := calendarApi{svc: svc}

	cg := g.Group("/calendar", jwt)
	cg.GET("", api.month)
	cg.GET("/day", api.day)
}

type monthRequest struct {
	Year  int        `query:"year"`
	Month time.Month `query:"month"`
}

func (api *calendarApi) month(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var req monthRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to monthRequest")
	}
	if req.Year == 0 || req.Month < time.January || req.Month > time.December {
		return core.NewValidationError(errors.New("valid year and month are required"))
	}

	buckets, err := api.svc.MonthView(ctx.Request().Context(), claims.Subject, req.Year, req.Month)
	if err != nil {
		return errors.Wrap(err, "materializing month view")
	}
	return ctx.JSON(http.StatusOK, buckets)
}

type dayRequest struct {
	Date schedule.Date `query:"date"`
}

func (api *calendarApi) day(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var req dayRequest
	if err := ctx.Bind(&req); err != nil {
		return core.NewValidationError(errors.New("a valid date is required (YYYY-MM-DD)"))
	}
	if req.Date.IsZero() {
		req.Date = schedule.DateOf(time.Now())
	}

	bucket, err := api.svc.Day(ctx.Request().Context(), claims.Subject, req.Date)
	if err != nil {
		return errors.Wrap(err, "materializing day view")
	}
	return ctx.JSON(http.StatusOK, bucket)
}
