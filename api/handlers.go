package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"dayplan-api/domain"
)

const requestBodyMaxSize = 64 << 10

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, svc domain.RolloverService, auth Authenticator, logger *log.Logger) {
	e.GET("/api/days", getDays(store, svc, auth, logger))
	e.POST("/api/tasks", postTask(store, svc, auth))
	e.POST("/api/tasks/:id/reorder", postReorder(svc, auth))
	e.POST("/api/tasks/:id/reschedule", postReschedule(svc, auth))
	e.POST("/api/tasks/:id/complete", postStatus(svc, auth, domain.StatusComplete))
	e.POST("/api/tasks/:id/reopen", postStatus(svc, auth, domain.StatusIncomplete))
	e.POST("/api/days/:day/renumber", postRenumber(svc, auth))
	e.POST("/api/rollover", postRollover(store, svc, auth))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseInstant(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// getDays serves the bucketed day view for an instant range. Defaults to the
// civil week around "now" when no range is given.
func getDays(store Storage, svc domain.RolloverService, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	clock := svc.Clock()
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newDayRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		now := time.Now()
		from := clock.StartOfDay(now.AddDate(0, 0, -1))
		to := clock.EndOfDay(now.AddDate(0, 0, 5))
		if v := c.QueryParam("from"); v != "" {
			t, perr := parseInstant(v)
			if perr != nil {
				metrics.SetErrorStage("invalid_from")
				err = c.String(http.StatusBadRequest, "invalid from instant")
				return err
			}
			from = clock.StartOfDay(t)
		}
		if v := c.QueryParam("to"); v != "" {
			t, perr := parseInstant(v)
			if perr != nil {
				metrics.SetErrorStage("invalid_to")
				err = c.String(http.StatusBadRequest, "invalid to instant")
				return err
			}
			to = clock.EndOfDay(t)
		}
		if to.Before(from) {
			metrics.SetErrorStage("inverted_range")
			err = c.String(http.StatusBadRequest, "range end precedes start")
			return err
		}

		fetchStart := time.Now()
		tasks, fetchErr := store.ListInRange(ctx, userID, from, to)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}

		days := domain.BucketByDay(clock, tasks)
		metrics.SetDaysReturned(len(days), len(tasks))
		err = c.JSON(http.StatusOK, daysResponse{Zone: clock.Zone(), Days: days})
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func postTask(store Storage, svc domain.RolloverService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		due, err := parseInstant(req.DueDate)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid due date")
		}
		order, err := svc.PlanNewTask(ctx, userID, due)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		task := domain.Task{
			ID:           uuid.NewString(),
			Title:        req.Title,
			Status:       domain.StatusIncomplete,
			DueDate:      due.UTC(),
			Category:     req.Category,
			Priority:     req.Priority,
			DisplayOrder: order,
			UserID:       userID,
		}
		if err := task.Validate(); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		if err := store.InsertTask(ctx, task); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func postReorder(svc domain.RolloverService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req reorderRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		order, err := svc.Reorder(ctx, userID, c.Param("id"), req.PrevOrder, req.NextOrder)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNoOrderGap):
				// The bucket must be renumbered before this insert can land.
				return c.String(http.StatusConflict, "display-order gap exhausted; renumber the day")
			case errors.Is(err, domain.ErrTaskNotFound):
				return c.String(http.StatusNotFound, err.Error())
			default:
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, err.Error())
			}
		}
		return c.JSON(http.StatusOK, map[string]int{"displayOrder": order})
	}
}

func postReschedule(svc domain.RolloverService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req rescheduleRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		due, err := parseInstant(req.DueDate)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid due date")
		}
		if err := svc.Reschedule(ctx, userID, c.Param("id"), due, req.KeepRolledOver); err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return c.String(http.StatusNotFound, err.Error())
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postStatus(svc domain.RolloverService, auth Authenticator, status domain.Status) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := svc.SetStatus(ctx, userID, c.Param("id"), status, time.Now()); err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return c.String(http.StatusNotFound, err.Error())
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postRenumber(svc domain.RolloverService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		n, err := svc.RenumberDay(ctx, userID, c.Param("day"))
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]int{"renumbered": n})
	}
}

// postRollover enqueues an asynchronous rollover command for the caller. The
// worker loop picks it up, dedupes it and applies the move.
func postRollover(store Storage, svc domain.RolloverService, auth Authenticator) echo.HandlerFunc {
	clock := svc.Clock()
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req rolloverRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		now := time.Now()
		from := now.AddDate(0, 0, -1)
		to := now
		if req.FromInstant != "" {
			if from, err = parseInstant(req.FromInstant); err != nil {
				return c.String(http.StatusBadRequest, "invalid fromInstant")
			}
		}
		if req.ToInstant != "" {
			if to, err = parseInstant(req.ToInstant); err != nil {
				return c.String(http.StatusBadRequest, "invalid toInstant")
			}
		}
		if clock.DayKey(from) == clock.DayKey(to) {
			return c.String(http.StatusBadRequest, domain.ErrSameDayRollover.Error())
		}
		cmd := domain.RolloverCommand{
			ID:          uuid.NewString(),
			UserID:      userID,
			FromInstant: from.UTC(),
			ToInstant:   to.UTC(),
			RequestedAt: nextTimestamp(),
		}
		if err := store.EnqueueRollover(ctx, cmd); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to enqueue rollover")
		}
		return c.JSON(http.StatusAccepted, rolloverAccepted{CommandID: cmd.ID})
	}
}
