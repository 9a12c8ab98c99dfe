package v2controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/edupay/upiverify/lib/responses"
	"github.com/edupay/upiverify/lib/service"
	"github.com/labstack/echo/v4"
)

const maxResolutionWait = 60 * time.Second

// PollController : Verification polling controller struct
type PollController struct {
	svc *service.PaymentService
}

func NewPollController(svc *service.PaymentService) *PollController {
	return &PollController{svc: svc}
}

type PollResponseBody struct {
	ID      string `json:"id"`
	Polling bool   `json:"polling"`
}

// StartPolling godoc
// @Summary      Start verification polling
// @Description  Starts (or joins) the background verification poll of a payment request
// @Produce      json
// @Tags         Payment
// @Param        id   path      string  true  "Payment request id"
// @Success      202  {object}  PollResponseBody
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /v2/payments/{id}/poll [post]
// @Security     OAuth2Password
func (controller *PollController) StartPolling(c echo.Context) error {
	id := c.Param("id")
	if _, err := findOwned(c, controller.svc, id); err != nil {
		return responses.RespondWithError(c, err)
	}
	if _, err := controller.svc.StartPolling(c.Request().Context(), id); err != nil {
		return responses.RespondWithError(c, err)
	}
	return c.JSON(http.StatusAccepted, &PollResponseBody{ID: id, Polling: true})
}

// AwaitResolution godoc
// @Summary      Await verification
// @Description  Waits up to `wait` (e.g. 30s, max 60s) for a running poll to resolve and returns the current state
// @Produce      json
// @Tags         Payment
// @Param        id    path      string  true   "Payment request id"
// @Param        wait  query     string  false  "Maximum wait duration"
// @Success      200   {object}  PaymentRequestResponseBody
// @Failure      400   {object}  responses.ErrorResponse
// @Failure      404   {object}  responses.ErrorResponse
// @Router       /v2/payments/{id}/resolution [get]
// @Security     OAuth2Password
func (controller *PollController) AwaitResolution(c echo.Context) error {
	id := c.Param("id")
	wait := time.Duration(0)
	if c.QueryParams().Has("wait") {
		parsed, err := time.ParseDuration(c.QueryParam("wait"))
		if err != nil || parsed < 0 {
			c.Logger().Errorf("Invalid wait duration %q: %v", c.QueryParam("wait"), err)
			return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
		}
		wait = parsed
	}
	if wait > maxResolutionWait {
		wait = maxResolutionWait
	}

	if _, err := findOwned(c, controller.svc, id); err != nil {
		return responses.RespondWithError(c, err)
	}
	if handle, ok := controller.svc.PollHandle(id); ok && wait > 0 {
		ctx, cancel := context.WithTimeout(c.Request().Context(), wait)
		defer cancel()
		// a wait that runs out simply reports the current state
		_, _ = handle.Wait(ctx)
	}
	req, err := controller.svc.GetStatus(c.Request().Context(), id)
	if err != nil {
		return responses.RespondWithError(c, err)
	}
	return c.JSON(http.StatusOK, newPaymentRequestResponseBody(controller.svc, req))
}

// CancelPolling godoc
// @Summary      Cancel verification polling
// @Description  Stops the background poll; the payment request status is not changed
// @Tags         Payment
// @Param        id   path  string  true  "Payment request id"
// @Success      204
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/payments/{id}/poll [delete]
// @Security     OAuth2Password
func (controller *PollController) CancelPolling(c echo.Context) error {
	id := c.Param("id")
	if _, err := findOwned(c, controller.svc, id); err != nil {
		return responses.RespondWithError(c, err)
	}
	controller.svc.CancelPolling(id)
	return c.NoContent(http.StatusNoContent)
}
