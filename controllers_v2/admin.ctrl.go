package v2controllers

import (
	"net/http"

	"github.com/edupay/upiverify/lib/responses"
	"github.com/edupay/upiverify/lib/service"
	"github.com/labstack/echo/v4"
)

// AdminController : Operator endpoints controller struct
type AdminController struct {
	svc *service.PaymentService
}

func NewAdminController(svc *service.PaymentService) *AdminController {
	return &AdminController{svc: svc}
}

type NeedsReviewResponseBody struct {
	Payments []PaymentRequestResponseBody `json:"payments"`
}

// NeedsReview godoc
// @Summary      Payments needing review
// @Description  Lists verifying payment requests that are no longer polled
// @Produce      json
// @Tags         Admin
// @Success      200  {object}  NeedsReviewResponseBody
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/admin/payments/review [get]
// @Security     AdminToken
func (controller *AdminController) NeedsReview(c echo.Context) error {
	requests, err := controller.svc.NeedsReview(c.Request().Context())
	if err != nil {
		return err
	}
	response := NeedsReviewResponseBody{Payments: make([]PaymentRequestResponseBody, len(requests))}
	for i := range requests {
		response.Payments[i] = *newPaymentRequestResponseBody(controller.svc, &requests[i])
	}
	return c.JSON(http.StatusOK, &response)
}

// RestartPolling godoc
// @Summary      Restart verification polling
// @Description  Starts a new background poll for a verifying payment request
// @Produce      json
// @Tags         Admin
// @Param        id   path      string  true  "Payment request id"
// @Success      202  {object}  PollResponseBody
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /v2/admin/payments/{id}/poll [post]
// @Security     AdminToken
func (controller *AdminController) RestartPolling(c echo.Context) error {
	id := c.Param("id")
	if _, err := controller.svc.StartPolling(c.Request().Context(), id); err != nil {
		return responses.RespondWithError(c, err)
	}
	c.Logger().Infof("Operator restarted verification polling id:%s", id)
	return c.JSON(http.StatusAccepted, &PollResponseBody{ID: id, Polling: true})
}
