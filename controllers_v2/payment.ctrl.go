package v2controllers

import (
	"net/http"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/lib/responses"
	"github.com/edupay/upiverify/lib/service"
	"github.com/edupay/upiverify/lib/tokens"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// PaymentController : Payment request controller struct
type PaymentController struct {
	svc *service.PaymentService
}

func NewPaymentController(svc *service.PaymentService) *PaymentController {
	return &PaymentController{svc: svc}
}

type CreatePaymentRequestBody struct {
	Amount          decimal.Decimal `json:"amount" swaggertype:"string" example:"499.00"`
	PayeeAddress    string          `json:"payee_address" validate:"omitempty,max=255,contains=@"`
	PayeeName       string          `json:"payee_name" validate:"max=100"`
	Note            string          `json:"note" validate:"max=80"`
	RequireEvidence bool            `json:"require_evidence"`
	IdempotencyKey  string          `json:"idempotency_key" validate:"max=64"`
}

type PaymentRequestResponseBody struct {
	ID                   string         `json:"id"`
	Amount               string         `json:"amount"`
	Currency             string         `json:"currency"`
	PayeeAddress         string         `json:"payee_address"`
	PayeeName            string         `json:"payee_name,omitempty"`
	Note                 string         `json:"note,omitempty"`
	Status               string         `json:"status"`
	Outcome              common.Outcome `json:"outcome"`
	QRPayload            string         `json:"qr_payload"`
	DeepLink             string         `json:"deep_link"`
	Instructions         string         `json:"instructions"`
	RequireEvidence      bool           `json:"require_evidence"`
	TransactionReference string         `json:"transaction_reference,omitempty"`
	AttachmentRef        string         `json:"attachment_ref,omitempty"`
	RejectionReason      string         `json:"rejection_reason,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	ExpiresAt            time.Time      `json:"expires_at"`
	FinalizedAt          *time.Time     `json:"finalized_at,omitempty"`
}

func newPaymentRequestResponseBody(svc *service.PaymentService, req *models.PaymentRequest) *PaymentRequestResponseBody {
	body := &PaymentRequestResponseBody{
		ID:              req.ID,
		Amount:          req.Amount.StringFixed(2),
		Currency:        common.DefaultCurrency,
		PayeeAddress:    req.PayeeAddress,
		PayeeName:       req.PayeeName,
		Note:            req.Note,
		Status:          string(req.Status),
		Outcome:         svc.Outcome(req),
		QRPayload:       req.QRPayload,
		DeepLink:        req.DeepLink,
		Instructions:    service.Instructions(req),
		RequireEvidence: req.RequireEvidence,
		RejectionReason: req.RejectionReason,
		CreatedAt:       req.CreatedAt,
		ExpiresAt:       req.ExpiresAt,
	}
	if req.Proof != nil {
		body.TransactionReference = req.Proof.TransactionReference
		body.AttachmentRef = req.Proof.AttachmentRef
	}
	if !req.FinalizedAt.IsZero() {
		finalizedAt := req.FinalizedAt.Time
		body.FinalizedAt = &finalizedAt
	}
	return body
}

// findOwned loads a payment request of the authenticated caller.
// Requests of other callers are reported as not found.
func findOwned(c echo.Context, svc *service.PaymentService, id string) (*models.PaymentRequest, error) {
	req, err := svc.GetStatus(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if req.CallerID != tokens.CallerID(c) {
		return nil, service.ErrNotFound
	}
	return req, nil
}

// CreatePaymentRequest godoc
// @Summary      Create a payment request
// @Description  Registers a payment intent with the rail and returns the QR payload, deep link and instructions
// @Accept       json
// @Produce      json
// @Tags         Payment
// @Param        Idempotency-Key  header    string                    false  "Client idempotency key"
// @Param        payment          body      CreatePaymentRequestBody  True   "Create payment request"
// @Success      201              {object}  PaymentRequestResponseBody
// @Failure      400              {object}  responses.ErrorResponse
// @Failure      409              {object}  responses.ErrorResponse
// @Failure      502              {object}  responses.ErrorResponse
// @Failure      500              {object}  responses.ErrorResponse
// @Router       /v2/payments [post]
// @Security     OAuth2Password
func (controller *PaymentController) CreatePaymentRequest(c echo.Context) error {
	callerID := tokens.CallerID(c)
	var body CreatePaymentRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create payment request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid create payment request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")
	}

	c.Logger().Infof("Creating payment request: caller_id:%s amount:%s note:%s", callerID, body.Amount, body.Note)
	req, err := controller.svc.CreatePaymentRequest(c.Request().Context(), service.CreatePaymentRequestParams{
		CallerID:        callerID,
		Amount:          body.Amount,
		PayeeAddress:    body.PayeeAddress,
		PayeeName:       body.PayeeName,
		Note:            body.Note,
		RequireEvidence: body.RequireEvidence,
		IdempotencyKey:  body.IdempotencyKey,
	})
	if err != nil {
		c.Logger().Errorf("Error creating payment request: caller_id:%s error: %v", callerID, err)
		return responses.RespondWithError(c, err)
	}

	return c.JSON(http.StatusCreated, newPaymentRequestResponseBody(controller.svc, req))
}

// GetPaymentRequest godoc
// @Summary      Get a payment request
// @Description  Returns the current status and outcome of a payment request
// @Accept       json
// @Produce      json
// @Tags         Payment
// @Param        id   path      string  true  "Payment request id"
// @Success      200  {object}  PaymentRequestResponseBody
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/payments/{id} [get]
// @Security     OAuth2Password
func (controller *PaymentController) GetPaymentRequest(c echo.Context) error {
	req, err := findOwned(c, controller.svc, c.Param("id"))
	if err != nil {
		return responses.RespondWithError(c, err)
	}
	return c.JSON(http.StatusOK, newPaymentRequestResponseBody(controller.svc, req))
}

// GetQRCode godoc
// @Summary      Payment QR code
// @Description  Returns the UPI QR code of a payment request as PNG
// @Produce      png
// @Tags         Payment
// @Param        id   path      string  true  "Payment request id"
// @Success      200  {file}    binary
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/payments/{id}/qr [get]
func (controller *PaymentController) GetQRCode(c echo.Context) error {
	req, err := controller.svc.GetStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return responses.RespondWithError(c, err)
	}
	png, err := qrcode.Encode(req.QRPayload, qrcode.Medium, 256)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
