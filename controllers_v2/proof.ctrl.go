package v2controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/lib/responses"
	"github.com/edupay/upiverify/lib/service"
	"github.com/edupay/upiverify/lib/tokens"
	"github.com/labstack/echo/v4"
)

// ProofController : Proof submission controller struct
type ProofController struct {
	svc *service.PaymentService
}

func NewProofController(svc *service.PaymentService) *ProofController {
	return &ProofController{svc: svc}
}

type SubmitProofRequestBody struct {
	TransactionReference string `json:"transaction_reference" form:"transaction_reference" validate:"max=64"`
	Method               string `json:"method" form:"method"`
	AttachmentRef        string `json:"attachment_ref" form:"attachment_ref" validate:"max=1024"`
}

// SubmitProof godoc
// @Summary      Submit a payment proof
// @Description  Attaches the UPI transaction reference (and optional evidence) and starts verification
// @Accept       json,mpfd
// @Produce      json
// @Tags         Payment
// @Param        id     path      string                  true   "Payment request id"
// @Param        proof  body      SubmitProofRequestBody  True   "Proof"
// @Success      200    {object}  PaymentRequestResponseBody
// @Failure      400    {object}  responses.ErrorResponse
// @Failure      404    {object}  responses.ErrorResponse
// @Failure      409    {object}  responses.ErrorResponse
// @Failure      410    {object}  responses.ErrorResponse
// @Failure      413    {object}  responses.ErrorResponse
// @Failure      500    {object}  responses.ErrorResponse
// @Router       /v2/payments/{id}/proof [post]
// @Security     OAuth2Password
func (controller *ProofController) SubmitProof(c echo.Context) error {
	callerID := tokens.CallerID(c)
	var body SubmitProofRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load submit proof request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid submit proof request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	id := c.Param("id")
	if _, err := findOwned(c, controller.svc, id); err != nil {
		return responses.RespondWithError(c, err)
	}

	params := service.SubmitProofParams{
		TransactionReference: body.TransactionReference,
		Method:               common.PaymentMethod(body.Method),
	}
	if body.AttachmentRef != "" {
		params.Attachment = &service.Attachment{Reference: body.AttachmentRef}
	}
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fileHeader, err := c.FormFile("attachment")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			c.Logger().Errorf("Failed to read evidence attachment: %v", err)
			return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
		}
		if fileHeader != nil {
			file, err := fileHeader.Open()
			if err != nil {
				return err
			}
			defer file.Close()
			params.Attachment = &service.Attachment{
				Filename:    fileHeader.Filename,
				ContentType: fileHeader.Header.Get(echo.HeaderContentType),
				Size:        fileHeader.Size,
				Body:        file,
			}
		}
	}

	c.Logger().Infof("Submitting proof: caller_id:%s id:%s reference:%s", callerID, id, params.TransactionReference)
	req, err := controller.svc.SubmitPaymentProof(c.Request().Context(), id, params)
	if err != nil {
		c.Logger().Infof("Proof rejected: caller_id:%s id:%s error: %v", callerID, id, err)
		return responses.RespondWithError(c, err)
	}

	if req.Status == common.StatusVerifying {
		if _, err := controller.svc.StartPolling(c.Request().Context(), id); err != nil {
			c.Logger().Errorf("Could not start verification polling id:%s: %v", id, err)
		}
	}
	return c.JSON(http.StatusOK, newPaymentRequestResponseBody(controller.svc, req))
}
