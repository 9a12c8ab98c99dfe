package responses

import (
	"errors"
	"net/http"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/lib/service"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool           `json:"error"`
	Code           int            `json:"code"`
	Message        string         `json:"message"`
	Outcome        common.Outcome `json:"outcome,omitempty"`
	HttpStatusCode int            `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var InvalidAmountError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "amount outside of the allowed range",
	HttpStatusCode: 400,
}

var RequestCreationFailedError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "payment request could not be created. Please try again",
	HttpStatusCode: 502,
}

var NotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "payment request not found",
	HttpStatusCode: 404,
}

var RequestExpiredError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "payment request expired. Please create a new one",
	Outcome:        common.OutcomeExpired,
	HttpStatusCode: 410,
}

var ProofAlreadySubmittedError = ErrorResponse{
	Error:          true,
	Code:           7,
	Message:        "a proof was already submitted for this payment request",
	HttpStatusCode: 409,
}

var MissingTransactionReferenceError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "transaction reference is required",
	HttpStatusCode: 400,
}

var EvidenceRequiredError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "a payment screenshot or receipt is required",
	HttpStatusCode: 400,
}

var InvalidPaymentMethodError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "unknown payment method",
	HttpStatusCode: 400,
}

var IllegalTransitionError = ErrorResponse{
	Error:          true,
	Code:           9,
	Message:        "operation not allowed in the current payment status",
	HttpStatusCode: 409,
}

var RequestAlreadyFinalizedError = ErrorResponse{
	Error:          true,
	Code:           10,
	Message:        "payment request already finalized",
	HttpStatusCode: 409,
}

var VerificationRejectedError = ErrorResponse{
	Error:          true,
	Code:           11,
	Message:        "the payment could not be verified",
	Outcome:        common.OutcomeRejected,
	HttpStatusCode: 422,
}

var VerificationTimedOutError = ErrorResponse{
	Error:          true,
	Code:           12,
	Message:        "verification is taking longer than expected, the payment will be reviewed manually",
	Outcome:        common.OutcomeNeedsManualReview,
	HttpStatusCode: 202,
}

var IdempotencyConflictError = ErrorResponse{
	Error:          true,
	Code:           13,
	Message:        "a request with this idempotency key is still being created. Please retry later",
	HttpStatusCode: 409,
}

var EvidenceUnavailableError = ErrorResponse{
	Error:          true,
	Code:           14,
	Message:        "evidence uploads are not available, submit an attachment reference instead",
	HttpStatusCode: 501,
}

var EvidenceTooLargeError = ErrorResponse{
	Error:          true,
	Code:           15,
	Message:        "evidence attachment is too large",
	HttpStatusCode: 413,
}

var domainErrors = []struct {
	err      error
	response ErrorResponse
}{
	{service.ErrInvalidAmount, InvalidAmountError},
	{service.ErrRequestCreationFailed, RequestCreationFailedError},
	{service.ErrNotFound, NotFoundError},
	{service.ErrRequestExpired, RequestExpiredError},
	{service.ErrProofAlreadySubmitted, ProofAlreadySubmittedError},
	{service.ErrMissingTransactionReference, MissingTransactionReferenceError},
	{service.ErrEvidenceRequired, EvidenceRequiredError},
	{service.ErrInvalidPaymentMethod, InvalidPaymentMethodError},
	{service.ErrRequestAlreadyFinalized, RequestAlreadyFinalizedError},
	{service.ErrIllegalTransition, IllegalTransitionError},
	{service.ErrVerificationRejected, VerificationRejectedError},
	{service.ErrVerificationTimedOut, VerificationTimedOutError},
	{service.ErrIdempotencyConflict, IdempotencyConflictError},
	{service.ErrEvidenceUnavailable, EvidenceUnavailableError},
	{service.ErrEvidenceTooLarge, EvidenceTooLargeError},
	// a conditional write lost the race against another transition
	{service.ErrStaleStatus, IllegalTransitionError},
}

// FromError maps a service error to the response shown to the caller.
// ok is false for errors that are not part of the domain taxonomy.
func FromError(err error) (ErrorResponse, bool) {
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			return de.response, true
		}
	}
	return GeneralServerError, false
}

// RespondWithError writes the mapped error response, unexpected errors are
// passed on to the echo error handler.
func RespondWithError(c echo.Context, err error) error {
	resp, ok := FromError(err)
	if !ok {
		return err
	}
	return c.JSON(resp.HttpStatusCode, &resp)
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil && isErrAllowedForSentry(err) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("CallerID", c.Get("CallerID"))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
		return
	}
	if resp, ok := FromError(err); ok {
		c.JSON(resp.HttpStatusCode, &resp)
		return
	}
	c.JSON(http.StatusInternalServerError, GeneralServerError)
}

func isErrAllowedForSentry(err error) bool {
	if he, ok := err.(*echo.HTTPError); ok {
		if m, ok := he.Message.(echo.Map); ok {
			if code, ok := m["code"].(int); ok && code == BadAuthError.Code {
				return false
			}
		}
		if resp, ok := he.Message.(ErrorResponse); ok && resp.Code == BadAuthError.Code {
			return false
		}
	}
	if _, ok := FromError(err); ok {
		return false
	}
	return true
}
