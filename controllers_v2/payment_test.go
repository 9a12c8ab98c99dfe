package v2controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edupay/upiverify/common"
	v2controllers "github.com/edupay/upiverify/controllers_v2"
	"github.com/edupay/upiverify/lib"
	"github.com/edupay/upiverify/lib/responses"
	"github.com/edupay/upiverify/lib/service/servicetest"
	"github.com/edupay/upiverify/lib/tokens"
	"github.com/edupay/upiverify/lib/transport"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

var jwtSecret = []byte("SECRET")

type PaymentControllerTestSuite struct {
	suite.Suite
	echo  *echo.Echo
	h     *servicetest.Harness
	token string
}

func (suite *PaymentControllerTestSuite) SetupTest() {
	c := servicetest.Config()
	c.JWTSecret = jwtSecret
	c.AdminToken = "admin-secret"
	c.MaxEvidenceSize = 1024
	c.DefaultRateLimit = 1000
	c.StrictRateLimit = 1000
	c.BurstRateLimit = 1000
	suite.h = servicetest.NewHarness(c)

	e := echo.New()
	e.HTTPErrorHandler = responses.HTTPErrorHandler
	e.Validator = &lib.CustomValidator{Validator: validator.New()}
	logMw := transport.CreateLoggingMiddleware(suite.h.Svc.Logger)
	secured := e.Group("", tokens.Middleware(jwtSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(jwtSecret), transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit), logMw)
	transport.RegisterV2Endpoints(suite.h.Svc, e, secured, securedWithStrictRateLimit, tokens.AdminTokenMiddleware(c.AdminToken), logMw)
	suite.echo = e

	token, err := tokens.GenerateAccessToken(jwtSecret, "caller-1", time.Hour)
	suite.Require().NoError(err)
	suite.token = token
}

func (suite *PaymentControllerTestSuite) TearDownTest() {
	suite.h.Svc.Shutdown()
}

func (suite *PaymentControllerTestSuite) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	return rec
}

func (suite *PaymentControllerTestSuite) create(body map[string]interface{}) *v2controllers.PaymentRequestResponseBody {
	rec := suite.do(http.MethodPost, "/v2/payments", body, suite.token)
	suite.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	created := &v2controllers.PaymentRequestResponseBody{}
	suite.Require().NoError(json.NewDecoder(rec.Body).Decode(created))
	return created
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) responses.ErrorResponse {
	resp := responses.ErrorResponse{}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (suite *PaymentControllerTestSuite) TestCreateAndGet() {
	created := suite.create(map[string]interface{}{"amount": "499", "note": "Term fee"})
	suite.Equal("499.00", created.Amount)
	suite.Equal(string(common.StatusAwaitingProof), created.Status)
	suite.Equal(common.OutcomeStillWaiting, created.Outcome)
	suite.Contains(created.DeepLink, "upi://pay?pa=merchant@upi")
	suite.Equal(created.DeepLink, created.QRPayload)
	suite.Contains(created.Instructions, "INR 499.00")

	rec := suite.do(http.MethodGet, "/v2/payments/"+created.ID, nil, suite.token)
	suite.Equal(http.StatusOK, rec.Code)
	fetched := &v2controllers.PaymentRequestResponseBody{}
	suite.NoError(json.NewDecoder(rec.Body).Decode(fetched))
	suite.Equal(created.ID, fetched.ID)
}

func (suite *PaymentControllerTestSuite) TestCreateInvalidAmount() {
	rec := suite.do(http.MethodPost, "/v2/payments", map[string]interface{}{"amount": "0"}, suite.token)
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Equal(responses.InvalidAmountError.Code, decodeError(suite.T(), rec).Code)
}

func (suite *PaymentControllerTestSuite) TestRequiresAuth() {
	rec := suite.do(http.MethodPost, "/v2/payments", map[string]interface{}{"amount": "10"}, "")
	suite.Equal(http.StatusUnauthorized, rec.Code)
	rec = suite.do(http.MethodGet, "/v2/payments/anything", nil, "not-a-jwt")
	suite.Equal(http.StatusUnauthorized, rec.Code)
}

func (suite *PaymentControllerTestSuite) TestOtherCallerGetsNotFound() {
	created := suite.create(map[string]interface{}{"amount": "10"})
	other, err := tokens.GenerateAccessToken(jwtSecret, "caller-2", time.Hour)
	suite.Require().NoError(err)

	rec := suite.do(http.MethodGet, "/v2/payments/"+created.ID, nil, other)
	suite.Equal(http.StatusNotFound, rec.Code)
	rec = suite.do(http.MethodPost, "/v2/payments/"+created.ID+"/proof", map[string]string{"transaction_reference": "TXN1"}, other)
	suite.Equal(http.StatusNotFound, rec.Code)
}

func (suite *PaymentControllerTestSuite) TestSubmitProofVerifies() {
	created := suite.create(map[string]interface{}{"amount": "10"})
	suite.h.Rail.Script(servicetest.Verified())

	rec := suite.do(http.MethodPost, "/v2/payments/"+created.ID+"/proof", map[string]string{"transaction_reference": "TXN123", "method": "upi_qr"}, suite.token)
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = suite.do(http.MethodGet, "/v2/payments/"+created.ID+"/resolution?wait=2s", nil, suite.token)
	suite.Require().Equal(http.StatusOK, rec.Code)
	resolved := &v2controllers.PaymentRequestResponseBody{}
	suite.NoError(json.NewDecoder(rec.Body).Decode(resolved))
	suite.Equal(string(common.StatusVerified), resolved.Status)
	suite.Equal(common.OutcomeSucceeded, resolved.Outcome)
	suite.Equal("TXN123", resolved.TransactionReference)
	suite.Len(suite.h.Notifier.Received(), 1)
}

func (suite *PaymentControllerTestSuite) TestSubmitProofErrors() {
	created := suite.create(map[string]interface{}{"amount": "10"})

	rec := suite.do(http.MethodPost, "/v2/payments/"+created.ID+"/proof", map[string]string{"transaction_reference": ""}, suite.token)
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Equal(responses.MissingTransactionReferenceError.Message, decodeError(suite.T(), rec).Message)

	rec = suite.do(http.MethodPost, "/v2/payments/"+created.ID+"/proof", map[string]string{"transaction_reference": "TXN1"}, suite.token)
	suite.Equal(http.StatusOK, rec.Code)
	rec = suite.do(http.MethodPost, "/v2/payments/"+created.ID+"/proof", map[string]string{"transaction_reference": "TXN2"}, suite.token)
	suite.Equal(http.StatusConflict, rec.Code)
}

func (suite *PaymentControllerTestSuite) TestSubmitProofExpired() {
	created := suite.create(map[string]interface{}{"amount": "10"})
	suite.h.Clock.Advance(301 * time.Second)

	rec := suite.do(http.MethodPost, "/v2/payments/"+created.ID+"/proof", map[string]string{"transaction_reference": "TXN123"}, suite.token)
	suite.Equal(http.StatusGone, rec.Code)
	suite.Equal(common.OutcomeExpired, decodeError(suite.T(), rec).Outcome)
}

func (suite *PaymentControllerTestSuite) uploadProof(id string, attachmentSize int) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	suite.Require().NoError(writer.WriteField("transaction_reference", "TXN123"))
	part, err := writer.CreateFormFile("attachment", "receipt.png")
	suite.Require().NoError(err)
	_, err = part.Write(bytes.Repeat([]byte("x"), attachmentSize))
	suite.Require().NoError(err)
	suite.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v2/payments/"+id+"/proof", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+suite.token)
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	return rec
}

func (suite *PaymentControllerTestSuite) TestSubmitProofEvidenceTooLarge() {
	created := suite.create(map[string]interface{}{"amount": "10", "require_evidence": true})

	rec := suite.uploadProof(created.ID, 2048)
	suite.Equal(http.StatusRequestEntityTooLarge, rec.Code)
	suite.Equal(responses.EvidenceTooLargeError.Code, decodeError(suite.T(), rec).Code)

	stored, err := suite.h.Svc.GetStatus(context.Background(), created.ID)
	suite.Require().NoError(err)
	suite.Equal(common.StatusAwaitingProof, stored.Status)
	suite.False(stored.HasProof())
}

func (suite *PaymentControllerTestSuite) TestSubmitOversizedProofToExpiredRequest() {
	created := suite.create(map[string]interface{}{"amount": "10", "require_evidence": true})
	suite.h.Clock.Advance(301 * time.Second)

	rec := suite.uploadProof(created.ID, 2048)
	suite.Equal(http.StatusGone, rec.Code)
	suite.Equal(common.OutcomeExpired, decodeError(suite.T(), rec).Outcome)
}

func (suite *PaymentControllerTestSuite) TestSubmitOversizedProofTwice() {
	created := suite.create(map[string]interface{}{"amount": "10"})
	rec := suite.do(http.MethodPost, "/v2/payments/"+created.ID+"/proof", map[string]string{"transaction_reference": "TXN1"}, suite.token)
	suite.Require().Equal(http.StatusOK, rec.Code)

	// the first proof decides the outcome, not the size of the second one
	rec = suite.uploadProof(created.ID, 2048)
	suite.Equal(http.StatusConflict, rec.Code)
}

func (suite *PaymentControllerTestSuite) TestCancelPolling() {
	created := suite.create(map[string]interface{}{"amount": "10"})
	rec := suite.do(http.MethodPost, "/v2/payments/"+created.ID+"/proof", map[string]string{"transaction_reference": "TXN1"}, suite.token)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.True(suite.h.Svc.IsPolling(created.ID))

	rec = suite.do(http.MethodDelete, "/v2/payments/"+created.ID+"/poll", nil, suite.token)
	suite.Equal(http.StatusNoContent, rec.Code)
	suite.Eventually(func() bool { return !suite.h.Svc.IsPolling(created.ID) }, time.Second, 5*time.Millisecond)

	rec = suite.do(http.MethodGet, "/v2/payments/"+created.ID, nil, suite.token)
	fetched := &v2controllers.PaymentRequestResponseBody{}
	suite.NoError(json.NewDecoder(rec.Body).Decode(fetched))
	suite.Equal(string(common.StatusVerifying), fetched.Status)
	suite.Equal(common.OutcomeNeedsManualReview, fetched.Outcome)

	rec = suite.do(http.MethodGet, "/v2/admin/payments/review", nil, "admin-secret")
	suite.Equal(http.StatusOK, rec.Code)
	review := &v2controllers.NeedsReviewResponseBody{}
	suite.NoError(json.NewDecoder(rec.Body).Decode(review))
	suite.Len(review.Payments, 1)

	rec = suite.do(http.MethodPost, "/v2/admin/payments/"+created.ID+"/poll", nil, "wrong")
	suite.Equal(http.StatusUnauthorized, rec.Code)
	rec = suite.do(http.MethodPost, "/v2/admin/payments/"+created.ID+"/poll", nil, "admin-secret")
	suite.Equal(http.StatusAccepted, rec.Code)
}

func (suite *PaymentControllerTestSuite) TestQRCode() {
	created := suite.create(map[string]interface{}{"amount": "10"})

	rec := suite.do(http.MethodGet, "/v2/payments/"+created.ID+"/qr", nil, "")
	suite.Equal(http.StatusOK, rec.Code)
	suite.Equal("image/png", rec.Header().Get(echo.HeaderContentType))
	suite.NotEmpty(rec.Body.Bytes())
}

func (suite *PaymentControllerTestSuite) TestHealth() {
	rec := suite.do(http.MethodGet, "/health", nil, "")
	suite.Equal(http.StatusOK, rec.Code)
}

func TestPaymentControllerTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentControllerTestSuite))
}
