package transport

import (
	"time"

	v2controllers "github.com/edupay/upiverify/controllers_v2"
	"github.com/edupay/upiverify/lib/service"
	"github.com/labstack/echo/v4"
)

func RegisterV2Endpoints(svc *service.PaymentService, e *echo.Echo, secured *echo.Group, securedWithStrictRateLimit *echo.Group, adminMw echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	e.GET("/health", v2controllers.NewHealthController().Check)

	paymentCtrl := v2controllers.NewPaymentController(svc)
	pollCtrl := v2controllers.NewPollController(svc)

	securedWithStrictRateLimit.POST("/v2/payments", paymentCtrl.CreatePaymentRequest)
	secured.GET("/v2/payments/:id", paymentCtrl.GetPaymentRequest)
	// payer facing and immutable, addressed by the unguessable request id
	e.GET("/v2/payments/:id/qr", paymentCtrl.GetQRCode, CreateCacheMiddleware(time.Hour), logMw)
	securedWithStrictRateLimit.POST("/v2/payments/:id/proof", v2controllers.NewProofController(svc).SubmitProof)

	secured.POST("/v2/payments/:id/poll", pollCtrl.StartPolling)
	secured.GET("/v2/payments/:id/resolution", pollCtrl.AwaitResolution)
	secured.DELETE("/v2/payments/:id/poll", pollCtrl.CancelPolling)

	//require admin token for operator endpoints
	if svc.Config.AdminToken != "" {
		adminCtrl := v2controllers.NewAdminController(svc)
		e.GET("/v2/admin/payments/review", adminCtrl.NeedsReview, adminMw, logMw)
		e.POST("/v2/admin/payments/:id/poll", adminCtrl.RestartPolling, adminMw, logMw)
	}
}
