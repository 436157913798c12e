package routes

import (
	"github.com/BradenHooton/alumni-onboard/internal/handlers"
	"github.com/BradenHooton/alumni-onboard/internal/middleware"
	pkghttp "github.com/BradenHooton/alumni-onboard/pkg/http"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the verifier's routes under /v1
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	verificationHandler *handlers.VerificationHandler,
	ipConfig *pkghttp.IPConfig,
) {
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit(ipConfig))
	sendLimit := middleware.RateLimitByIP(middleware.DefaultSendRateLimit(ipConfig))

	router.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/otp", func(r chi.Router) {
			r.With(sendLimit).Post("/send", verificationHandler.SendOTP)
			r.With(authLimit).Post("/verify", verificationHandler.VerifyOTP)
		})

		r.Route("/email", func(r chi.Router) {
			r.With(sendLimit).Post("/send", verificationHandler.SendEmail)
			// Polled by the client on every "I've verified" tap.
			r.Post("/status", verificationHandler.EmailStatus)
			r.With(authLimit).Get("/verify", verificationHandler.ConfirmEmail)
		})
	})
}
