package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/seongpil0948/all-ad-sub002/internal/config"
	"github.com/seongpil0948/all-ad-sub002/internal/http/handler"
	httpmiddleware "github.com/seongpil0948/all-ad-sub002/internal/http/middleware"
	"github.com/seongpil0948/all-ad-sub002/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, credentialHandler *handler.CredentialHandler, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", credentialHandler.Health)
	r.GET("/api/providers", credentialHandler.ListProviders)

	api := r.Group("/api", httpmiddleware.Team())
	{
		auth := api.Group("/auth")
		{
			auth.GET("/:provider/start", credentialHandler.StartConnection)
			auth.GET("/:provider/callback", credentialHandler.OAuthCallback)
			auth.POST("/refresh", credentialHandler.RefreshTokens)
		}

		credentials := api.Group("/credentials")
		{
			credentials.GET("", credentialHandler.ListCredentials)
			credentials.DELETE("/:id", credentialHandler.Disconnect)
		}
	}

	return r
}
