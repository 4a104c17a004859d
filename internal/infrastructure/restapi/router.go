package restapi

import (
	"net/http"

	"paygate/internal/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter builds the gin engine serving the checkout API.
func SetupRouter(h *Handlers, metrics http.Handler, allowOrigins []string, zapLogger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(allowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(logger.GinMiddleware(zapLogger))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1")
	{
		checkout := v1.Group("/checkout/:action")
		checkout.GET("", h.GetCheckout)
		checkout.POST("/pay", h.Pay)
		checkout.POST("/dismiss", h.Dismiss)

		v1.POST("/jobs", h.CreateJob)
		v1.POST("/premium/activate", h.ActivatePremium)
		v1.GET("/premium/status", h.PremiumStatus)
	}

	return router
}
