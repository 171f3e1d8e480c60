package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterOptions configures middleware around the API routes.
type RouterOptions struct {
	ServiceName  string
	AllowOrigins []string
}

// NewRouter builds a gin engine with recovery, tracing, CORS and the API routes.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if opts.ServiceName != "" {
		router.Use(otelgin.Middleware(opts.ServiceName))
	}

	if len(opts.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Authorization", "Content-Type", "X-Requested-With"},
		}))
	}

	h.SetupRoutes(router)
	return router
}
