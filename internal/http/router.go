// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"navsmart/internal/http/handlers"
	"navsmart/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))

	corsConfig := cors.DefaultConfig()
	if len(deps.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = deps.CORSOrigins
	}
	r.Use(cors.New(corsConfig))

	locationHandler := handlers.NewLocationHandler(deps.Planner)
	r.POST("/location/get-route", locationHandler.GetRoute)
	r.POST("/location/get-details-route", locationHandler.GetDetailsRoute)

	itineraryHandler := handlers.NewItineraryHandler(deps.Itinerary)
	r.POST("/location/get-itinerary", itineraryHandler.Get)

	if deps.Chat != nil {
		r.GET("/chat/ws", gin.WrapH(deps.Chat))
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return r
}
