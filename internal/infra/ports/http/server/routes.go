package server

import (
	"github.com/labstack/echo/v4"

	"github.com/okutsev/TuneRoom/internal/application/config"
	"github.com/okutsev/TuneRoom/internal/infra/ports/http/handlers"
	"github.com/okutsev/TuneRoom/internal/infra/ports/http/middleware"
)

func New(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	trackHandler *handlers.TrackHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	api := e.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		v1 := api.Group("/v1")
		v1.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
		{
			v1.GET("/me", authHandler.GetMe)

			v1.GET("/ws", wsHandler.Handle)

			v1.GET("/tracks", trackHandler.ListTracksHandler)
			v1.POST("/tracks", trackHandler.CreateTrackHandler)
		}
	}

	e.Static("/", "web")

	return e
}
