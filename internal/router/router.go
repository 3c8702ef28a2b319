package router // package router wires the HTTP surface of the tracker onto an Echo instance

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/visitor-tracker/internal/handler"
	"github.com/iliyamo/visitor-tracker/internal/middleware"
)

// BodyLimit caps request bodies on every route.
const BodyLimit = "100K"

// Options carries the optional pieces of the middleware chain.  Nil
// middleware funcs are skipped.
type Options struct {
	AllowOrigins []string
	RateLimit    echo.MiddlewareFunc
	Cache        echo.MiddlewareFunc
}

// RegisterRoutes installs global middleware and the /api routes.
//
// The health check sits outside the rate limited group so monitoring keeps
// working under load.  Reads go through the response cache; the track
// endpoint decodes its body with middleware.JSONBody.
func RegisterRoutes(e *echo.Echo, h *handler.VisitorHandler, opts Options) {
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: origins}))
	e.Use(echomw.BodyLimit(BodyLimit))

	e.GET("/api/health", handler.Health)

	api := e.Group("/api")
	if opts.RateLimit != nil {
		api.Use(opts.RateLimit)
	}

	api.POST("/track", h.Track, middleware.JSONBody())

	var reads []echo.MiddlewareFunc
	if opts.Cache != nil {
		reads = append(reads, opts.Cache)
	}
	api.GET("/visitors", h.List, reads...)
	api.GET("/stats", h.Stats, reads...)
}
