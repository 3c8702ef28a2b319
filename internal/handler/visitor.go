package handler

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/visitor-tracker/internal/logger"
	"github.com/iliyamo/visitor-tracker/internal/middleware"
	"github.com/iliyamo/visitor-tracker/internal/model"
	"github.com/iliyamo/visitor-tracker/internal/queue"
	"github.com/iliyamo/visitor-tracker/internal/service"
)

// VisitorStore is the persistence the handlers need; repository.VisitorRepo
// implements it.
type VisitorStore interface {
	Load(ctx context.Context) ([]model.Visitor, error)
	Append(ctx context.Context, v model.Visitor) error
}

// EventPublisher announces persisted visitors to other systems.
type EventPublisher interface {
	PublishVisitorTracked(ctx context.Context, event queue.VisitorTrackedEvent) error
}

// CacheInvalidator drops cached read responses after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

const publishTimeout = 5 * time.Second

// VisitorHandler serves the track, visitors and stats endpoints.  Publisher
// and Cache are optional.
type VisitorHandler struct {
	Store     VisitorStore
	Publisher EventPublisher
	Cache     CacheInvalidator

	now       func() time.Time
	publishes sync.WaitGroup
}

// NewVisitorHandler panics on a nil store; there is nothing to serve without one.
func NewVisitorHandler(store VisitorStore, publisher EventPublisher, cache CacheInvalidator) *VisitorHandler {
	if store == nil {
		panic("nil store passed to NewVisitorHandler")
	}
	return &VisitorHandler{Store: store, Publisher: publisher, Cache: cache, now: time.Now}
}

// Track stamps the posted visitor with an id and server timestamp and
// appends it to the store.
func (h *VisitorHandler) Track(c echo.Context) error {
	v, err := visitorFromRequest(c)
	if err != nil {
		logger.LogWf("track: invalid body: %v", err)
		return c.JSON(http.StatusBadRequest, failure("Invalid JSON body"))
	}

	id := v.Stamp(h.now())
	ctx := c.Request().Context()
	if err := h.Store.Append(ctx, v); err != nil {
		logger.LogEf("Error tracking visitor: %v", err)
		return c.JSON(http.StatusInternalServerError, failure("Error tracking visitor"))
	}

	logger.LogWithField(zapcore.InfoLevel, map[string]interface{}{
		"message":  "New visitor tracked",
		"id":       id,
		"ip":       v.Label(model.FieldIP),
		"device":   v.Label(model.FieldDeviceType),
		"browser":  v.Label(model.FieldBrowser),
		"location": v.Location(),
	})

	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx); err != nil {
			logger.LogWf("track: cache invalidation failed: %v", err)
		}
	}
	if h.Publisher != nil {
		event := queue.NewVisitorTrackedEvent(v)
		h.publishes.Add(1)
		go func() {
			defer h.publishes.Done()
			pctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			// failures are logged by the publisher
			_ = h.Publisher.PublishVisitorTracked(pctx, event)
		}()
	}

	return c.JSON(http.StatusOK, trackResp{
		Success:   true,
		Message:   "Visitor tracked successfully",
		VisitorID: id,
	})
}

// WaitPublished blocks until every event publish started by Track has
// finished, or ctx is done.  Call it after the HTTP server has stopped
// accepting requests.
func (h *VisitorHandler) WaitPublished(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.publishes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns every stored visitor in insertion order.
func (h *VisitorHandler) List(c echo.Context) error {
	visitors, err := h.Store.Load(c.Request().Context())
	if err != nil {
		logger.LogEf("Error reading visitors: %v", err)
		return c.JSON(http.StatusInternalServerError, failure("Error reading visitors"))
	}
	return c.JSON(http.StatusOK, visitorsResp{
		Success:  true,
		Count:    len(visitors),
		Visitors: visitors,
	})
}

// Stats returns per-field counts over the whole store.
func (h *VisitorHandler) Stats(c echo.Context) error {
	visitors, err := h.Store.Load(c.Request().Context())
	if err != nil {
		logger.LogEf("Error calculating stats: %v", err)
		return c.JSON(http.StatusInternalServerError, failure("Error calculating statistics"))
	}
	return c.JSON(http.StatusOK, statsResp{
		Success: true,
		Stats:   service.ComputeStats(visitors),
	})
}

// visitorFromRequest prefers the body decoded by middleware.JSONBody and
// decodes it here when the handler is mounted without that middleware.
func visitorFromRequest(c echo.Context) (model.Visitor, error) {
	if v, ok := c.Get(middleware.VisitorBodyKey).(model.Visitor); ok && v != nil {
		return v, nil
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	return model.ParseVisitor(body)
}
