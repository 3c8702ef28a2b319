package middleware

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visitor-tracker/internal/logger"
	"github.com/iliyamo/visitor-tracker/internal/model"
)

// VisitorBodyKey is where JSONBody stores the decoded model.Visitor.
const VisitorBodyKey = "visitor_body"

// JSONBody decodes the body of write requests into a model.Visitor before
// the handler runs.  Malformed JSON, or JSON that is not an object, ends
// the request with 400.  Read errors (e.g. the BodyLimit cap) are passed
// to echo's error handler unchanged.
func JSONBody() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				return next(c)
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					return he
				}
				return echo.NewHTTPError(http.StatusBadRequest).SetInternal(err)
			}

			v, err := model.ParseVisitor(body)
			if err != nil {
				logger.LogWf("rejecting %s %s: %v", c.Request().Method, c.Path(), err)
				return c.JSON(http.StatusBadRequest, echo.Map{
					"success": false,
					"message": "Invalid JSON body",
				})
			}
			c.Set(VisitorBodyKey, v)
			return next(c)
		}
	}
}
