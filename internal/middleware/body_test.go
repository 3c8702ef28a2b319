package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visitor-tracker/internal/model"
)

func serveBody(t *testing.T, method, body string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, model.Visitor, bool) {
	t.Helper()
	e := echo.New()
	var got model.Visitor
	called := false
	e.Add(method, "/api/track", func(c echo.Context) error {
		called = true
		got, _ = c.Get(VisitorBodyKey).(model.Visitor)
		return c.NoContent(http.StatusOK)
	}, mws...)

	req := httptest.NewRequest(method, "/api/track", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, got, called
}

func TestJSONBody_StoresVisitor(t *testing.T) {
	rec, got, called := serveBody(t, http.MethodPost, `{"browser":"Chrome"}`, JSONBody())

	require.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Chrome", got.Label(model.FieldBrowser))
}

func TestJSONBody_EmptyBodyIsEmptyVisitor(t *testing.T) {
	rec, got, called := serveBody(t, http.MethodPost, "", JSONBody())

	require.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestJSONBody_RejectsMalformed(t *testing.T) {
	for _, body := range []string{`{"browser":`, `[{"a":1}]`, `"x"`} {
		rec, _, called := serveBody(t, http.MethodPost, body, JSONBody())

		assert.False(t, called, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"success":false,"message":"Invalid JSON body"}`, rec.Body.String())
	}
}

func TestJSONBody_IgnoresReads(t *testing.T) {
	rec, _, called := serveBody(t, http.MethodGet, `{broken`, JSONBody())

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJSONBody_TooLarge(t *testing.T) {
	body := `{"pad":"` + strings.Repeat("x", 2048) + `"}`
	rec, _, called := serveBody(t, http.MethodPost, body, echomw.BodyLimit("1K"), JSONBody())

	assert.False(t, called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
