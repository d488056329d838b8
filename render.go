package shire

import (
	"errors"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func apiMessage(c echo.Context, code int, msg, field string) error {
	return c.JSON(code, ErrorResponse{Message: msg, Field: field})
}

// apiError maps repository errors onto API status codes.
func (a *App) apiError(c echo.Context, err error) error {
	if ve, ok := AsValidationError(err); ok {
		msg := ve.Message
		if ve.Field != "" {
			msg = ve.Field + " " + ve.Message
		}
		return apiMessage(c, http.StatusBadRequest, msg, ve.Field)
	}
	var nf *NotFoundError
	switch {
	case errors.As(err, &nf):
		return apiMessage(c, http.StatusNotFound, notFoundMessage(nf.Kind), "")
	case errors.Is(err, ErrNotFound):
		return apiMessage(c, http.StatusNotFound, "Not found", "")
	case errors.Is(err, ErrUnauthorized):
		return apiMessage(c, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, ErrSlugConflict):
		return apiMessage(c, http.StatusConflict, "A post with this slug already exists", "title")
	}
	a.Logger.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("api request failed")
	return apiMessage(c, http.StatusInternalServerError, "Internal server error", "")
}

func notFoundMessage(kind string) string {
	switch kind {
	case "post":
		return "Blog post not found"
	case "":
		return "Not found"
	}
	return strings.ToUpper(kind[:1]) + kind[1:] + " not found"
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	code := http.StatusInternalServerError
	switch {
	case ok:
		code = he.Code
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	}

	if isAPIPath(c.Request().URL.Path) {
		if !ok {
			_ = a.apiError(c, err)
			return
		}
		msg := http.StatusText(code)
		if m, isString := he.Message.(string); isString && m != "" {
			msg = m
		}
		if code >= 500 {
			a.Logger.Error().Err(err).Msg("server error")
		}
		_ = apiMessage(c, code, msg, "")
		return
	}

	if code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page(c, PageMeta{Title: "Not found"})))
		return
	}
	if code >= 500 {
		a.Logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError(a.page(c, PageMeta{Title: "Something went wrong"})))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
