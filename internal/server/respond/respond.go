// Package respond renders JSON bodies and classified errors for the HTTP handlers.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/rs/zerolog"

	"github.com/meisaku0/backend/internal/autherr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// JSON writes v with status.
func JSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

// Error renders err through the autherr table and aborts the chain. Server errors are
// logged with their cause; client errors only at debug with the internal reason.
func Error(c *gin.Context, err error) {
	resp := autherr.Describe(err)
	l := zerolog.Ctx(c.Request.Context())
	if resp.Status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("code", resp.Code).Msg("request failed")
	} else {
		l.Debug().Err(err).Str("code", resp.Code).Msg("request rejected")
	}
	c.AbortWithStatusJSON(resp.Status, ErrorBody{
		Error:   http.StatusText(resp.Status),
		Code:    resp.Code,
		Message: resp.Message,
	})
}

// Invalid renders a malformed request as InvalidInput. Field errors from ozzo-validation
// are returned under data, keyed by JSON field name.
func Invalid(c *gin.Context, err error) {
	resp := autherr.Describe(autherr.ErrInvalidInput)
	body := ErrorBody{Error: http.StatusText(resp.Status), Code: resp.Code, Message: resp.Message}
	var fields validation.Errors
	if errors.As(err, &fields) {
		data := make(map[string]string, len(fields))
		for k, v := range fields {
			data[k] = v.Error()
		}
		body.Data = data
	} else if err != nil {
		body.Message += ": " + err.Error()
	}
	c.AbortWithStatusJSON(resp.Status, body)
}
