package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"property-manager/internal/common"
	"property-manager/internal/ledger"
	"property-manager/internal/middleware"
	"property-manager/internal/storage/block"
	"property-manager/internal/storage/jsonfile"
)

// ok writes {"ok": true, "data": data}
func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"ok": true, "data": data})
}

// StatusOf maps an error to the HTTP status returned to clients
func StatusOf(err error) int {
	switch {
	case errors.Is(err, jsonfile.ErrNotFound), errors.Is(err, ledger.ErrNotFound), errors.Is(err, block.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jsonfile.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, block.ErrInvalidKey):
		return http.StatusBadRequest
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return common.HTTPStatus(err)
}

// fail writes {"ok": false, "error": message}. Server errors are logged and
// their details withheld from the client.
func (h *Handler) fail(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= 500 {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
	}
	_ = c.Error(err)
	middleware.Abort(c, status, clientMessage(err, status))
}

func clientMessage(err error, status int) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusRequestEntityTooLarge:
		return "request body too large"
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// bind decodes a JSON body, reporting malformed input as 400
func (h *Handler) bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		h.fail(c, common.ErrInvalidInputf("invalid request body: %v", err))
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.ErrInvalidInputf("%s must be an integer", name)
	}
	return n, nil
}

// queryBool parses an optional boolean query parameter
func queryBool(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, common.ErrInvalidInputf("%s must be true or false", name)
	}
	return b, nil
}
