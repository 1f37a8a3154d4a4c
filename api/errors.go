package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

var statusByCode = map[domain.ErrorCode]int{
	domain.CodeValidation:     http.StatusBadRequest,
	domain.CodeNotFound:       http.StatusNotFound,
	domain.CodeInvalidState:   http.StatusConflict,
	domain.CodeConflict:       http.StatusConflict,
	domain.CodeNoAvailability: http.StatusConflict,
	domain.CodePrecondition:   http.StatusPreconditionFailed,
	domain.CodeProvider:       http.StatusBadGateway,
}

const providerMessage = "the door lock service is not responding, please try again or contact staff"

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

// errorBody turns an error into the status and body a client sees. Provider details
// never leave the process.
func errorBody(err error) (int, errorResponse) {
	var appErr *domain.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := appErr.Message
	if appErr.Code == domain.CodeProvider {
		message = providerMessage
	}
	return status, errorResponse{Error: message, Code: string(appErr.Code)}
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: message, Code: string(domain.CodeValidation)})
}

// bindOptionalJSON binds a JSON body the client may leave out entirely.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
