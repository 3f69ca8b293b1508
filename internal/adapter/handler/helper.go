package handler

import (
	stdErrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/errors"
)

// Response shapes
type success struct {
	Code    interface{} `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

type errs struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Info    string      `json:"info,omitempty"`
}

// getRequestID tries to read X-Request-ID from the request, then the response
// header set by the request-id middleware
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// bind decodes the request into req and validates it
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.ErrInvalidPayload(err)
	}
	if err := c.Validate(req); err != nil {
		return errors.ErrInvalidArgument(err.Error())
	}
	return nil
}

// HandleSuccess writes a standardized success response using provided logger
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	resp := success{
		Code:    int(errors.ErrorCode_HTTP_OK),
		Message: "success",
		Data:    data,
	}

	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
		)
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleError centralizes error handling and logging using provided logger
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	reqID := getRequestID(c)

	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		if logger != nil {
			log := logger.Error
			if appErr.HTTPCode < http.StatusInternalServerError {
				log = logger.Warn
			}
			log("http.response.error",
				zap.String("request_id", reqID),
				zap.String("path", c.Path()),
				zap.Any("app_code", appErr.Code),
				zap.Any("details", appErr.Details),
				zap.Error(err),
			)
		}

		info := ""
		if appErr.Raw != nil {
			info = appErr.Raw.Error()
		}

		body := errs{
			Code:    appErr.Code,
			Message: appErr.Message,
			Info:    info,
		}

		return c.JSON(appErr.HTTPCode, body)
	}

	if logger != nil {
		logger.Error("http.response.error",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	body := errs{
		Code:    errors.ErrorCode_INTERNAL,
		Message: "Internal server error",
		Info:    err.Error(),
	}

	return c.JSON(http.StatusInternalServerError, body)
}
