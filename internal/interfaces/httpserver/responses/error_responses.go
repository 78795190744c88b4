package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placementmentor/mentor-server/internal/utils/platformerrors"
)

// ErrorResponse is the JSON envelope of every failed request.
type ErrorResponse struct {
	Message       string `json:"message"`
	Error         string `json:"error,omitempty"`
	Code          string `json:"code,omitempty"` // UUID from PlatformError
	RequestID     string `json:"request_id,omitempty"`
	ErrorInstance error  `json:"-"`
}

// HandleError maps err to a status code and writes the envelope. Platform errors
// keep their own message; message is used for anything else.
func HandleError(reqCtx *gin.Context, err error, message string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		statusCode := platformerrors.ErrorTypeToHTTPStatus(domainErr.GetErrorType())

		errorMessage := domainErr.Message
		if errorMessage == "" {
			errorMessage = message
		}

		errResp := ErrorResponse{
			Message:       errorMessage,
			Code:          domainErr.GetUUID(),
			ErrorInstance: domainErr,
			RequestID:     domainErr.GetRequestID(),
		}
		if domainErr.Err != nil {
			errResp.Error = domainErr.Detail()
		}

		_ = reqCtx.Error(domainErr)
		reqCtx.AbortWithStatusJSON(statusCode, errResp)
		return
	}

	errResp := ErrorResponse{
		Message:       message,
		ErrorInstance: err,
		RequestID:     platformerrors.RequestIDFromContext(reqCtx.Request.Context()),
	}
	if err != nil {
		errResp.Error = err.Error()
		_ = reqCtx.Error(err)
	}
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
}

// HandleNewError creates a typed error at the handler layer and writes it.
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, errorType, message, nil)
	HandleError(reqCtx, err, message)
}
