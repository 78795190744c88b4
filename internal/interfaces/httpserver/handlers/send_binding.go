package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/auth"
	"github.com/placementmentor/mentor-server/internal/infrastructure/upload"
	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver/requests"
	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver/responses"
	"github.com/placementmentor/mentor-server/internal/utils/platformerrors"
)

const (
	multipartOverhead  = 1 << 20
	multipartMaxMemory = 8 << 20

	msgInvalidBody  = "Invalid request body"
	msgFileTooLarge = "File too large"
	msgSendFailed   = "Error sending message"
)

// sendBinder turns a JSON or multipart send request into orchestrator input,
// staging the optional file.
type sendBinder struct {
	uploads  upload.Store
	maxBytes int64
}

func (b *sendBinder) bind(c *gin.Context, mode domain.Mode, scope string) (domain.SendInput, error) {
	userID := auth.UserID(c)
	var req requests.SendMessageRequest

	if !isMultipart(c.ContentType()) {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return domain.SendInput{}, b.newError(c, platformerrors.ErrorTypeValidation, msgInvalidBody, err)
		}
		return req.ToDomain(mode, userID), nil
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, b.maxBytes+multipartOverhead)
	if err := c.Request.ParseMultipartForm(multipartMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.SendInput{}, b.newError(c, platformerrors.ErrorTypePayloadTooLarge, msgFileTooLarge, nil)
		}
		return domain.SendInput{}, b.newError(c, platformerrors.ErrorTypeValidation, msgInvalidBody, err)
	}

	req.Message = c.PostForm("message")
	req.AssistantType = c.PostForm("assistantType")
	input := req.ToDomain(mode, userID)
	input.History = domain.ParseHistoryString(c.PostForm("conversationHistory"))

	file, header, err := c.Request.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return input, nil
	}
	if err != nil {
		return domain.SendInput{}, b.newError(c, platformerrors.ErrorTypeValidation, msgInvalidBody, err)
	}
	defer file.Close()

	if header.Size > b.maxBytes {
		return domain.SendInput{}, b.newError(c, platformerrors.ErrorTypePayloadTooLarge, msgFileTooLarge, nil)
	}

	staged, err := b.uploads.Stage(c.Request.Context(), scope, upload.File{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Size:      header.Size,
		Body:      file,
	})
	if err != nil {
		return domain.SendInput{}, b.newError(c, platformerrors.ErrorTypeInternal, msgSendFailed, err)
	}
	input.Attachment = staged
	return input, nil
}

func (b *sendBinder) newError(c *gin.Context, errorType platformerrors.ErrorType, message string, err error) error {
	return platformerrors.NewError(c.Request.Context(), platformerrors.LayerHandler, errorType, message, err)
}

func isMultipart(contentType string) bool {
	return strings.HasPrefix(contentType, "multipart/")
}

// fail logs err and writes the error envelope.
func fail(c *gin.Context, log zerolog.Logger, err error, message string) {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		platformerrors.LogError(log, platformErr)
	} else {
		log.Error().Err(err).Msg(message)
	}
	responses.HandleError(c, err, message)
}

func outcomeOf(err error) string {
	var platformErr *platformerrors.PlatformError
	if !errors.As(err, &platformErr) {
		return "error"
	}
	switch platformErr.Type {
	case platformerrors.ErrorTypeValidation, platformerrors.ErrorTypePayloadTooLarge:
		return "rejected"
	case platformerrors.ErrorTypeUnauthorized:
		return "unauthorized"
	case platformerrors.ErrorTypeExternal:
		return "ai_error"
	}
	return "error"
}
