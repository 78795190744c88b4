package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/auth"
	"github.com/placementmentor/mentor-server/internal/infrastructure/metrics"
	"github.com/placementmentor/mentor-server/internal/infrastructure/upload"
	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver/responses"
)

// ChatHandler serves the general mentor conversation.
type ChatHandler struct {
	service domain.Service
	binder  *sendBinder
	log     zerolog.Logger
}

// NewChatHandler wires dependencies for chat routes.
func NewChatHandler(service domain.Service, uploads upload.Store, maxBytes int64, log zerolog.Logger) *ChatHandler {
	logger := log.With().Str("handler", "chat").Logger()
	return &ChatHandler{
		service: service,
		binder:  &sendBinder{uploads: uploads, maxBytes: maxBytes},
		log:     logger,
	}
}

// Send godoc
// @Summary      Send a message to the mentor
// @Description  Accepts JSON or multipart form data with an optional file whose text is shared with the mentor.
// @Tags         chat
// @Accept       json,mpfd
// @Produce      json
// @Param        request              body      requests.SendMessageRequest  false  "JSON body"
// @Param        message              formData  string  false  "Message text"
// @Param        conversationHistory  formData  string  false  "JSON encoded prior turns"
// @Param        file                 formData  file    false  "Attachment"
// @Success      200  {object}  responses.SendMessageResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      413  {object}  responses.ErrorResponse
// @Failure      502  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /api/chat/send [post]
func (h *ChatHandler) Send(c *gin.Context) {
	input, err := h.binder.bind(c, domain.ModeChat, upload.ScopeChat)
	if err != nil {
		metrics.RecordMessage(string(domain.AssistantGeneral), outcomeOf(err))
		fail(c, h.log, err, msgSendFailed)
		return
	}

	result, err := h.service.Send(c.Request.Context(), input)
	if err != nil {
		metrics.RecordMessage(string(domain.AssistantGeneral), outcomeOf(err))
		fail(c, h.log, err, msgSendFailed)
		return
	}

	metrics.RecordMessage(string(domain.AssistantGeneral), "success")
	c.JSON(http.StatusOK, responses.BuildSendMessageResponse(result))
}

// History godoc
// @Summary      Get the mentor conversation
// @Tags         chat
// @Produce      json
// @Success      200  {object}  responses.HistoryResponse
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /api/chat/history [get]
func (h *ChatHandler) History(c *gin.Context) {
	conv, err := h.service.History(c.Request.Context(), auth.UserID(c), domain.ModeChat, "")
	if err != nil {
		fail(c, h.log, err, "Error fetching conversation")
		return
	}
	c.JSON(http.StatusOK, responses.BuildHistoryResponse(conv))
}
