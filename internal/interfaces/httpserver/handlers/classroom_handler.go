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

// ClassroomHandler serves the technical, coding and aptitude assistants.
type ClassroomHandler struct {
	service domain.Service
	binder  *sendBinder
	log     zerolog.Logger
}

// NewClassroomHandler wires dependencies for classroom routes.
func NewClassroomHandler(service domain.Service, uploads upload.Store, maxBytes int64, log zerolog.Logger) *ClassroomHandler {
	logger := log.With().Str("handler", "classroom").Logger()
	return &ClassroomHandler{
		service: service,
		binder:  &sendBinder{uploads: uploads, maxBytes: maxBytes},
		log:     logger,
	}
}

// Send godoc
// @Summary      Send a message to a classroom assistant
// @Description  assistantType is one of technical, coding, aptitude. Accepts JSON or multipart form data.
// @Tags         classroom
// @Accept       json,mpfd
// @Produce      json
// @Param        request              body      requests.SendMessageRequest  false  "JSON body"
// @Param        assistantType        formData  string  false  "technical, coding or aptitude"
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
// @Router       /api/classroom/send [post]
func (h *ClassroomHandler) Send(c *gin.Context) {
	input, err := h.binder.bind(c, domain.ModeClassroom, upload.ScopeClassroom)
	if err != nil {
		metrics.RecordMessage("unknown", outcomeOf(err))
		fail(c, h.log, err, msgSendFailed)
		return
	}

	label := assistantLabel(input.AssistantType)
	result, err := h.service.Send(c.Request.Context(), input)
	if err != nil {
		metrics.RecordMessage(label, outcomeOf(err))
		fail(c, h.log, err, msgSendFailed)
		return
	}

	metrics.RecordMessage(label, "success")
	c.JSON(http.StatusOK, responses.BuildSendMessageResponse(result))
}

// History godoc
// @Summary      Get a classroom conversation
// @Tags         classroom
// @Produce      json
// @Param        assistantType  path  string  true  "technical, coding or aptitude"
// @Success      200  {object}  responses.HistoryResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /api/classroom/{assistantType} [get]
func (h *ClassroomHandler) History(c *gin.Context) {
	conv, err := h.service.History(c.Request.Context(), auth.UserID(c), domain.ModeClassroom, c.Param("assistantType"))
	if err != nil {
		fail(c, h.log, err, "Error fetching conversation")
		return
	}
	c.JSON(http.StatusOK, responses.BuildHistoryResponse(conv))
}

// Clear godoc
// @Summary      Clear a classroom conversation
// @Description  Deleting a conversation that does not exist succeeds.
// @Tags         classroom
// @Produce      json
// @Param        assistantType  path  string  true  "technical, coding or aptitude"
// @Success      200  {object}  responses.MessageResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /api/classroom/{assistantType} [delete]
func (h *ClassroomHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context(), auth.UserID(c), c.Param("assistantType")); err != nil {
		fail(c, h.log, err, "Error clearing conversation")
		return
	}
	c.JSON(http.StatusOK, responses.MessageResponse{Message: responses.ConversationCleared})
}

func assistantLabel(raw string) string {
	if assistant, ok := domain.ParseClassroomAssistant(raw); ok {
		return string(assistant)
	}
	return "invalid"
}
