package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/placementmentor/mentor-server/internal/utils/platformerrors"
)

// Mode selects the endpoint family a message arrived through.
type Mode string

const (
	ModeChat      Mode = "chat"
	ModeClassroom Mode = "classroom"
)

const (
	msgMessageRequired   = "Message is required"
	msgClassroomRequired = "Assistant type and message are required"
	msgInvalidAssistant  = "Invalid assistant type"
	msgSendFailed        = "Error sending message"
	msgFetchFailed       = "Error fetching conversation"
	msgClearFailed       = "Error clearing conversation"
)

// SendInput is one inbound user message.
type SendInput struct {
	Mode          Mode
	UserID        string
	AssistantType string
	Message       string
	History       []HistoryEntry
	Attachment    *StagedAttachment
}

// SendResult is returned after the exchange has been persisted.
type SendResult struct {
	Reply          string
	Role           Role
	ConversationID string
}

// Service runs message exchanges and exposes transcripts.
type Service interface {
	Send(ctx context.Context, input SendInput) (*SendResult, error)
	// History returns nil without error when the user has no conversation yet.
	History(ctx context.Context, userID string, mode Mode, assistantType string) (*Conversation, error)
	Clear(ctx context.Context, userID, assistantType string) error
}

type service struct {
	repo        Repository
	gateway     Gateway
	extractor   TextExtractor
	attachments AttachmentStore
	events      EventPublisher
	tracer      trace.Tracer
	log         zerolog.Logger
	now         func() time.Time
}

// NewService wires the orchestrator with its collaborators.
func NewService(repo Repository, gateway Gateway, extractor TextExtractor, attachments AttachmentStore, events EventPublisher, log zerolog.Logger) Service {
	return &service{
		repo:        repo,
		gateway:     gateway,
		extractor:   extractor,
		attachments: attachments,
		events:      events,
		tracer:      otel.Tracer("mentor-server/conversation"),
		log:         log.With().Str("component", "conversation-service").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Send(ctx context.Context, input SendInput) (*SendResult, error) {
	// Detached from the caller: the exchange and the cleanup run to completion after a client disconnect.
	ctx = context.WithoutCancel(ctx)
	defer s.discard(ctx, input.Attachment)

	ctx, span := s.tracer.Start(ctx, "conversation.send",
		trace.WithAttributes(
			attribute.String("conversation.mode", string(input.Mode)),
			attribute.String("conversation.assistant_type", input.AssistantType),
			attribute.Bool("conversation.has_attachment", input.Attachment != nil),
		),
	)
	defer span.End()

	result, err := s.send(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation.id", result.ConversationID))
	return result, nil
}

func (s *service) send(ctx context.Context, input SendInput) (*SendResult, error) {
	assistant, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	prompt := input.Message
	var meta *Attachment
	if input.Attachment != nil {
		prompt, meta = s.withAttachment(ctx, input.Message, input.Attachment)
	}

	reply, err := s.ask(ctx, assistant, prompt, input.History)
	if err != nil {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			msgSendFailed, err, map[string]any{"assistant_type": string(assistant)})
	}

	role := s.replyRole(assistant, reply.Role)

	now := s.now()
	turns := []Turn{
		{Role: RoleUser, Content: input.Message, Attachment: meta, Timestamp: now},
		{Role: role, Content: reply.Response, Timestamp: now},
	}

	key := Key{UserID: input.UserID, Assistant: assistant}
	conv, err := s.repo.FindOrCreate(ctx, key)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, msgSendFailed)
	}
	saved, err := s.repo.AppendTurns(ctx, conv, turns, now)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, msgSendFailed)
	}

	s.publish(ctx, saved)

	return &SendResult{
		Reply:          reply.Response,
		Role:           role,
		ConversationID: saved.ID,
	}, nil
}

func (s *service) validate(ctx context.Context, input SendInput) (Assistant, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "user is not authenticated", nil)
	}

	blank := strings.TrimSpace(input.Message) == ""
	if input.Mode != ModeClassroom {
		if blank {
			return "", validationError(ctx, msgMessageRequired)
		}
		return AssistantGeneral, nil
	}

	if blank || input.AssistantType == "" {
		return "", validationError(ctx, msgClassroomRequired)
	}
	assistant, ok := ParseClassroomAssistant(input.AssistantType)
	if !ok {
		return "", validationError(ctx, msgInvalidAssistant)
	}
	return assistant, nil
}

func (s *service) withAttachment(ctx context.Context, message string, staged *StagedAttachment) (string, *Attachment) {
	meta := &Attachment{
		Filename: staged.Filename,
		MimeType: staged.MediaType,
		Size:     staged.Size,
	}

	var text string
	if s.attachments == nil {
		return ComposePrompt(message, staged.Filename, text), meta
	}
	data, err := s.attachments.Read(ctx, staged.Key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", staged.Key).Msg("read staged attachment")
	} else {
		text = s.extractor.Extract(data, staged.MediaType, staged.Filename)
	}

	return ComposePrompt(message, staged.Filename, text), meta
}

func (s *service) ask(ctx context.Context, assistant Assistant, prompt string, history []HistoryEntry) (Reply, error) {
	if history == nil {
		history = []HistoryEntry{}
	}
	if assistant == AssistantGeneral {
		return s.gateway.Chat(ctx, prompt, history)
	}
	return s.gateway.ClassroomChat(ctx, assistant, prompt, history)
}

func (s *service) publish(ctx context.Context, conv *Conversation) {
	if s.events == nil {
		return
	}
	event := Event{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		AssistantType:  conv.Assistant,
		TurnCount:      len(conv.Turns),
		Timestamp:      conv.UpdatedAt,
	}
	if err := s.events.PublishConversationUpdated(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("publish conversation event")
	}
}

func (s *service) discard(ctx context.Context, staged *StagedAttachment) {
	if staged == nil || s.attachments == nil {
		return
	}
	if err := s.attachments.Remove(ctx, staged.Key); err != nil {
		s.log.Warn().Err(err).Str("key", staged.Key).Msg("remove staged attachment")
	}
}

func (s *service) History(ctx context.Context, userID string, mode Mode, assistantType string) (*Conversation, error) {
	key := ChatKey(userID)
	if mode == ModeClassroom {
		assistant, ok := ParseClassroomAssistant(assistantType)
		if !ok {
			return nil, validationError(ctx, msgInvalidAssistant)
		}
		key = ClassroomKey(userID, assistant)
	}

	conv, err := s.repo.Find(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, msgFetchFailed)
	}
	return conv, nil
}

func (s *service) Clear(ctx context.Context, userID, assistantType string) error {
	assistant, ok := ParseClassroomAssistant(assistantType)
	if !ok {
		return validationError(ctx, msgInvalidAssistant)
	}
	if err := s.repo.Clear(ctx, ClassroomKey(userID, assistant)); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, msgClearFailed)
	}
	return nil
}

func validationError(ctx context.Context, message string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, message, nil)
}

// replyRole keeps the role reported by the AI service when it is a valid label for the
// conversation and falls back to the assistant's table role otherwise.
func (s *service) replyRole(assistant Assistant, reported string) Role {
	role := assistant.ReplyRole()
	if reported == "" || Role(reported) == role {
		return role
	}
	if assistant.AcceptsReplyRole(Role(reported)) {
		return Role(reported)
	}
	s.log.Warn().
		Str("assistant_type", string(assistant)).
		Str("reported_role", reported).
		Str("stored_role", string(role)).
		Msg("ai service reported unexpected role")
	return role
}
