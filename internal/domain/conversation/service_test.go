package conversation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/repository/conversationrepo"
	"github.com/placementmentor/mentor-server/internal/utils/platformerrors"
)

type MockGateway struct {
	ChatFunc          func(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error)
	ClassroomChatFunc func(ctx context.Context, assistant domain.Assistant, message string, history []domain.HistoryEntry) (domain.Reply, error)
}

func (m *MockGateway) Chat(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, message, history)
	}
	return domain.Reply{Response: "mentor reply"}, nil
}

func (m *MockGateway) ClassroomChat(ctx context.Context, assistant domain.Assistant, message string, history []domain.HistoryEntry) (domain.Reply, error) {
	if m.ClassroomChatFunc != nil {
		return m.ClassroomChatFunc(ctx, assistant, message, history)
	}
	return domain.Reply{Response: "assistant reply"}, nil
}

type MockExtractor struct {
	ExtractFunc func(data []byte, mediaType, filename string) string
}

func (m *MockExtractor) Extract(data []byte, mediaType, filename string) string {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(data, mediaType, filename)
	}
	return string(data)
}

type MockAttachments struct {
	mu         sync.Mutex
	removed    []string
	ReadFunc   func(ctx context.Context, key string) ([]byte, error)
	RemoveFunc func(ctx context.Context, key string) error
}

func (m *MockAttachments) Read(ctx context.Context, key string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, key)
	}
	return []byte("file body"), nil
}

func (m *MockAttachments) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	m.removed = append(m.removed, key)
	m.mu.Unlock()
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, key)
	}
	return nil
}

type MockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *MockPublisher) PublishConversationUpdated(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

// MockRepository wraps the in-memory repository so single operations can fail.
type MockRepository struct {
	*conversationrepo.InMemoryRepository
	AppendTurnsFunc func(ctx context.Context, conv *domain.Conversation, turns []domain.Turn, updatedAt time.Time) (*domain.Conversation, error)
	FindFunc        func(ctx context.Context, key domain.Key) (*domain.Conversation, error)
	ClearFunc       func(ctx context.Context, key domain.Key) error
}

func (m *MockRepository) AppendTurns(ctx context.Context, conv *domain.Conversation, turns []domain.Turn, updatedAt time.Time) (*domain.Conversation, error) {
	if m.AppendTurnsFunc != nil {
		return m.AppendTurnsFunc(ctx, conv, turns, updatedAt)
	}
	return m.InMemoryRepository.AppendTurns(ctx, conv, turns, updatedAt)
}

func (m *MockRepository) Find(ctx context.Context, key domain.Key) (*domain.Conversation, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, key)
	}
	return m.InMemoryRepository.Find(ctx, key)
}

func (m *MockRepository) Clear(ctx context.Context, key domain.Key) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, key)
	}
	return m.InMemoryRepository.Clear(ctx, key)
}

type fixture struct {
	service     domain.Service
	repo        *MockRepository
	gateway     *MockGateway
	extractor   *MockExtractor
	attachments *MockAttachments
	publisher   *MockPublisher
}

func newFixture() *fixture {
	f := &fixture{
		repo:        &MockRepository{InMemoryRepository: conversationrepo.NewInMemoryRepository()},
		gateway:     &MockGateway{},
		extractor:   &MockExtractor{},
		attachments: &MockAttachments{},
		publisher:   &MockPublisher{},
	}
	f.service = domain.NewService(f.repo, f.gateway, f.extractor, f.attachments, f.publisher, zerolog.Nop())
	return f
}

func staged() *domain.StagedAttachment {
	return &domain.StagedAttachment{Key: "chat/01HZX", Filename: "cv.txt", MediaType: "text/plain", Size: 9}
}

func TestSendChatPersistsPair(t *testing.T) {
	f := newFixture()
	var gotHistory []domain.HistoryEntry
	f.gateway.ChatFunc = func(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		gotHistory = history
		return domain.Reply{Response: "Practice daily"}, nil
	}

	result, err := f.service.Send(context.Background(), domain.SendInput{Mode: domain.ModeChat, UserID: "u1", Message: "How to start?"})

	require.NoError(t, err)
	assert.Equal(t, "Practice daily", result.Reply)
	assert.Equal(t, domain.RoleMentor, result.Role)
	assert.NotEmpty(t, result.ConversationID)
	assert.NotNil(t, gotHistory)
	assert.Empty(t, gotHistory)

	turns, err := f.repo.GetHistory(context.Background(), domain.ChatKey("u1"))
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "How to start?", turns[0].Content)
	assert.Equal(t, domain.RoleMentor, turns[1].Role)
	assert.Equal(t, turns[0].Timestamp, turns[1].Timestamp)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, result.ConversationID, f.publisher.events[0].ConversationID)
	assert.Equal(t, 2, f.publisher.events[0].TurnCount)
	assert.Equal(t, domain.AssistantGeneral, f.publisher.events[0].AssistantType)
}

func TestSendClassroomFallsBackToTableRole(t *testing.T) {
	f := newFixture()
	f.gateway.ClassroomChatFunc = func(ctx context.Context, assistant domain.Assistant, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		return domain.Reply{Response: "Nice", Role: "mentor"}, nil
	}

	result, err := f.service.Send(context.Background(), domain.SendInput{
		Mode: domain.ModeClassroom, UserID: "u1", AssistantType: "aptitude", Message: "puzzle",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAptitudeAssistant, result.Role)
	turns, err := f.repo.GetHistory(context.Background(), domain.ClassroomKey("u1", domain.AssistantAptitude))
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleAptitudeAssistant, turns[1].Role)
}

func TestSendClassroomKeepsReportedRole(t *testing.T) {
	f := newFixture()
	f.gateway.ClassroomChatFunc = func(ctx context.Context, assistant domain.Assistant, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		return domain.Reply{Response: "Use a hash map", Role: "technical_assistant"}, nil
	}

	result, err := f.service.Send(context.Background(), domain.SendInput{
		Mode: domain.ModeClassroom, UserID: "u1", AssistantType: "coding", Message: "two sum",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnicalAssistant, result.Role)
	turns, err := f.repo.GetHistory(context.Background(), domain.ClassroomKey("u1", domain.AssistantCoding))
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleTechnicalAssistant, turns[1].Role)
}

func TestSendChatIgnoresClassroomRole(t *testing.T) {
	f := newFixture()
	f.gateway.ChatFunc = func(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		return domain.Reply{Response: "Start with arrays", Role: "coding_assistant"}, nil
	}

	result, err := f.service.Send(context.Background(), domain.SendInput{Mode: domain.ModeChat, UserID: "u1", Message: "plan"})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleMentor, result.Role)
}

func TestSendValidation(t *testing.T) {
	cases := []struct {
		name    string
		input   domain.SendInput
		errType platformerrors.ErrorType
		message string
	}{
		{"no user", domain.SendInput{Mode: domain.ModeChat, Message: "hi"}, platformerrors.ErrorTypeUnauthorized, "user is not authenticated"},
		{"chat blank", domain.SendInput{Mode: domain.ModeChat, UserID: "u1", Message: " \t"}, platformerrors.ErrorTypeValidation, "Message is required"},
		{"classroom blank", domain.SendInput{Mode: domain.ModeClassroom, UserID: "u1", AssistantType: "coding"}, platformerrors.ErrorTypeValidation, "Assistant type and message are required"},
		{"classroom no type", domain.SendInput{Mode: domain.ModeClassroom, UserID: "u1", Message: "hi"}, platformerrors.ErrorTypeValidation, "Assistant type and message are required"},
		{"classroom general", domain.SendInput{Mode: domain.ModeClassroom, UserID: "u1", AssistantType: "general", Message: "hi"}, platformerrors.ErrorTypeValidation, "Invalid assistant type"},
		{"classroom unknown", domain.SendInput{Mode: domain.ModeClassroom, UserID: "u1", AssistantType: "Coding", Message: "hi"}, platformerrors.ErrorTypeValidation, "Invalid assistant type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			called := false
			f.gateway.ChatFunc = func(context.Context, string, []domain.HistoryEntry) (domain.Reply, error) {
				called = true
				return domain.Reply{}, nil
			}
			f.gateway.ClassroomChatFunc = func(context.Context, domain.Assistant, string, []domain.HistoryEntry) (domain.Reply, error) {
				called = true
				return domain.Reply{}, nil
			}
			tc.input.Attachment = staged()

			_, err := f.service.Send(context.Background(), tc.input)

			var platformErr *platformerrors.PlatformError
			require.ErrorAs(t, err, &platformErr)
			assert.Equal(t, tc.errType, platformErr.Type)
			assert.Equal(t, tc.message, platformErr.Message)
			assert.False(t, called)
			assert.Equal(t, []string{"chat/01HZX"}, f.attachments.removed)
		})
	}
}

func TestSendAttachmentComposesPrompt(t *testing.T) {
	f := newFixture()
	var prompt string
	f.gateway.ChatFunc = func(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		prompt = message
		return domain.Reply{Response: "Looks good"}, nil
	}
	f.extractor.ExtractFunc = func(data []byte, mediaType, filename string) string {
		assert.Equal(t, "text/plain", mediaType)
		assert.Equal(t, "cv.txt", filename)
		return "Go, SQL"
	}

	_, err := f.service.Send(context.Background(), domain.SendInput{
		Mode: domain.ModeChat, UserID: "u1", Message: "Review my CV", Attachment: staged(),
	})

	require.NoError(t, err)
	assert.Equal(t, "Review my CV\n\n[Attachment: cv.txt]\nGo, SQL", prompt)
	assert.Equal(t, []string{"chat/01HZX"}, f.attachments.removed)

	turns, err := f.repo.GetHistory(context.Background(), domain.ChatKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, "Review my CV", turns[0].Content)
	assert.Equal(t, &domain.Attachment{Filename: "cv.txt", MimeType: "text/plain", Size: 9}, turns[0].Attachment)
	assert.Nil(t, turns[1].Attachment)
}

func TestSendAttachmentReadFailureFallsBack(t *testing.T) {
	f := newFixture()
	var prompt string
	f.gateway.ChatFunc = func(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		prompt = message
		return domain.Reply{Response: "ok"}, nil
	}
	f.attachments.ReadFunc = func(context.Context, string) ([]byte, error) {
		return nil, errors.New("disk gone")
	}

	_, err := f.service.Send(context.Background(), domain.SendInput{
		Mode: domain.ModeChat, UserID: "u1", Message: "Check", Attachment: staged(),
	})

	require.NoError(t, err)
	assert.Equal(t, "Check\n\n[Attachment: cv.txt] (could not extract text)", prompt)
}

func TestSendGatewayFailurePersistsNothing(t *testing.T) {
	f := newFixture()
	f.gateway.ClassroomChatFunc = func(context.Context, domain.Assistant, string, []domain.HistoryEntry) (domain.Reply, error) {
		return domain.Reply{}, errors.New("upstream said no")
	}

	_, err := f.service.Send(context.Background(), domain.SendInput{
		Mode: domain.ModeClassroom, UserID: "u1", AssistantType: "technical", Message: "hi", Attachment: staged(),
	})

	var platformErr *platformerrors.PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, platformerrors.ErrorTypeExternal, platformErr.Type)
	assert.Equal(t, "Error sending message", platformErr.Message)
	assert.Equal(t, "upstream said no", platformErr.Detail())

	_, findErr := f.repo.Find(context.Background(), domain.ClassroomKey("u1", domain.AssistantTechnical))
	assert.ErrorIs(t, findErr, domain.ErrNotFound)
	assert.Empty(t, f.publisher.events)
	assert.Equal(t, []string{"chat/01HZX"}, f.attachments.removed)
}

func TestSendPersistenceFailure(t *testing.T) {
	f := newFixture()
	f.repo.AppendTurnsFunc = func(context.Context, *domain.Conversation, []domain.Turn, time.Time) (*domain.Conversation, error) {
		return nil, errors.New("write conflict")
	}

	_, err := f.service.Send(context.Background(), domain.SendInput{Mode: domain.ModeChat, UserID: "u1", Message: "hi"})

	var platformErr *platformerrors.PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, platformerrors.ErrorTypeInternal, platformErr.Type)
	assert.Equal(t, "Error sending message", platformErr.Message)
	assert.Empty(t, f.publisher.events)
}

func TestSendIgnoresPublishAndCleanupFailures(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")
	f.attachments.RemoveFunc = func(context.Context, string) error { return errors.New("busy") }

	result, err := f.service.Send(context.Background(), domain.SendInput{
		Mode: domain.ModeChat, UserID: "u1", Message: "hi", Attachment: staged(),
	})

	require.NoError(t, err)
	assert.Equal(t, "mentor reply", result.Reply)
}

func TestSendSurvivesCallerCancellation(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.gateway.ChatFunc = func(callCtx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		cancel()
		return domain.Reply{Response: "done"}, callCtx.Err()
	}

	result, err := f.service.Send(ctx, domain.SendInput{Mode: domain.ModeChat, UserID: "u1", Message: "hi", Attachment: staged()})

	require.NoError(t, err)
	assert.Equal(t, "done", result.Reply)
	assert.Equal(t, []string{"chat/01HZX"}, f.attachments.removed)
}

func TestConcurrentSendsKeepPairsTogether(t *testing.T) {
	f := newFixture()
	f.gateway.ChatFunc = func(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		return domain.Reply{Response: "re: " + message}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.service.Send(context.Background(), domain.SendInput{
				Mode: domain.ModeChat, UserID: "u1", Message: string(rune('a' + i)),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns, err := f.repo.GetHistory(context.Background(), domain.ChatKey("u1"))
	require.NoError(t, err)
	require.Len(t, turns, 20)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, domain.RoleUser, turns[i].Role)
		assert.Equal(t, "re: "+turns[i].Content, turns[i+1].Content)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture()

	conv, err := f.service.History(context.Background(), "u1", domain.ModeChat, "")
	require.NoError(t, err)
	assert.Nil(t, conv)

	_, err = f.service.Send(context.Background(), domain.SendInput{Mode: domain.ModeClassroom, UserID: "u1", AssistantType: "coding", Message: "hi"})
	require.NoError(t, err)

	conv, err = f.service.History(context.Background(), "u1", domain.ModeClassroom, "coding")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Len(t, conv.Turns, 2)

	_, err = f.service.History(context.Background(), "u1", domain.ModeClassroom, "poetry")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestHistoryStoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.FindFunc = func(context.Context, domain.Key) (*domain.Conversation, error) {
		return nil, errors.New("timeout")
	}

	_, err := f.service.History(context.Background(), "u1", domain.ModeChat, "")

	var platformErr *platformerrors.PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, "Error fetching conversation", platformErr.Message)
	assert.Equal(t, platformerrors.ErrorTypeInternal, platformErr.Type)
}

func TestClear(t *testing.T) {
	f := newFixture()
	_, err := f.service.Send(context.Background(), domain.SendInput{Mode: domain.ModeClassroom, UserID: "u1", AssistantType: "technical", Message: "hi"})
	require.NoError(t, err)

	require.NoError(t, f.service.Clear(context.Background(), "u1", "technical"))
	require.NoError(t, f.service.Clear(context.Background(), "u1", "technical"))

	conv, err := f.service.History(context.Background(), "u1", domain.ModeClassroom, "technical")
	require.NoError(t, err)
	assert.Nil(t, conv)

	err = f.service.Clear(context.Background(), "u1", "general")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	f.repo.ClearFunc = func(context.Context, domain.Key) error { return errors.New("locked") }
	err = f.service.Clear(context.Background(), "u1", "coding")
	var platformErr *platformerrors.PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, "Error clearing conversation", platformErr.Message)
}
