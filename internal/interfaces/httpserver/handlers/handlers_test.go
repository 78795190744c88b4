package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementmentor/mentor-server/internal/config"
	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/aigateway"
	"github.com/placementmentor/mentor-server/internal/infrastructure/auth"
	"github.com/placementmentor/mentor-server/internal/infrastructure/events"
	"github.com/placementmentor/mentor-server/internal/infrastructure/repository/conversationrepo"
	"github.com/placementmentor/mentor-server/internal/infrastructure/textextract"
	"github.com/placementmentor/mentor-server/internal/infrastructure/upload"
	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver/handlers"
	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver/middlewares"
	v1 "github.com/placementmentor/mentor-server/internal/interfaces/httpserver/routes/v1"
)

const testSecret = "handler-test-secret"

// MockGateway is a mock implementation of conversation.Gateway for testing.
type MockGateway struct {
	mu                sync.Mutex
	calls             int
	lastPrompt        string
	lastHistory       []domain.HistoryEntry
	ChatFunc          func(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error)
	ClassroomChatFunc func(ctx context.Context, assistant domain.Assistant, message string, history []domain.HistoryEntry) (domain.Reply, error)
}

func (m *MockGateway) record(message string, history []domain.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastPrompt = message
	m.lastHistory = history
}

func (m *MockGateway) Chat(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error) {
	m.record(message, history)
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, message, history)
	}
	return domain.Reply{Response: "Keep practicing"}, nil
}

func (m *MockGateway) ClassroomChat(ctx context.Context, assistant domain.Assistant, message string, history []domain.HistoryEntry) (domain.Reply, error) {
	m.record(message, history)
	if m.ClassroomChatFunc != nil {
		return m.ClassroomChatFunc(ctx, assistant, message, history)
	}
	return domain.Reply{Response: "ok", Role: string(assistant.ReplyRole())}, nil
}

type testEnv struct {
	router    *gin.Engine
	gateway   *MockGateway
	repo      *conversationrepo.InMemoryRepository
	uploadDir string
}

func setupTestRouter(t *testing.T, maxBytes int64) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uploadDir := t.TempDir()
	store, err := upload.NewLocalStorage(uploadDir, zerolog.Nop())
	require.NoError(t, err)

	gateway := &MockGateway{}
	repo := conversationrepo.NewInMemoryRepository()
	extractor := textextract.New(textextract.Options{DocxSupported: true}, zerolog.Nop())
	service := domain.NewService(repo, gateway, extractor, store, events.NoopPublisher{}, zerolog.Nop())

	provider := handlers.NewProvider(&config.Config{UploadMaxBytes: maxBytes}, service, store, zerolog.Nop())
	router := gin.New()
	router.Use(middlewares.RequestID())
	v1.NewRoutes(provider).Register(router, auth.NewSecretValidator(testSecret, "userId", zerolog.Nop()).Middleware())

	return &testEnv{router: router, gateway: gateway, repo: repo, uploadDir: uploadDir}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": userID}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (e *testEnv) do(t *testing.T, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+file.name+`"`)
		header.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func stagedFiles(t *testing.T, dir string) int {
	t.Helper()
	count := 0
	for _, scope := range []string{upload.ScopeChat, upload.ScopeClassroom} {
		entries, err := os.ReadDir(filepath.Join(dir, scope))
		require.NoError(t, err)
		count += len(entries)
	}
	return count
}

func TestClassroomSendStoresExchange(t *testing.T) {
	env := setupTestRouter(t, 1<<20)
	env.gateway.ClassroomChatFunc = func(ctx context.Context, assistant domain.Assistant, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		assert.Equal(t, domain.AssistantCoding, assistant)
		return domain.Reply{Response: "Good job!", Role: "coding_assistant"}, nil
	}

	w := env.do(t, jsonRequest(t, http.MethodPost, "/api/classroom/send", map[string]any{
		"assistantType":       "coding",
		"message":             "Summarize my week",
		"conversationHistory": []map[string]string{},
	}), "u1")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Message sent successfully", body["message"])
	assert.Equal(t, "Good job!", body["response"])
	conversationID, _ := body["conversationId"].(string)
	assert.NotEmpty(t, conversationID)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/classroom/coding", nil), "u1")
	require.Equal(t, http.StatusOK, w.Code)

	var history struct {
		Messages       []domain.Turn `json:"messages"`
		ConversationID string        `json:"conversationId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Equal(t, conversationID, history.ConversationID)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, domain.RoleUser, history.Messages[0].Role)
	assert.Equal(t, "Summarize my week", history.Messages[0].Content)
	assert.Equal(t, domain.RoleCodingAssistant, history.Messages[1].Role)
	assert.Equal(t, "Good job!", history.Messages[1].Content)
}

func TestChatSendWithAttachmentTruncatesText(t *testing.T) {
	env := setupTestRouter(t, 1<<20)

	w := env.do(t, multipartRequest(t, "/api/chat/send",
		map[string]string{"message": "Review this", "conversationHistory": `[{"role":"user","content":"hi"}]`},
		&formFile{name: "notes.txt", contentType: "text/plain", data: bytes.Repeat([]byte("a"), 20000)},
	), "u1")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	want := "Review this\n\n[Attachment: notes.txt]\n" + strings.Repeat("a", 15000) + "\n... [truncated]"
	assert.Equal(t, want, env.gateway.lastPrompt)
	assert.Equal(t, []domain.HistoryEntry{{Role: "user", Content: "hi"}}, env.gateway.lastHistory)
	assert.Equal(t, 0, stagedFiles(t, env.uploadDir))

	conv, err := env.repo.Find(context.Background(), domain.ChatKey("u1"))
	require.NoError(t, err)
	require.Len(t, conv.Turns, 2)
	assert.Equal(t, "Review this", conv.Turns[0].Content)
	require.NotNil(t, conv.Turns[0].Attachment)
	assert.Equal(t, "notes.txt", conv.Turns[0].Attachment.Filename)
	assert.Equal(t, "text/plain", conv.Turns[0].Attachment.MimeType)
	assert.Equal(t, int64(20000), conv.Turns[0].Attachment.Size)
	assert.Equal(t, domain.RoleMentor, conv.Turns[1].Role)
}

func TestChatSendUnreadableAttachment(t *testing.T) {
	env := setupTestRouter(t, 1<<20)

	w := env.do(t, multipartRequest(t, "/api/chat/send",
		map[string]string{"message": "See attached"},
		&formFile{name: "scan.bin", contentType: "application/x-binary", data: []byte{0xff, 0xfe, 0x00, 0x81}},
	), "u1")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "See attached\n\n[Attachment: scan.bin] (could not extract text)", env.gateway.lastPrompt)
}

func TestGatewayFailureLeavesNoTrace(t *testing.T) {
	env := setupTestRouter(t, 1<<20)
	env.gateway.ClassroomChatFunc = func(ctx context.Context, assistant domain.Assistant, message string, history []domain.HistoryEntry) (domain.Reply, error) {
		return domain.Reply{}, &aigateway.Error{StatusCode: http.StatusInternalServerError, Detail: "model overloaded"}
	}

	w := env.do(t, multipartRequest(t, "/api/classroom/send",
		map[string]string{"assistantType": "technical", "message": "Explain TCP"},
		&formFile{name: "notes.txt", contentType: "text/plain", data: []byte("three way handshake")},
	), "u1")

	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Error sending message", body["message"])
	assert.Equal(t, "model overloaded", body["error"])
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, 0, stagedFiles(t, env.uploadDir))

	_, err := env.repo.Find(context.Background(), domain.ClassroomKey("u1", domain.AssistantTechnical))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvalidAssistantType(t *testing.T) {
	env := setupTestRouter(t, 1<<20)

	w := env.do(t, jsonRequest(t, http.MethodPost, "/api/classroom/send", map[string]any{
		"assistantType": "music",
		"message":       "hello",
	}), "u1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid assistant type", decode(t, w)["message"])
	assert.Equal(t, 0, env.gateway.calls)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w = env.do(t, httptest.NewRequest(method, "/api/classroom/music", nil), "u1")
		assert.Equal(t, http.StatusBadRequest, w.Code, method)
		assert.Equal(t, "Invalid assistant type", decode(t, w)["message"], method)
	}
}

func TestSendValidation(t *testing.T) {
	env := setupTestRouter(t, 1<<20)

	cases := []struct {
		name    string
		path    string
		body    map[string]any
		message string
	}{
		{"chat blank", "/api/chat/send", map[string]any{"message": "   "}, "Message is required"},
		{"chat missing", "/api/chat/send", map[string]any{}, "Message is required"},
		{"classroom no type", "/api/classroom/send", map[string]any{"message": "hi"}, "Assistant type and message are required"},
		{"classroom blank", "/api/classroom/send", map[string]any{"assistantType": "coding", "message": ""}, "Assistant type and message are required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, jsonRequest(t, http.MethodPost, tc.path, tc.body), "u1")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.message, decode(t, w)["message"])
		})
	}
	assert.Equal(t, 0, env.gateway.calls)
}

func TestMalformedJSONBody(t *testing.T) {
	env := setupTestRouter(t, 1<<20)
	req := httptest.NewRequest(http.MethodPost, "/api/chat/send", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	w := env.do(t, req, "u1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode(t, w)["message"])
}

func TestUploadTooLarge(t *testing.T) {
	env := setupTestRouter(t, 10)

	w := env.do(t, multipartRequest(t, "/api/chat/send",
		map[string]string{"message": "big file"},
		&formFile{name: "big.txt", contentType: "text/plain", data: bytes.Repeat([]byte("x"), 100)},
	), "u1")

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "File too large", decode(t, w)["message"])
	assert.Equal(t, 0, env.gateway.calls)
	assert.Equal(t, 0, stagedFiles(t, env.uploadDir))
}

func TestClearIsIdempotent(t *testing.T) {
	env := setupTestRouter(t, 1<<20)
	w := env.do(t, jsonRequest(t, http.MethodPost, "/api/classroom/send", map[string]any{
		"assistantType": "aptitude",
		"message":       "Give me a puzzle",
	}), "u1")
	require.Equal(t, http.StatusOK, w.Code)

	for i := 0; i < 2; i++ {
		w = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/classroom/aptitude", nil), "u1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Conversation cleared successfully"}`, w.Body.String())
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/classroom/aptitude", nil), "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}

func TestChatHistoryEmpty(t *testing.T) {
	env := setupTestRouter(t, 1<<20)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat/history", nil), "u1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}

func TestConversationsAreScopedPerUser(t *testing.T) {
	env := setupTestRouter(t, 1<<20)
	w := env.do(t, jsonRequest(t, http.MethodPost, "/api/chat/send", map[string]any{"message": "mine"}), "u1")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat/history", nil), "u2")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}

func TestRequiresAuthentication(t *testing.T) {
	env := setupTestRouter(t, 1<<20)

	w := env.do(t, jsonRequest(t, http.MethodPost, "/api/chat/send", map[string]any{"message": "hi"}), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, env.gateway.calls)
}
