package upload

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/oklog/ulid/v2"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
)

// Scopes separate staged uploads by the endpoint family they arrived through.
const (
	ScopeChat      = "chat"
	ScopeClassroom = "classroom"
)

var errInvalidKey = errors.New("invalid upload key")

// Store stages uploads for the lifetime of a single request.
type Store interface {
	domain.AttachmentStore
	Stage(ctx context.Context, scope string, file File) (*domain.StagedAttachment, error)
	Health(ctx context.Context) error
}

// File is an inbound multipart file.
type File struct {
	Filename  string
	MediaType string
	Size      int64
	Body      io.Reader
}

func newKey(scope string) string {
	if scope != ScopeClassroom {
		scope = ScopeChat
	}
	return path.Join(scope, ulid.Make().String())
}

// validKey accepts only keys produced by newKey.
func validKey(key string) bool {
	scope, id, ok := strings.Cut(key, "/")
	if !ok || (scope != ScopeChat && scope != ScopeClassroom) {
		return false
	}
	_, err := ulid.ParseStrict(id)
	return err == nil
}
