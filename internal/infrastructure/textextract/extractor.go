package textextract

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/placementmentor/mentor-server/internal/infrastructure/metrics"
)

const (
	// DefaultMaxChars caps extracted text, counted in characters.
	DefaultMaxChars = 15000
	// TruncationSuffix marks text that was cut at the cap.
	TruncationSuffix = "\n... [truncated]"

	MediaTypeText = "text/plain"
	MediaTypePDF  = "application/pdf"
	MediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	mediaTypeOctetStream = "application/octet-stream"
)

// Options configures an Extractor. DocxSupported is resolved once at startup.
type Options struct {
	DocxSupported bool
	MaxChars      int
}

// Extractor pulls plain text out of uploaded documents. It never returns an error:
// anything it cannot read becomes an empty string.
type Extractor struct {
	docxSupported bool
	maxChars      int
	log           zerolog.Logger
}

// New builds an Extractor.
func New(opts Options, log zerolog.Logger) *Extractor {
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{
		docxSupported: opts.DocxSupported,
		maxChars:      maxChars,
		log:           log.With().Str("component", "text-extractor").Logger(),
	}
}

// DocxSupported reports whether the DOCX branch is active.
func (e *Extractor) DocxSupported() bool {
	return e.docxSupported
}

// ExtractFile reads path and extracts its text.
func (e *Extractor) ExtractFile(path, mediaType, filename string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		e.log.Debug().Err(err).Str("path", path).Msg("read attachment")
		metrics.RecordExtraction("file", "error")
		return ""
	}
	return e.Extract(data, mediaType, filename)
}

// Extract dispatches on media type or file extension, first match wins:
// plain text, PDF, DOCX (when supported), then raw UTF-8.
func (e *Extractor) Extract(data []byte, mediaType, filename string) string {
	mediaType = normalizeMediaType(mediaType)
	if mediaType == "" || mediaType == mediaTypeOctetStream {
		mediaType = normalizeMediaType(mimetype.Detect(data).String())
	}
	ext := strings.ToLower(filepath.Ext(filename))

	kind, text, err := e.dispatch(data, mediaType, ext)
	if err != nil {
		e.log.Debug().Err(err).Str("kind", kind).Str("filename", filename).Msg("extraction incomplete")
	}

	result := Truncate(text, e.maxChars)
	metrics.RecordExtraction(kind, outcome(text, result, err))
	return result
}

func (e *Extractor) dispatch(data []byte, mediaType, ext string) (string, string, error) {
	switch {
	case mediaType == MediaTypeText || ext == ".txt":
		return "text", strings.ToValidUTF8(string(data), "\uFFFD"), nil
	case mediaType == MediaTypePDF || ext == ".pdf":
		text, err := extractPDF(data)
		return "pdf", text, err
	case e.docxSupported && (mediaType == MediaTypeDocx || ext == ".docx"):
		text, err := extractDocx(data)
		return "docx", text, err
	}
	if utf8.Valid(data) {
		return "fallback", string(data), nil
	}
	return "fallback", "", nil
}

// Truncate keeps the first maxChars characters of text and appends TruncationSuffix.
// Text of exactly maxChars characters is returned unchanged.
func Truncate(text string, maxChars int) string {
	if text == "" || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	count := 0
	for i := range text {
		if count == maxChars {
			return text[:i] + TruncationSuffix
		}
		count++
	}
	return text
}

func normalizeMediaType(raw string) string {
	base, _, _ := strings.Cut(raw, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func outcome(raw, result string, err error) string {
	switch {
	case err != nil && raw == "":
		return "error"
	case raw == "":
		return "empty"
	case result != raw:
		return "truncated"
	case err != nil:
		return "partial"
	}
	return "ok"
}
