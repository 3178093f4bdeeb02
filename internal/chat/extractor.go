package chat

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"routing_gateway/internal/utils"
)

// DefaultMaxContextBytes caps how much of a text file is inlined into a prompt
const DefaultMaxContextBytes = 16 << 10

// Attachment is a file sent along with a chat request
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Extractor turns an attachment into prompt context for the file model
type Extractor struct {
	maxContextBytes int
}

// NewExtractor creates an extractor inlining at most maxContextBytes of text
func NewExtractor(maxContextBytes int) *Extractor {
	if maxContextBytes <= 0 {
		maxContextBytes = DefaultMaxContextBytes
	}
	return &Extractor{maxContextBytes: maxContextBytes}
}

// ContentType returns the declared media type, or a sniffed one when the
// client sent none.
func (e *Extractor) ContentType(a *Attachment) string {
	declared := strings.TrimSpace(a.ContentType)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(a.Data)
}

// Extract renders a as text. UTF-8 text is inlined and truncated; anything
// else becomes a one-line descriptor.
func (e *Extractor) Extract(a *Attachment) string {
	if a == nil {
		return ""
	}
	name := a.Filename
	if name == "" {
		name = "upload"
	}
	contentType := e.ContentType(a)

	if !isText(contentType) || !utf8.Valid(a.Data) {
		return fmt.Sprintf("[attached file: %s, %s, %d bytes]", name, contentType, len(a.Data))
	}

	body, cut := utils.Truncate(string(a.Data), e.maxContextBytes)
	var b strings.Builder
	fmt.Fprintf(&b, "[attached file: %s]\n%s", name, body)
	if cut {
		fmt.Fprintf(&b, "\n[truncated: %d of %d bytes shown]", len(body), len(a.Data))
	}
	return b.String()
}

func isText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	switch mediaType {
	case "application/json", "application/xml", "application/yaml", "application/x-yaml",
		"application/javascript", "application/x-ndjson", "application/csv":
		return true
	}
	return strings.HasSuffix(mediaType, "+json") || strings.HasSuffix(mediaType, "+xml")
}
