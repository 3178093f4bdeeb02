package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor(10)

	tests := []struct {
		name string
		file *Attachment
		want string
	}{
		{
			name: "text inlined",
			file: &Attachment{Filename: "a.txt", ContentType: "text/plain", Data: []byte("hello")},
			want: "[attached file: a.txt]\nhello",
		},
		{
			name: "text truncated",
			file: &Attachment{Filename: "a.txt", ContentType: "text/plain; charset=utf-8", Data: []byte("0123456789abcdef")},
			want: "[attached file: a.txt]\n0123456789\n[truncated: 10 of 16 bytes shown]",
		},
		{
			name: "json counts as text",
			file: &Attachment{Filename: "d.json", ContentType: "application/json", Data: []byte(`{"a":1}`)},
			want: "[attached file: d.json]\n{\"a\":1}",
		},
		{
			name: "sniffed when undeclared",
			file: &Attachment{Filename: "notes", Data: []byte("plain words")},
			want: "[attached file: notes]\nplain word\n[truncated: 10 of 11 bytes shown]",
		},
		{
			name: "binary described",
			file: &Attachment{Filename: "img.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G', 0, 1}},
			want: "[attached file: img.png, image/png, 6 bytes]",
		},
		{
			name: "invalid utf-8 text is described",
			file: &Attachment{Filename: "x.txt", ContentType: "text/plain", Data: []byte{0xff, 0xfe, 'a'}},
			want: "[attached file: x.txt, text/plain, 3 bytes]",
		},
		{
			name: "unnamed",
			file: &Attachment{ContentType: "application/pdf", Data: []byte("%PDF")},
			want: "[attached file: upload, application/pdf, 4 bytes]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.file))
		})
	}

	assert.Empty(t, e.Extract(nil))
}

func TestExtractor_ContentTypeSniffing(t *testing.T) {
	e := NewExtractor(0)
	assert.Equal(t, "image/png", e.ContentType(&Attachment{ContentType: "application/octet-stream", Data: []byte("\x89PNG\r\n\x1a\n")}))
	assert.True(t, strings.HasPrefix(e.ContentType(&Attachment{Data: []byte("hi there")}), "text/plain"))
	assert.Equal(t, "text/csv", e.ContentType(&Attachment{ContentType: "text/csv", Data: []byte("a,b")}))
}
