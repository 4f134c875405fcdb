package document

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Source is an input document held fully in memory.
type Source struct {
	Filename string
	MIME     string
	Data     []byte
}

var acceptedMIMEs = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/tiff":      true,
	"image/bmp":       true,
}

// NewSource validates raw bytes and builds a Source. The MIME type is
// sniffed from content, never trusted from the filename or upload headers.
func NewSource(filename string, data []byte, maxBytes int64) (*Source, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Message: "empty document"}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, &ValidationError{Message: fmt.Sprintf("document exceeds size limit: %d > %d bytes", len(data), maxBytes)}
	}

	mt := mimetype.Detect(data)
	mime := mt.String()
	// mimetype appends parameters for some types ("; charset=..."), strip them
	if i := strings.IndexByte(mime, ';'); i > 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if !acceptedMIMEs[mime] {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported content type: %s", mime)}
	}

	if filename == "" {
		filename = "document" + mt.Extension()
	}

	return &Source{Filename: filename, MIME: mime, Data: data}, nil
}

// IsPDF reports whether the source is a PDF rather than a standalone image.
func (s *Source) IsPDF() bool { return s.MIME == "application/pdf" }

// SizeBytes returns the payload size.
func (s *Source) SizeBytes() int { return len(s.Data) }
