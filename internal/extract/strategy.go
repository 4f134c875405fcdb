package extract

import (
	"context"

	"github.com/local/docconvert/internal/document"
)

// Strategy names, used in chain tables, health records and metrics.
const (
	NameCloudAPI    = "cloud_api"
	NameNativeText  = "native_text"
	NameOCR         = "ocr"
	NamePlaceholder = "placeholder"
)

// Strategy turns a source document into normalized positioned content.
// Implementations clean up any temp files they create before
// returning, on every path.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, src *document.Source, analysis document.Analysis) (*document.Content, error)
}
