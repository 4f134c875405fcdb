package classifier

import (
	fitz "github.com/gen2brain/go-fitz"
)

// Doc abstracts an open document for classification probing.
type Doc interface {
	NumPage() int
	PageText(i int) (string, error)
	PageSize(i int) (w, h float64, err error)
	Close() error
}

// Opener abstracts opening raw document bytes into a Doc.
type Opener interface {
	Open(data []byte) (Doc, error)
}

// FitzOpener implements Opener using github.com/gen2brain/go-fitz.
// MuPDF sniffs the format from content, so image sources open too.
type FitzOpener struct{}

func (FitzOpener) Open(data []byte) (Doc, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return fitzDoc{doc}, nil
}

type fitzDoc struct{ *fitz.Document }

func (d fitzDoc) PageText(i int) (string, error) {
	return d.Document.Text(i)
}

func (d fitzDoc) PageSize(i int) (float64, float64, error) {
	b, err := d.Document.Bound(i)
	if err != nil {
		return 0, 0, err
	}
	return float64(b.Dx()), float64(b.Dy()), nil
}
