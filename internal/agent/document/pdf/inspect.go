package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PageInfo describes the first page of a PDF.
type PageInfo struct {
	Pages  int
	Width  float64
	Height float64
}

// Inspect parses a PDF and reports its page count and first MediaBox.
func Inspect(data []byte) (info *PageInfo, err error) {
	defer func() {
		// the reader panics on some malformed inputs
		if r := recover(); r != nil {
			info = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader := bytes.NewReader(data)
	r, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	if n == 0 {
		return nil, errors.New("pdf has no pages")
	}

	page := r.Page(1)
	if page.V.IsNull() {
		return nil, errors.New("first page is missing")
	}

	box := page.V.Key("MediaBox")
	for parent := page.V.Key("Parent"); box.IsNull() && !parent.IsNull(); parent = parent.Key("Parent") {
		box = parent.Key("MediaBox")
	}
	if box.Len() != 4 {
		return nil, errors.New("first page has no MediaBox")
	}

	return &PageInfo{
		Pages:  n,
		Width:  box.Index(2).Float64() - box.Index(0).Float64(),
		Height: box.Index(3).Float64() - box.Index(1).Float64(),
	}, nil
}
