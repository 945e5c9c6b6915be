package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var errNoSVGRoot = errors.New("document has no <svg> root element")

// cssPixels maps absolute CSS length units to pixels at 96 dpi.
var cssPixels = map[string]float64{
	"":   1,
	"px": 1,
	"pt": 96.0 / 72.0,
	"pc": 16,
	"in": 96,
	"cm": 96 / 2.54,
	"mm": 96 / 25.4,
}

// intrinsicSize reads the width and height attributes of the root <svg>
// element. ok is false when either is missing, relative or not positive.
func intrinsicSize(markup []byte) (width, height int, ok bool, err error) {
	dec := xml.NewDecoder(bytes.NewReader(markup))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, 0, false, errNoSVGRoot
			}
			return 0, 0, false, fmt.Errorf("parse svg: %w", err)
		}

		start, isStart := tok.(xml.StartElement)
		if !isStart {
			continue
		}
		if start.Name.Local != "svg" {
			return 0, 0, false, fmt.Errorf("root element is <%s>: %w", start.Name.Local, errNoSVGRoot)
		}

		if err := drain(dec); err != nil {
			return 0, 0, false, err
		}

		var w, h float64
		var wOK, hOK bool
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				w, wOK = parseLength(attr.Value)
			case "height":
				h, hOK = parseLength(attr.Value)
			}
		}
		if !wOK || !hOK {
			return 0, 0, false, nil
		}
		width, height = toPixels(w), toPixels(h)
		if width <= 0 || height <= 0 {
			return 0, 0, false, nil
		}
		return width, height, true, nil
	}
}

// drain consumes the rest of the document so malformed markup is reported.
func drain(dec *xml.Decoder) error {
	for {
		if _, err := dec.Token(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("parse svg: %w", err)
		}
	}
}

// toPixels rounds to whole pixels, saturating at MaxInt32 so oversized
// lengths stay detectable instead of overflowing int.
func toPixels(v float64) int {
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(v))
}

func parseLength(value string) (float64, bool) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" || strings.HasSuffix(value, "%") {
		return 0, false
	}

	unit := ""
	if len(value) > 2 {
		if _, known := cssPixels[value[len(value)-2:]]; known {
			unit = value[len(value)-2:]
		}
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, unit)), 64)
	if err != nil || n <= 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n * cssPixels[unit], true
}
