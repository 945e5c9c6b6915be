package document

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMaxPixels bounds a decoded surface to 16384x16384 pixels, about
// 1 GiB of NRGBA data.
const DefaultMaxPixels int64 = 16384 * 16384

var ErrSurfaceTooLarge = errors.New("surface too large")

// CheckSurfaceSize rejects surfaces whose area exceeds maxPixels, before
// any pixel buffer is allocated. maxPixels <= 0 selects DefaultMaxPixels.
func CheckSurfaceSize(width, height int, maxPixels int64) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if width > math.MaxInt32 || height > math.MaxInt32 || int64(width)*int64(height) > maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrSurfaceTooLarge, width, height, maxPixels)
	}
	return nil
}
