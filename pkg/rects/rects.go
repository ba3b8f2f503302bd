// Package rects converts highlight rectangles between the two
// percentage-based coordinate spaces used for page images: the full
// original scan and the cropped viewport cut out of it. All values are
// fractions of the original image's width and height.
package rects

import (
	"math"

	"github.com/segmentio/encoding/json"
)

// Rect is [x, y, w, h], each a fraction in 0..1.
type Rect [4]float64

// Window is the region of the original image that the cropped variant
// displays, as [x, y, w, h] fractions of the original dimensions.
type Window [4]float64

// Identity is the window covering the whole original image.
var Identity = Window{0, 0, 1, 1}

// IsIdentity reports whether the window covers the full original image.
func (w Window) IsIdentity() bool {
	return w == Identity
}

// ParseWindow parses a stored crop-box JSON string into a Window. Anything
// that is not a 4-element numeric array (including an empty string) yields
// the identity window; ok is false for malformed non-empty input so the
// caller can report the anomaly instead of failing the read.
func ParseWindow(raw string) (Window, bool) {
	if raw == "" {
		return Identity, true
	}
	var vals []float64
	if err := json.Unmarshal([]byte(raw), &vals); err != nil || len(vals) != 4 {
		return Identity, false
	}
	return Window{vals[0], vals[1], vals[2], vals[3]}, true
}

// ToCroppedSpace maps original-space rects into the window's space. Rects
// that land entirely outside the cropped viewport are dropped, which makes
// this transform lossy: a round trip through ToOriginalSpace only restores
// the input when nothing was discarded. Results are rounded to 4 decimals.
func ToCroppedSpace(in []Rect, w Window) []Rect {
	if len(in) == 0 || w.IsIdentity() {
		return in
	}

	vx, vy, vw, vh := w[0], w[1], w[2], w[3]
	out := make([]Rect, 0, len(in))
	for _, r := range in {
		nx := (r[0] - vx) / vw
		ny := (r[1] - vy) / vh
		nw := r[2] / vw
		nh := r[3] / vh

		if nx+nw < 0 || nx > 1 || ny+nh < 0 || ny > 1 {
			continue
		}

		out = append(out, Rect{round4(nx), round4(ny), round4(nw), round4(nh)})
	}
	return out
}

// ToOriginalSpace maps cropped-space rects back into original-image space.
// This is the exact inverse of ToCroppedSpace for rects that survived it.
func ToOriginalSpace(in []Rect, w Window) []Rect {
	if len(in) == 0 || w.IsIdentity() {
		return in
	}

	vx, vy, vw, vh := w[0], w[1], w[2], w[3]
	out := make([]Rect, 0, len(in))
	for _, r := range in {
		ox := vx + r[0]*vw
		oy := vy + r[1]*vh
		ow := r[2] * vw
		oh := r[3] * vh
		out = append(out, Rect{round4(ox), round4(oy), round4(ow), round4(oh)})
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
