package rects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWindow(t *testing.T) {
	t.Parallel()

	w, ok := ParseWindow("")
	assert.True(t, ok)
	assert.Equal(t, Identity, w)

	w, ok = ParseWindow("[0.1,0.2,0.5,0.6]")
	assert.True(t, ok)
	assert.Equal(t, Window{0.1, 0.2, 0.5, 0.6}, w)

	// Malformed input falls back to identity and flags the anomaly.
	for _, raw := range []string{"not json", "[0.1,0.2]", `{"x":1}`, `["a","b","c","d"]`} {
		w, ok = ParseWindow(raw)
		assert.False(t, ok, raw)
		assert.Equal(t, Identity, w, raw)
	}
}

func TestToCroppedSpaceIdentity(t *testing.T) {
	t.Parallel()

	in := []Rect{{0.1, 0.1, 0.2, 0.05}, {-0.5, 2, 0.1, 0.1}}
	assert.Equal(t, in, ToCroppedSpace(in, Identity))
	assert.Equal(t, in, ToOriginalSpace(in, Identity))
}

func TestToCroppedSpaceTransforms(t *testing.T) {
	t.Parallel()

	w := Window{0.1, 0.2, 0.5, 0.5}
	in := []Rect{{0.35, 0.45, 0.1, 0.05}}

	out := ToCroppedSpace(in, w)
	assert.Equal(t, []Rect{{0.5, 0.5, 0.2, 0.1}}, out)
}

func TestToCroppedSpaceDiscardsOutside(t *testing.T) {
	t.Parallel()

	w := Window{0.25, 0.25, 0.5, 0.5}
	in := []Rect{
		{0.3, 0.3, 0.1, 0.1},    // inside
		{0.9, 0.9, 0.05, 0.05},  // entirely outside, dropped
		{0.01, 0.01, 0.02, 0.02}, // before the window, dropped
	}

	out := ToCroppedSpace(in, w)
	assert.Len(t, out, 1)

	// The dropped rects never come back.
	restored := ToOriginalSpace(out, w)
	assert.Len(t, restored, 1)
}

func TestRoundTripInsideWindow(t *testing.T) {
	t.Parallel()

	w := Window{0.1, 0.2, 0.8, 0.6}
	in := []Rect{
		{0.2, 0.3, 0.1, 0.05},
		{0.5, 0.4, 0.25, 0.2},
		{0.1, 0.2, 0.05, 0.05},
	}

	restored := ToOriginalSpace(ToCroppedSpace(in, w), w)
	assert.Len(t, restored, len(in))
	for i := range in {
		for j := 0; j < 4; j++ {
			assert.InDelta(t, in[i][j], restored[i][j], 0.0002)
		}
	}
}
