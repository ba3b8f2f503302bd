// Package extract defines the boundary to the document-structure extractor:
// the CPU-bound engine that splits a source file into page images, embedded
// text, and a chapter outline, and that can locate keywords on pages. The
// engine itself runs out of process; this package only fixes the contract
// the pipelines consume.
package extract

// Progress is invoked from the extractor's own execution context as pages
// are produced. Implementations must not assume it runs on the caller's
// goroutine.
type Progress func(current, total int, message string)

// Page is one extracted page: image paths on local disk, the text lines
// found on the page, and the crop-box JSON describing the cropped variant's
// viewport (empty when the cropped image shows the full page).
type Page struct {
	PageNo        int
	Text          []string
	ImagePath     string
	CropImagePath string
	CropBox       string
}

// Outline is one node of the extracted chapter tree. Page ranges are
// inclusive.
type Outline struct {
	Title      string
	FromPageNo int
	ToPageNo   int
	Children   []*Outline
}

// Result is the outcome of a structural extraction. Success=false with a
// Message is a logical failure (bad source document), not a system fault.
type Result struct {
	Success  bool
	Message  string
	Pages    []*Page
	Chapters []*Outline
}

// KeywordMatch is every occurrence of one term on one page. Rects are
// [x,y,w,h] fractions in original-image space.
type KeywordMatch struct {
	Term  string
	Rects [][4]float64
}

type Extractor interface {
	// Extract parses the source file, writing page images under imageDir.
	// onProgress may be nil.
	Extract(sourcePath, imageDir string, onProgress Progress) (*Result, error)

	// ScanKeywords locates the given keywords on pages fromPage..toPage
	// (inclusive, 1-based) and returns matches grouped by page number.
	ScanKeywords(sourcePath string, fromPage, toPage int, keywords []string) (map[int][]KeywordMatch, error)
}
