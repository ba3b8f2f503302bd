package extract

import (
	"bufio"
	"bytes"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// CommandExtractor drives an external extraction engine over a line
// protocol: the engine writes one JSON object per stdout line, progress
// events first and a single result event last.
type CommandExtractor struct {
	command string
}

func NewCommandExtractor(command string) *CommandExtractor {
	return &CommandExtractor{command: command}
}

type event struct {
	Type string `json:"type"`

	// progress events
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`

	// result event
	Success  bool           `json:"success"`
	Pages    []*wirePage    `json:"pages"`
	Chapters []*wireOutline `json:"chapters"`
}

type wirePage struct {
	PageNo        int      `json:"page_no"`
	Text          []string `json:"text"`
	ImagePath     string   `json:"image_path"`
	CropImagePath string   `json:"crop_image_path"`
	CropBox       string   `json:"crop_box"`
}

type wireOutline struct {
	Title      string         `json:"title"`
	FromPageNo int            `json:"from_page_no"`
	ToPageNo   int            `json:"to_page_no"`
	Children   []*wireOutline `json:"children"`
}

func (p *wirePage) toPage() *Page {
	return &Page{
		PageNo:        p.PageNo,
		Text:          p.Text,
		ImagePath:     p.ImagePath,
		CropImagePath: p.CropImagePath,
		CropBox:       p.CropBox,
	}
}

func (o *wireOutline) toOutline() *Outline {
	out := &Outline{
		Title:      o.Title,
		FromPageNo: o.FromPageNo,
		ToPageNo:   o.ToPageNo,
	}
	for _, child := range o.Children {
		out.Children = append(out.Children, child.toOutline())
	}
	return out
}

func (e *CommandExtractor) Extract(sourcePath, imageDir string, onProgress Progress) (*Result, error) {
	parts := strings.Fields(e.command)
	if len(parts) == 0 {
		return nil, errors.New("no extractor command configured")
	}

	args := append(parts[1:], "extract", "--source", sourcePath, "--image-dir", imageDir)
	cmd := exec.Command(parts[0], args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.WithStack(err)
	}

	var result *Result
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "progress":
			if onProgress != nil {
				onProgress(ev.Current, ev.Total, ev.Message)
			}
		case "result":
			result = &Result{
				Success: ev.Success,
				Message: ev.Message,
			}
			for _, p := range ev.Pages {
				result.Pages = append(result.Pages, p.toPage())
			}
			for _, ch := range ev.Chapters {
				result.Chapters = append(result.Chapters, ch.toOutline())
			}
		}
	}
	if err := scanner.Err(); err != nil {
		cmd.Wait()
		return nil, errors.WithStack(err)
	}

	if err := cmd.Wait(); err != nil {
		return nil, errors.Wrapf(err, "extractor exited: %s", stderr.String())
	}
	if result == nil {
		return nil, errors.New("extractor produced no result")
	}

	return result, nil
}

type wireMatch struct {
	Term  string       `json:"term"`
	Rects [][4]float64 `json:"rects"`
}

type scanOutput struct {
	Matches map[string][]wireMatch `json:"matches"`
}

func (e *CommandExtractor) ScanKeywords(sourcePath string, fromPage, toPage int, keywords []string) (map[int][]KeywordMatch, error) {
	parts := strings.Fields(e.command)
	if len(parts) == 0 {
		return nil, errors.New("no extractor command configured")
	}

	input, err := json.Marshal(keywords)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	args := append(parts[1:], "scan",
		"--source", sourcePath,
		"--from", strconv.Itoa(fromPage),
		"--to", strconv.Itoa(toPage),
	)
	cmd := exec.Command(parts[0], args...)
	cmd.Stdin = bytes.NewReader(input)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrapf(err, "extractor exited: %s", stderr.String())
	}

	var parsed scanOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, errors.WithStack(err)
	}

	matches := make(map[int][]KeywordMatch, len(parsed.Matches))
	for pageStr, pageMatches := range parsed.Matches {
		pageNo, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, errors.Wrapf(err, "bad page number %q in scan output", pageStr)
		}
		for _, m := range pageMatches {
			matches[pageNo] = append(matches[pageNo], KeywordMatch{Term: m.Term, Rects: m.Rects})
		}
	}

	return matches, nil
}
