package domain

import (
	"image"
	"strings"
)

// Sentinel strings substituted when an input or a parsed field is unusable.
const (
	NoContent   = "(no content)"
	NoKeywords  = "(no keywords)"
	Unconfirmed = "unconfirmed"
)

// SlideInput is one lecture slide: a rendered image (may be nil) and its extracted text.
type SlideInput struct {
	Image image.Image
	Text  string
}

// HasText reports whether the slide carries non-whitespace text.
func (s SlideInput) HasText() bool {
	return strings.TrimSpace(s.Text) != ""
}

// HasImage reports whether the slide carries an image with a non-empty pixel area.
func (s SlideInput) HasImage() bool {
	if s.Image == nil {
		return false
	}
	return !s.Image.Bounds().Empty()
}

// Summary is the result of summarising one slide.
// Text is the decoded summary; the remaining fields describe how it was produced.
type Summary struct {
	Text       string     `json:"summary"`
	Keywords   KeywordSet `json:"keywords"`
	Terminated bool       `json:"terminated"` // false when the best beam hit max_new_tokens
	Truncated  bool       `json:"truncated"`  // true when the prompt exceeded max_input_tokens
	ImageUsed  bool       `json:"image_used"`
}
