package summary

import (
	"strings"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/tokenizer"
)

// Variant selects the summarisation prompt. One variant is fixed per deployment.
type Variant string

// Variants.
const (
	// VariantMultimodal conditions on keywords, text and the slide image.
	VariantMultimodal Variant = "multimodal"
	// VariantText conditions on the text alone.
	VariantText Variant = "text"
)

// DefaultInstruction opens every summary prompt.
const DefaultInstruction = "위 강의자료를 아래에 자세하고 풍부하게 요약 및 설명합니다."

// BuildPrompt renders the summary prompt. Missing keywords and text are replaced by
// their sentinels so the model always sees every section.
func BuildPrompt(v Variant, instruction string, ks domain.KeywordSet, text string) string {
	if strings.TrimSpace(text) == "" {
		text = domain.NoContent
	}
	var b strings.Builder
	if instruction != "" {
		b.WriteString(instruction)
		b.WriteByte('\n')
	}
	if v != VariantText {
		kws := domain.NoKeywords
		if len(ks) > 0 {
			kws = strings.Join(ks.Phrases(), ", ")
		}
		b.WriteString(tokenizer.MarkerKeywords + " " + kws + "\n")
	}
	b.WriteString(tokenizer.MarkerText + " " + text + "\n")
	b.WriteString(tokenizer.MarkerSummary)
	return b.String()
}
