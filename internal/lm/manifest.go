package lm

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/slidegen/internal/tokenizer"
)

// Stages shipped with the service.
const (
	StageSummary  = "summary"
	StageQuestion = "question"
	StageAnswer   = "answer"
)

//go:embed manifests/*.yaml
var builtin embed.FS

// Coefficients weight the pointer model's scoring terms.
type Coefficients struct {
	// Continuation rewards copying the source position right after the last copied one.
	Continuation float64 `yaml:"continuation"`
	// Bigram rewards a position whose left neighbour equals the last emitted token.
	Bigram float64 `yaml:"bigram"`
	// Salience scales the similarity of a position to the anchor centroid.
	Salience float64 `yaml:"salience"`
	// WordStart rewards "▁" pieces at the start of a copy segment.
	WordStart float64 `yaml:"word_start"`
	// Lead rewards the first uncovered word start at the start of a copy segment, so
	// copies open where the unread source begins.
	Lead float64 `yaml:"lead"`
	// Coverage penalises positions that were already copied.
	Coverage float64 `yaml:"coverage"`
	// Exit is the base score of leaving a copy segment once min is reached.
	Exit float64 `yaml:"exit"`
	// Stop is added to the exit score after a stop token or at the end of the source.
	Stop float64 `yaml:"stop"`
	// Choice scales option salience in choice segments.
	Choice float64 `yaml:"choice"`
}

// DefaultCoefficients are used for fields a manifest leaves out.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Continuation: 6,
		Bigram:       2,
		Salience:     3,
		WordStart:    0.5,
		Lead:         2,
		Coverage:     2,
		Exit:         -1,
		Stop:         8,
		Choice:       4,
	}
}

// CopySpec bounds a copy segment.
type CopySpec struct {
	Min  int      `yaml:"min"`
	Max  int      `yaml:"max"`
	Stop []string `yaml:"stop"`
	// Avoid lists pieces the segment never copies, e.g. option labels.
	Avoid []string `yaml:"avoid"`
}

// ChoiceSpec lists the labels a choice segment may emit.
type ChoiceSpec struct {
	Labels []string `yaml:"labels"`
}

// Segment is one step of the output scaffold. Exactly one field is set.
type Segment struct {
	Literal string      `yaml:"literal,omitempty"`
	Copy    *CopySpec   `yaml:"copy,omitempty"`
	Choice  *ChoiceSpec `yaml:"choice,omitempty"`
}

// Manifest describes one stage model.
type Manifest struct {
	Stage string `yaml:"stage"`
	// CopyFrom is the prompt marker whose region the model copies from.
	CopyFrom string `yaml:"copy_from"`
	// Anchor is the marker whose region defines salience. Empty or absent in the
	// prompt: the copy region itself.
	Anchor       string       `yaml:"anchor"`
	Coefficients Coefficients `yaml:"coefficients"`
	Segments     []Segment    `yaml:"segments"`
}

// LoadManifest reads a manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()
	m, err := ParseManifest(f)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// BuiltinManifest returns the embedded manifest of stage.
func BuiltinManifest(stage string) (*Manifest, error) {
	f, err := builtin.Open("manifests/" + stage + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no builtin manifest for stage %q: %w", stage, err)
	}
	defer func() { _ = f.Close() }()
	return ParseManifest(f)
}

// ParseManifest decodes and validates a manifest. Omitted coefficients keep their
// defaults.
func ParseManifest(r io.Reader) (*Manifest, error) {
	m := &Manifest{Coefficients: DefaultCoefficients()}
	if err := yaml.NewDecoder(r).Decode(m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that every segment is well formed and that the scaffold can be
// replayed unambiguously.
func (m *Manifest) Validate() error {
	if m.Stage == "" {
		return errors.New("manifest: stage is required")
	}
	if len(m.Segments) == 0 {
		return fmt.Errorf("manifest %s: no segments", m.Stage)
	}
	hasCopy := false
	for i, s := range m.Segments {
		set := 0
		if s.Literal != "" {
			set++
		}
		if s.Copy != nil {
			set++
			hasCopy = true
			if s.Copy.Min < 0 || s.Copy.Max < 1 || s.Copy.Min > s.Copy.Max {
				return fmt.Errorf("manifest %s: segment %d: copy bounds [%d, %d]", m.Stage, i, s.Copy.Min, s.Copy.Max)
			}
			if i+1 < len(m.Segments) && m.Segments[i+1].Literal == "" {
				return fmt.Errorf("manifest %s: segment %d: copy must be followed by a literal or end", m.Stage, i)
			}
		}
		if s.Choice != nil {
			set++
			if len(s.Choice.Labels) == 0 {
				return fmt.Errorf("manifest %s: segment %d: choice without labels", m.Stage, i)
			}
		}
		if set != 1 {
			return fmt.Errorf("manifest %s: segment %d must set exactly one of literal, copy, choice", m.Stage, i)
		}
	}
	if hasCopy && m.CopyFrom == "" {
		return fmt.Errorf("manifest %s: copy segments need copy_from", m.Stage)
	}
	return nil
}

// Pieces returns every piece the scaffold emits on its own: literal pieces and
// choice labels. They must be part of the base vocabulary.
func (m *Manifest) Pieces(split func(string) []string) []string {
	var out []string
	for _, s := range m.Segments {
		switch {
		case s.Literal != "":
			out = append(out, split(s.Literal)...)
		case s.Choice != nil:
			for _, l := range s.Choice.Labels {
				out = append(out, labelPiece(l))
			}
		}
	}
	return out
}

func labelPiece(label string) string { return tokenizer.WordMarker + label }
