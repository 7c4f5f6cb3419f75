package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Special pieces. Their IDs are fixed.
const (
	PadToken = "<pad>"
	EOSToken = "</s>"
	UnkToken = "<unk>"

	PadID = 0
	EOSID = 1
	UnkID = 2
)

// WordMarker prefixes a piece that starts a new whitespace-delimited word.
const WordMarker = "▁"

// Prompt markers. They are always single pieces.
const (
	MarkerKeywords = "[KEYWORDS]"
	MarkerText     = "[TEXT]"
	MarkerSummary  = "[SUMMARY]"
	MarkerQuestion = "[QUESTION]"
	MarkerAnswer   = "[ANSWER]"
)

// Markers lists every prompt marker.
var Markers = []string{MarkerKeywords, MarkerText, MarkerSummary, MarkerQuestion, MarkerAnswer}

// sentinelCount is the number of <extra_id_N> pieces reserved in the base vocabulary.
const sentinelCount = 10

var basePunct = []string{".", ",", ":", "：", "?", "!", "(", ")", "-", "/", "'", "\"", "．", "·"}

// Vocab is an immutable piece <-> id table once built.
type Vocab struct {
	pieces []string
	ids    map[string]int
}

// NewVocab creates a vocabulary made of the special pieces, sentinels, markers,
// punctuation and the given pieces, in that order. Duplicates are ignored.
func NewVocab(pieces ...string) *Vocab {
	v := &Vocab{ids: make(map[string]int)}
	v.add(PadToken, EOSToken, UnkToken)
	for i := range sentinelCount {
		v.add(fmt.Sprintf("<extra_id_%d>", i))
	}
	v.add(Markers...)
	v.add(basePunct...)
	v.add(pieces...)
	return v
}

// LoadVocab reads one piece per line from path and builds a vocabulary on top of the
// base pieces. Blank lines and lines starting with "#" are skipped.
func LoadVocab(path string, extra ...string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer func() { _ = f.Close() }()

	pieces, err := readPieces(f)
	if err != nil {
		return nil, fmt.Errorf("read vocab %s: %w", path, err)
	}
	return NewVocab(append(pieces, extra...)...), nil
}

func readPieces(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	return out, nil
}

func (v *Vocab) add(pieces ...string) {
	for _, p := range pieces {
		if _, ok := v.ids[p]; ok || p == "" {
			continue
		}
		v.ids[p] = len(v.pieces)
		v.pieces = append(v.pieces, p)
	}
}

// Extend returns a new vocabulary with pieces appended. v is left unchanged.
func (v *Vocab) Extend(pieces ...string) *Vocab {
	out := &Vocab{
		pieces: make([]string, len(v.pieces), len(v.pieces)+len(pieces)),
		ids:    make(map[string]int, len(v.ids)+len(pieces)),
	}
	copy(out.pieces, v.pieces)
	for k, id := range v.ids {
		out.ids[k] = id
	}
	out.add(pieces...)
	return out
}

// Size returns the number of pieces.
func (v *Vocab) Size() int { return len(v.pieces) }

// ID returns the id of piece.
func (v *Vocab) ID(piece string) (int, bool) {
	id, ok := v.ids[piece]
	return id, ok
}

// Piece returns the piece for id, or UnkToken when out of range.
func (v *Vocab) Piece(id int) string {
	if id < 0 || id >= len(v.pieces) {
		return UnkToken
	}
	return v.pieces[id]
}

// MustID returns the id of a piece known to be present, e.g. a marker.
func (v *Vocab) MustID(piece string) int {
	id, ok := v.ids[piece]
	if !ok {
		panic("tokenizer: piece not in vocabulary: " + piece)
	}
	return id
}
