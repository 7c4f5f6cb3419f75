package lm

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/slidegen/internal/decoder"
	"github.com/kailas-cloud/slidegen/internal/tokenizer"
	"github.com/kailas-cloud/slidegen/internal/vecmath"
)

// optionMarks are the pieces that may follow a label in "A." style option markers.
var optionMarks = map[string]bool{".": true, ")": true, ":": true, "．": true}

type session struct {
	m         *Model
	vocab     int
	src       []int     // ids of the copy region
	wordStart []bool    // per src position: piece starts a word
	salience  []float64 // per src position
	options   map[int]float64
}

func newSession(m *Model, in *decoder.Input) *session {
	s := &session{m: m, vocab: in.Vocab}
	span := in.Regions[m.copyFrom]
	if span.Empty() || span.End > len(in.Tokens) {
		span = tokenizer.Span{}
	}
	s.src = in.Tokens[span.Start:span.End]
	s.wordStart = make([]bool, len(s.src))
	var pieces []string
	if len(in.Pieces) >= span.End {
		pieces = in.Pieces[span.Start:span.End]
		for i, p := range pieces {
			s.wordStart[i] = strings.HasPrefix(p, tokenizer.WordMarker)
		}
	}
	s.salience = salience(in, span, in.Regions[m.anchor])
	s.options = m.optionSalience(s.src, pieces, s.salience)
	return s
}

// salience scores every copy position by cosine similarity of its fused state to
// the anchor centroid.
func salience(in *decoder.Input, copySpan, anchor tokenizer.Span) []float64 {
	out := make([]float64, copySpan.Len())
	if in.States == nil || copySpan.Empty() {
		return out
	}
	rows, _ := in.States.Dims()
	if copySpan.End > rows {
		return out
	}
	if anchor.Empty() || anchor.End > rows {
		anchor = copySpan
	}
	centroid := centroidOf(in.States, anchor)
	for i := range out {
		out[i] = vecmath.Cosine(in.States.RawRowView(copySpan.Start+i), centroid)
	}
	return out
}

func centroidOf(states *mat.Dense, span tokenizer.Span) []float64 {
	rows := make([][]float64, 0, span.Len())
	for i := span.Start; i < span.End; i++ {
		rows = append(rows, states.RawRowView(i))
	}
	return vecmath.Mean(rows)
}

// optionSalience finds "▁A ." style option markers in the copy region and scores
// each option by the mean salience of its text.
func (m *Model) optionSalience(src []int, pieces []string, sal []float64) map[int]float64 {
	type mark struct{ label, at int }
	var marks []mark
	for i := 0; i+1 < len(pieces); i++ {
		if m.labels[pieces[i]] && optionMarks[pieces[i+1]] {
			marks = append(marks, mark{label: src[i], at: i})
		}
	}
	out := make(map[int]float64, len(marks))
	for k, mk := range marks {
		end := len(src)
		if k+1 < len(marks) {
			end = marks[k+1].at
		}
		var sum float64
		n := 0
		for j := mk.at + 2; j < end; j++ {
			sum += sal[j]
			n++
		}
		if n > 0 {
			out[mk.label] = sum / float64(n)
		}
	}
	return out
}

// state is the scaffold position reached after replaying a prefix.
type state struct {
	seg     int // current segment; len(segments) once the scaffold is exhausted
	pos     int // literal: next piece index; copy: tokens copied so far
	last    int // source position of the last copied token, -1 if none
	lastTok int
	covered []bool
}

func (s *session) replay(prefix []int) state {
	st := state{last: -1, lastTok: -1, covered: make([]bool, len(s.src))}
	for _, tok := range prefix {
		s.advance(&st, tok)
		st.lastTok = tok
	}
	return st
}

func (s *session) advance(st *state, tok int) {
	segs := s.m.segments
	for st.seg < len(segs) {
		seg := &segs[st.seg]
		switch seg.kind {
		case kindLiteral:
			st.pos++
			if st.pos >= len(seg.literal) {
				st.seg, st.pos = st.seg+1, 0
			}
			return
		case kindChoice:
			st.seg, st.pos = st.seg+1, 0
			return
		case kindCopy:
			if tok == seg.exit && (st.pos >= seg.min || len(s.src) == 0) {
				st.seg, st.pos = st.seg+1, 0
				if st.seg == len(segs) {
					return
				}
				// The exit token is the next literal's first piece.
				continue
			}
			st.pos++
			st.last = s.locate(tok, st)
			if st.last >= 0 {
				st.covered[st.last] = true
			}
			return
		}
	}
}

// locate maps an emitted token back to a source position: the continuation of the
// last copied position if it matches, else the first uncovered occurrence, else the
// first occurrence.
func (s *session) locate(tok int, st *state) int {
	if j := st.last + 1; st.last >= 0 && j < len(s.src) && s.src[j] == tok {
		return j
	}
	first := -1
	for j, id := range s.src {
		if id != tok {
			continue
		}
		if !st.covered[j] {
			return j
		}
		if first < 0 {
			first = j
		}
	}
	return first
}

// Logits implements decoder.Session.
func (s *session) Logits(prefix []int) ([]float64, error) {
	out := make([]float64, s.vocab)
	for i := range out {
		out[i] = math.Inf(-1)
	}
	st := s.replay(prefix)
	if st.seg >= len(s.m.segments) {
		s.set(out, s.m.eos, 0)
		return out, nil
	}

	seg := &s.m.segments[st.seg]
	switch seg.kind {
	case kindLiteral:
		s.set(out, seg.literal[st.pos], 0)
	case kindChoice:
		for _, l := range seg.labels {
			s.set(out, l, s.m.coef.Choice*s.options[l])
		}
	case kindCopy:
		s.copyScores(out, seg, st)
	}
	return out, nil
}

func (s *session) copyScores(out []float64, seg *segment, st state) {
	c := s.m.coef
	atMax := st.pos >= seg.max
	canCopy := false
	if !atMax {
		// A segment opens on a word start whenever the source has one. Continuation
		// and bigram terms refer to the previous segment there and do not apply.
		opening := st.pos == 0 && s.hasWordStart(seg)
		lead := -1
		if opening {
			lead = s.firstUncoveredStart(seg, st)
		}
		for j, tok := range s.src {
			if !s.copyable(seg, tok) || (opening && !s.wordStart[j]) {
				continue
			}
			sc := c.Salience * s.salience[j]
			if st.pos > 0 {
				if st.last >= 0 && j == st.last+1 {
					sc += c.Continuation
				}
				if j > 0 && s.src[j-1] == st.lastTok {
					sc += c.Bigram
				}
			}
			if opening {
				sc += c.WordStart
				if j == lead {
					sc += c.Lead
				}
			}
			if st.covered[j] {
				sc -= c.Coverage
			}
			s.set(out, tok, sc)
			canCopy = true
		}
	}

	if st.pos < seg.min && canCopy {
		return
	}
	exit := c.Exit
	if st.pos > 0 && (seg.stop[st.lastTok] || st.last == len(s.src)-1) {
		exit += c.Stop
	}
	s.set(out, seg.exit, exit)
}

func (s *session) copyable(seg *segment, tok int) bool {
	return tok != tokenizer.PadID && tok != tokenizer.EOSID && !seg.avoid[tok]
}

func (s *session) hasWordStart(seg *segment) bool {
	for j, tok := range s.src {
		if s.wordStart[j] && s.copyable(seg, tok) {
			return true
		}
	}
	return false
}

// firstUncoveredStart returns the earliest copyable word start not copied yet, or -1.
func (s *session) firstUncoveredStart(seg *segment, st state) int {
	for j, tok := range s.src {
		if s.wordStart[j] && !st.covered[j] && s.copyable(seg, tok) {
			return j
		}
	}
	return -1
}

// set raises out[id] to v.
func (s *session) set(out []float64, id int, v float64) {
	if id >= 0 && id < len(out) && v > out[id] {
		out[id] = v
	}
}
