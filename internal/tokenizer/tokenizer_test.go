package tokenizer

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newTestTokenizer(cfg Config) *Tokenizer {
	return New(NewVocab("▁A", "▁B", "▁문제"), cfg)
}

func TestPieces(t *testing.T) {
	tok := newTestTokenizer(Config{})
	got := tok.Pieces("IP 헤더는 20바이트이다.")
	want := []string{"▁IP", "▁헤더", "는", "▁20", "바이트", "이다", "."}
	if !slices.Equal(got, want) {
		t.Errorf("Pieces = %v, want %v", got, want)
	}
}

func TestPieces_MarkersAreAtomic(t *testing.T) {
	tok := newTestTokenizer(Config{})
	got := tok.Pieces("[KEYWORDS] 운영체제 [TEXT] x")
	want := []string{"[KEYWORDS]", "▁운영체제", "[TEXT]", "▁x"}
	if !slices.Equal(got, want) {
		t.Errorf("Pieces = %v, want %v", got, want)
	}
}

func TestEncodeDecode_RoundTripThroughOverlay(t *testing.T) {
	tok := newTestTokenizer(Config{})
	ov := tok.NewOverlay()
	in := "운영체제는 프로세스를 관리한다."
	ids := tok.Encode(ov, in)
	for _, id := range ids {
		if id == UnkID {
			t.Fatalf("overlay produced <unk> for %v", ids)
		}
	}
	if got := tok.Decode(ov, ids); got != in {
		t.Errorf("Decode = %q, want %q", got, in)
	}
}

func TestOverlay_StableIDs(t *testing.T) {
	v := NewVocab()
	ov := NewOverlay(v)
	a := ov.Lookup("▁새단어")
	b := ov.Lookup("▁새단어")
	if a != b || a < v.Size() {
		t.Errorf("expected stable overlay id >= %d, got %d and %d", v.Size(), a, b)
	}
	if ov.Piece(a) != "▁새단어" {
		t.Errorf("Piece(%d) = %q", a, ov.Piece(a))
	}
	if ov.Piece(a+10) != UnkToken {
		t.Errorf("out-of-range id should be <unk>")
	}
}

func TestEncodeInput_TruncatesAndFlags(t *testing.T) {
	tok := newTestTokenizer(Config{MaxInputTokens: 4})
	enc := tok.EncodeInput(tok.NewOverlay(), "하나 둘 셋 넷 다섯")
	if !enc.Truncated {
		t.Error("expected Truncated")
	}
	if len(enc.IDs) != 4 || enc.IDs[3] != EOSID {
		t.Errorf("unexpected ids %v", enc.IDs)
	}
}

func TestEncodeInput_Pads(t *testing.T) {
	tok := newTestTokenizer(Config{MaxInputTokens: 6, PadToMaxLength: true})
	enc := tok.EncodeInput(tok.NewOverlay(), "하나")
	if len(enc.IDs) != 6 {
		t.Fatalf("expected 6 ids, got %d", len(enc.IDs))
	}
	if enc.Len() != 2 || enc.IDs[5] != PadID || enc.Mask[5] {
		t.Errorf("unexpected padding: %+v", enc)
	}
	if enc.Truncated {
		t.Error("short input must not be flagged")
	}
}

func TestClean_StripsArtifacts(t *testing.T) {
	got := Clean("<pad>▁운영체제<extra_id_0>는 ▁관리</s><unk> ")
	if got != "운영체제 는 관리" {
		t.Errorf("Clean = %q", got)
	}
}

func TestRegions(t *testing.T) {
	tok := newTestTokenizer(Config{})
	ov := tok.NewOverlay()
	enc := tok.EncodeInput(ov, "요약 [KEYWORDS] 운영체제 [TEXT] 운영체제는 관리 [SUMMARY]")
	r := tok.Regions(enc.IDs)

	kw := r[MarkerKeywords]
	if kw.Len() != 1 || enc.Pieces[kw.Start] != "▁운영체제" {
		t.Errorf("keywords region = %+v", kw)
	}
	txt := r[MarkerText]
	if got := tok.Decode(ov, enc.IDs[txt.Start:txt.End]); got != "운영체제는 관리" {
		t.Errorf("text region decodes to %q", got)
	}
	if s := r[MarkerSummary]; !s.Empty() {
		t.Errorf("summary region should be empty, got %+v", s)
	}
}

func TestLoadVocab(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte("# pieces\n▁운영체제\n\n▁프로세스\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	v, err := LoadVocab(path, "▁관리")
	if err != nil {
		t.Fatalf("LoadVocab: %v", err)
	}
	for _, p := range []string{"▁운영체제", "▁프로세스", "▁관리", EOSToken} {
		if _, ok := v.ID(p); !ok {
			t.Errorf("missing %q", p)
		}
	}
	if id, _ := v.ID(PadToken); id != PadID {
		t.Errorf("pad id = %d", id)
	}
}

func TestEmbeddingTable_Deterministic(t *testing.T) {
	tab := NewEmbeddingTable(16, 7)
	a, b := tab.Vector("▁운영체제"), tab.Vector("▁운영체제")
	if !slices.Equal(a, b) {
		t.Error("same piece must embed identically")
	}
	if slices.Equal(a, tab.Vector("▁프로세스")) {
		t.Error("different pieces should differ")
	}

	ov := NewOverlay(NewVocab())
	m := tab.Embed(ov, []int{ov.Lookup("▁x"), PadID})
	if r, c := m.Dims(); r != 2 || c != 16 {
		t.Fatalf("dims = %d x %d", r, c)
	}
	for j := range 16 {
		if m.At(1, j) != 0 {
			t.Fatal("padding row must be zero")
		}
	}
}
