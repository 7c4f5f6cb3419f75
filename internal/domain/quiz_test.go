package domain

import (
	"encoding/json"
	"testing"
)

func TestOptions_MarshalJSONKeepsOrder(t *testing.T) {
	opts := Options{{"B", "둘"}, {"A", "하나"}}
	b, err := json.Marshal(opts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(b), `{"B":"둘","A":"하나"}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestOptions_EmptyMarshalsAsObject(t *testing.T) {
	b, err := json.Marshal(QuizRecord{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["options"].(map[string]any); !ok {
		t.Errorf("expected options object, got %T", m["options"])
	}
}

func TestOptions_Complete(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want bool
	}{
		{"all four", Options{{"A", "1"}, {"B", "2"}, {"C", "3"}, {"D", "4"}}, true},
		{"missing D", Options{{"A", "1"}, {"B", "2"}, {"C", "3"}}, false},
		{"out of order", Options{{"A", "1"}, {"C", "2"}, {"B", "3"}, {"D", "4"}}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptions_Get(t *testing.T) {
	opts := Options{{"A", "TCP"}, {"B", "UDP"}}
	if v, ok := opts.Get("B"); !ok || v != "UDP" {
		t.Errorf("Get(B) = %q, %v", v, ok)
	}
	if _, ok := opts.Get("Z"); ok {
		t.Error("Get(Z) should miss")
	}
	if opts.Len() != 2 {
		t.Errorf("Len() = %d", opts.Len())
	}
}

func TestExtraction(t *testing.T) {
	p := Parsed("B", "정답: B")
	if !p.OK() || p.Value() != "B" || p.Or(Unconfirmed) != "B" || p.Raw() != "정답: B" {
		t.Errorf("unexpected parsed extraction: %+v", p)
	}
	u := Unparsed[string]("garbage")
	if u.OK() || u.Or(Unconfirmed) != Unconfirmed || u.Raw() != "garbage" {
		t.Errorf("unexpected unparsed extraction: %+v", u)
	}
}
