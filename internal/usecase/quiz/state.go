package quiz

import "fmt"

// State is a step of quiz generation.
type State string

// States.
const (
	StateIdle              State = "idle"
	StateQuestionGenerated State = "question_generated"
	StateQuestionParsed    State = "question_parsed"
	StateAnswerGenerated   State = "answer_generated"
	StateAnswerParsed      State = "answer_parsed"
	StateComplete          State = "complete"
	StateDegraded          State = "degraded"
)

var transitions = map[State][]State{
	StateIdle:              {StateQuestionGenerated},
	StateQuestionGenerated: {StateQuestionParsed},
	StateQuestionParsed:    {StateAnswerGenerated, StateDegraded},
	StateAnswerGenerated:   {StateAnswerParsed},
	StateAnswerParsed:      {StateComplete, StateDegraded},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

type machine struct {
	state State
	path  []State
}

func newMachine() *machine {
	return &machine{state: StateIdle, path: []State{StateIdle}}
}

func (m *machine) to(next State) error {
	for _, s := range transitions[m.state] {
		if s == next {
			m.state = next
			m.path = append(m.path, next)
			return nil
		}
	}
	return fmt.Errorf("quiz: illegal transition %s -> %s", m.state, next)
}
