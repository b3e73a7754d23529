package checkout

// State is a step of a single checkout run.
type State string

const (
	StateValidating    State = "VALIDATING"
	StateCreatingOrder State = "CREATING_ORDER"
	StateWritingLines  State = "WRITING_LINES"
	StateClearingCart  State = "CLEARING_CART"
	StateComplete      State = "COMPLETE"
	StateFailed        State = "FAILED"
)

var transitions = map[State][]State{
	StateValidating:    {StateCreatingOrder, StateFailed},
	StateCreatingOrder: {StateWritingLines, StateFailed},
	StateWritingLines:  {StateClearingCart, StateFailed},
	StateClearingCart:  {StateComplete, StateFailed},
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

func (s State) String() string {
	return string(s)
}
