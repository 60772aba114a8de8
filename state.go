package hsm

// State is the minimal capability every node in the tree must implement:
// a display name. spec.md §3: "display name (may be absent → rendered as
// a null placeholder)".
//
// Enter, Exit, and ProcessMessage are each their own single-method
// interface (EnterState, ExitState, MessageState below) instead of
// methods on State itself, so a state that only cares about messages
// never has to stub out Enter/Exit. The engine type-asserts for each
// capability at dispatch time and never downcasts to a concrete type
// (spec.md §9 design note).
type State interface {
	Name() string
}

// EnterState is implemented by states that run an action on entry. The
// Machine parameter gives the hook access to TransitionTo, Send, and the
// rest of the dispatch-time API; it must not be retained past the call.
type EnterState interface {
	State
	Enter(m *Machine)
}

// ExitState is implemented by states that run an action on exit. Exit
// hooks may call TransitionTo/TransitionToHaltingState to redirect an
// in-flight transition (spec.md §4.3).
type ExitState interface {
	State
	Exit(m *Machine)
}

// MessageState is implemented by states that handle dispatched messages.
// ProcessMessage returns true if it handled the message; false bubbles it
// to the parent state (spec.md §4.4).
type MessageState interface {
	State
	ProcessMessage(m *Machine, msg *Message) bool
}

// BaseState is an embeddable default: a stable name and none of the
// optional capabilities. Embed it and implement only the hooks a state
// actually needs, rather than stubbing out Enter/Exit/ProcessMessage by
// hand — the same shape generated *Unimplemented*Server types give gRPC
// services.
type BaseState struct {
	name string
}

// NewBaseState returns a BaseState with the given display name. An empty
// name is legal; it renders as "(null)" (spec.md §4.8).
func NewBaseState(name string) BaseState { return BaseState{name: name} }

func (b BaseState) Name() string { return b.name }
