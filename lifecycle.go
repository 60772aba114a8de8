package hsm

import "sync/atomic"

// Lifecycle is the machine's discrete run state (spec.md §3:
// "Constructed → Started → Running → Halting → Halted/Quit"). Started is
// transient: it only describes the window while the initial entry chain
// runs, before the loop pulls its first message.
type Lifecycle int32

const (
	Constructed Lifecycle = iota
	Started
	Running
	Halting
	Halted
)

func (l Lifecycle) String() string {
	switch l {
	case Constructed:
		return "Constructed"
	case Started:
		return "Started"
	case Running:
		return "Running"
	case Halting:
		return "Halting"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}

func (m *Machine) lifecycle() Lifecycle {
	return Lifecycle(atomic.LoadInt32(&m.lifecycleState))
}

func (m *Machine) setLifecycle(l Lifecycle) {
	atomic.StoreInt32(&m.lifecycleState, int32(l))
}
