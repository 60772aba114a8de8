package hsm

import "time"

// kind distinguishes ordinary client messages from the synthetic quit
// marker (spec.md §4.6). It is never exposed to client code; the "what"
// integer space stays entirely open for client-defined command codes
// (spec.md §9 design note: "keep it an integer to preserve binary
// compatibility").
type kind uint8

const (
	kindUser kind = iota
	kindQuit
)

// Message is the envelope carried through the queue and handed to
// ProcessMessage. Fields mirror spec.md §3: an integer discriminator,
// two optional numeric arguments, one opaque payload slot, and the
// scheduled delivery time. Messages are lightweight and copyable;
// payload ownership passes to the engine only for the duration of
// dispatch.
type Message struct {
	What int
	Arg1 int
	Arg2 int
	Obj  any

	kind        kind
	scheduledAt time.Time
	seq         uint64
	machine     *Machine
}

// Machine returns the machine this message was sent to.
func (m *Message) Machine() *Machine { return m.machine }

// ScheduledAt returns the monotonic instant at which the message became
// eligible for dispatch.
func (m *Message) ScheduledAt() time.Time { return m.scheduledAt }

func newMessage(what, arg1, arg2 int, obj any) *Message {
	return &Message{What: what, Arg1: arg1, Arg2: arg2, Obj: obj, kind: kindUser}
}
