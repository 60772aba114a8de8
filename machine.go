package hsm

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Observer receives a notification after every dispatch that requested a
// transition (from is the origin leaf, to the destination name, or
// "(halt)" for TransitionToHaltingState) and after every dispatch that no
// state handled (from and to are both the origin leaf). err is nil in
// both cases. The initial entry chain run by Start and the quit marker
// send no notification. Supplemented
// feature (SPEC_FULL.md): a live counterpart to the log ring for callers
// that don't want to poll CopyLogRecs, grounded in noru-rfsm's
// Subscriber/OnTransition pattern.
type Observer interface {
	OnTransition(from, to string, msg *Message, err error)
}

// MachineObserver groups the three machine-level hooks from spec.md §6:
// UnhandledMessage, OnHalting, OnQuitting. Embed BaseMachineObserver to
// implement only the ones you need.
type MachineObserver interface {
	UnhandledMessage(m *Machine, msg *Message)
	OnHalting(m *Machine)
	OnQuitting(m *Machine)
}

// BaseMachineObserver supplies no-op defaults for MachineObserver.
type BaseMachineObserver struct{}

func (BaseMachineObserver) UnhandledMessage(*Machine, *Message) {}
func (BaseMachineObserver) OnHalting(*Machine)                  {}
func (BaseMachineObserver) OnQuitting(*Machine)                 {}

// Machine is the driver described in spec.md §2 component 8: it owns the
// state tree, message queue, deferred queue, transition controller, and
// log ring, and runs the dispatch loop on a Looper (spec.md §5).
type Machine struct {
	name     string
	tree     *tree
	queue    *messageQueue
	deferred deferredQueue
	log      *logRing
	logger   *zap.Logger
	observer MachineObserver

	looper     *Looper
	ownsLooper bool

	statusMu sync.RWMutex
	active   []*stateNode // root..leaf, the contiguous active path
	started  bool

	lifecycleState int32 // Lifecycle, accessed via atomic

	// dispatch-scoped state, touched only by the worker goroutine
	currentMsg       *Message
	inProcessMessage bool
	deferredThisMsg  bool
	pending          pendingTransition
	lastErr          error

	subsMu sync.RWMutex
	subs   []Observer

	dbg atomic.Bool
}

// NewMachine constructs a machine. logger may be nil (a no-op logger is
// used); looper may be nil (a private one is created on Start, making
// the dedicated-thread and shared-thread cases the same code path —
// SPEC_FULL.md "Shared worker thread — Looper").
func NewMachine(name string, observer MachineObserver, logger *zap.Logger, looper *Looper) *Machine {
	if observer == nil {
		observer = BaseMachineObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		name:     name,
		tree:     newTree(),
		queue:    newMessageQueue(),
		log:      newLogRing(20),
		logger:   logger.Named(name),
		observer: observer,
		looper:   looper,
	}
	return m
}

// AddState registers a node; parent may be nil for a root. Pre-start
// only (spec.md §4.1).
func (m *Machine) AddState(s State, parent State) error {
	return m.tree.addState(s, parent)
}

// SetInitialState marks the entry leaf. Pre-start only.
func (m *Machine) SetInitialState(s State) error {
	return m.tree.setInitialState(s)
}

// SetLogRecSize resizes the log ring, truncating the oldest entries if
// shrinking. Legal at any time.
func (m *Machine) SetLogRecSize(n int) { m.log.setCapacity(n) }

// SetDbg toggles synthetic enter/exit/onQuitting/onHalting log records.
func (m *Machine) SetDbg(on bool) { m.dbg.Store(on) }

// Subscribe registers an Observer notified after each dispatch that
// requests a transition or that no state handles.
func (m *Machine) Subscribe(o Observer) {
	m.subsMu.Lock()
	m.subs = append(m.subs, o)
	m.subsMu.Unlock()
}

func (m *Machine) notify(from, to string, msg *Message, err error) {
	m.subsMu.RLock()
	subs := append([]Observer(nil), m.subs...)
	m.subsMu.RUnlock()
	for _, s := range subs {
		s.OnTransition(from, to, msg, err)
	}
}

// Start validates the tree, runs the initial entry chain, and begins
// dispatch on the bound Looper (spec.md §4.6). A second call while
// already started is a no-op; a call after halting is a configuration
// fault (spec.md §9 Open Question, resolved: a halted machine cannot be
// restarted because its queue was closed and its tree nodes already
// carry exit-side effects the client cannot safely replay).
func (m *Machine) Start() error {
	m.statusMu.Lock()
	if m.lifecycle() == Halted {
		m.statusMu.Unlock()
		return configErrorf(ErrAlreadyStarted, "Start after halt")
	}
	if m.started {
		m.statusMu.Unlock()
		return nil
	}
	if err := m.tree.freeze(); err != nil {
		m.statusMu.Unlock()
		return err
	}
	m.setLifecycle(Started)
	m.started = true
	m.statusMu.Unlock()

	if m.looper == nil {
		m.looper = NewLooper()
		m.ownsLooper = true
	}

	m.logger.Debug("starting", zap.String("initial", safeName(m.tree.initial.state)))
	m.drive(m.tree.initial, haltNone)
	m.setLifecycle(Running)
	m.looper.attach(m)
	return nil
}

// Send enqueues a message for immediate delivery.
func (m *Machine) Send(what, arg1, arg2 int, obj any) {
	msg := newMessage(what, arg1, arg2, obj)
	msg.machine = m
	if !m.queue.send(msg, time.Now()) {
		m.logger.Debug("send after halt dropped", zap.Int("what", what))
		return
	}
	m.wake()
}

// SendDelayed enqueues a message for delivery no earlier than delay from
// now.
func (m *Machine) SendDelayed(what, arg1, arg2 int, obj any, delay time.Duration) {
	msg := newMessage(what, arg1, arg2, obj)
	msg.machine = m
	if !m.queue.sendDelayed(msg, time.Now(), delay) {
		m.logger.Debug("sendDelayed after halt dropped", zap.Int("what", what))
		return
	}
	m.wake()
}

// Quit posts the quit marker at the tail of the queue: messages already
// queued are processed normally, then the marker drives an orderly
// leaf-to-root exit and OnQuitting (spec.md §4.6).
func (m *Machine) Quit() {
	marker := &Message{kind: kindQuit, machine: m}
	if m.queue.send(marker, time.Now()) {
		m.wake()
	}
}

// QuitNow posts the marker at the head of the queue and discards
// everything else pending; the in-flight dispatch (if any) still
// completes first, since the Looper only ever runs one dispatch at a
// time. The queue stays closed throughout, so any Send/SendDelayed a
// producer races against this call is correctly rejected rather than
// briefly reopened (spec.md §4.2).
func (m *Machine) QuitNow() {
	marker := &Message{kind: kindQuit, machine: m}
	m.queue.closeAndDrop()
	m.queue.dropPendingAndPushFront(marker, time.Now())
	m.wake()
}

func (m *Machine) wake() {
	if m.looper != nil {
		m.looper.signal()
	}
}

// GetCurrentMessage returns the message presently being dispatched, or
// nil outside a dispatch. Stable throughout a dispatch including any
// exit/enter calls the dispatch triggers (spec.md §4.4).
func (m *Machine) GetCurrentMessage() *Message { return m.currentMsg }

// DeferMessage parks the message currently being dispatched instead of
// consuming it; legal only from within ProcessMessage (spec.md §4.5,
// §9 Open Question resolved as "illegal outside ProcessMessage").
func (m *Machine) DeferMessage() {
	if !m.inProcessMessage {
		panic(ErrDeferOutsideMsg)
	}
	m.deferredThisMsg = true
}

// TransitionTo requests a transition to target. Only the last call made
// during a single dispatch — including calls from Enter/Exit triggered
// by this same dispatch — takes effect (spec.md §4.3).
func (m *Machine) TransitionTo(target State) {
	n, ok := m.tree.node(target)
	if !ok {
		panic(configErrorf(ErrUnknownState, "TransitionTo(%q)", safeName(target)))
	}
	m.pending = pendingTransition{set: true, target: n}
}

// TransitionToHaltingState requests an orderly shutdown: every active
// state is exited leaf-to-root, OnHalting fires, and the machine halts
// (spec.md §4.3 step 5, §4.6).
func (m *Machine) TransitionToHaltingState() {
	m.pending = pendingTransition{set: true, halt: true}
}

// IsActive reports whether s lies on the current active path.
func (m *Machine) IsActive(s State) bool {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	for _, n := range m.active {
		if n.state == s {
			return true
		}
	}
	return false
}

// Current returns the current leaf state, or nil before Start.
func (m *Machine) Current() State {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	if len(m.active) == 0 {
		return nil
	}
	return m.active[len(m.active)-1].state
}

// CurrentPath returns the active path root..leaf.
func (m *Machine) CurrentPath() []State {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	out := make([]State, len(m.active))
	for i, n := range m.active {
		out[i] = n.state
	}
	return out
}

// Err returns the panic recovered from a user hook, if the machine
// crashed (spec.md §7 "user-hook fault").
func (m *Machine) Err() error { return m.lastErr }

// Lifecycle returns the machine's discrete run state.
func (m *Machine) Lifecycle() Lifecycle { return m.lifecycle() }

// GetLogRec returns the i'th chronological log entry.
func (m *Machine) GetLogRec(i int) (LogRec, bool) { return m.log.get(i) }

// GetLogRecSize returns the ring's current occupancy (<= capacity).
func (m *Machine) GetLogRecSize() int { return m.log.recSize() }

// GetLogRecCount returns the total number of records ever appended.
func (m *Machine) GetLogRecCount() uint64 { return m.log.recCount() }

// CopyLogRecs returns a chronological snapshot safe to read from any
// goroutine.
func (m *Machine) CopyLogRecs() []LogRec { return m.log.copyAll() }

// String renders "<name>: <current state>", the current state rendered
// as "(null)" if absent (spec.md §4.8). Succeeds even with zero states
// registered.
func (m *Machine) String() string {
	cur := "(null)"
	if s := m.Current(); s != nil {
		cur = safeName(s)
	}
	return fmt.Sprintf("%s: %s", m.name, cur)
}

// Name returns the machine's display name.
func (m *Machine) Name() string { return m.name }
