package hsm

// pendingTransition records the last TransitionTo/TransitionToHaltingState
// call made during the current dispatch. "Only the last request made
// during a single dispatch takes effect" (spec.md §4.3) falls out simply
// from each call overwriting Machine.pending.
type pendingTransition struct {
	set    bool
	halt   bool
	target *stateNode
}

// takePending consumes and clears the pending transition, if any.
func (m *Machine) takePending() (pendingTransition, bool) {
	p := m.pending
	m.pending = pendingTransition{}
	return p, p.set
}

// haltReason distinguishes the two ways drive(nil) can be reached: a
// client-requested TransitionToHaltingState (spec.md §4.6: fires
// OnHalting) versus the Quit/QuitNow marker (fires OnQuitting). Both
// exit every active state leaf-to-root; only the terminal hook differs.
type haltReason int

const (
	haltNone haltReason = iota
	haltState
	haltQuit
)

// drive runs the transition controller (spec.md §4.3) from the current
// active path to target. target == nil means the halting sentinel;
// reason says which terminal hook to fire once every state has exited.
//
// The least-common-ancestor depth is computed once per call via
// lcaDepth (tree.go), which also folds in the self-transition special
// case. Exits are issued one at a time, leaf first; after each one, a
// freshly requested transition (TransitionTo called from that very Exit
// hook) short-circuits the rest of this call and restarts drive with
// the new target and the already-popped active stack — this is exactly
// spec.md §4.3 step 3 ("recompute L with the new target ... adjust the
// exit suffix accordingly"), expressed as a recursive call instead of an
// in-place re-plan. Entry does the same for hooks that call TransitionTo
// from Enter.
func (m *Machine) drive(target *stateNode, reason haltReason) {
	// m.active is only ever mutated by this (the worker) goroutine; a
	// local copy lets the loop condition below avoid reading the live
	// slice without holding statusMu.
	m.statusMu.RLock()
	curChain := append([]*stateNode(nil), m.active...)
	m.statusMu.RUnlock()

	var targetChain []*stateNode
	depth := -1
	if target != nil {
		targetChain = target.chain
		depth = lcaDepth(curChain, targetChain)
	}

	for len(curChain) > depth+1 {
		s := curChain[len(curChain)-1]
		curChain = curChain[:len(curChain)-1]
		m.statusMu.Lock()
		m.active = m.active[:len(curChain)]
		m.statusMu.Unlock()
		m.callExit(s)
		if redirect, ok := m.takePending(); ok {
			m.redrive(redirect)
			return
		}
	}

	if target == nil {
		m.finishHalt(reason)
		return
	}

	for _, s := range targetChain[depth+1:] {
		m.callEnter(s)
		if redirect, ok := m.takePending(); ok {
			m.redrive(redirect)
			return
		}
	}
}

func (m *Machine) redrive(p pendingTransition) {
	if p.halt {
		m.drive(nil, haltState)
		return
	}
	m.drive(p.target, haltNone)
}

func (m *Machine) callEnter(n *stateNode) {
	m.statusMu.Lock()
	m.active = append(m.active, n)
	m.statusMu.Unlock()
	if m.dbg.Load() {
		m.log.append(LogRec{Kind: RecEnter, Handler: safeName(n.state)})
	}
	if es, ok := n.state.(EnterState); ok {
		es.Enter(m)
	}
}

func (m *Machine) callExit(n *stateNode) {
	if m.dbg.Load() {
		m.log.append(LogRec{Kind: RecExit, Handler: safeName(n.state)})
	}
	if es, ok := n.state.(ExitState); ok {
		es.Exit(m)
	}
}

// finishHalt runs the terminal hook appropriate to reason, marks the
// machine Halted, and detaches it from its Looper.
func (m *Machine) finishHalt(reason haltReason) {
	m.setLifecycle(Halting)
	switch reason {
	case haltState:
		if m.dbg.Load() {
			m.log.append(LogRec{Kind: RecOnHalting})
		}
		m.observer.OnHalting(m)
	case haltQuit:
		if m.dbg.Load() {
			m.log.append(LogRec{Kind: RecOnQuitting})
		}
		m.observer.OnQuitting(m)
	}
	m.teardown()
}

// teardown releases a machine's resources once it is Halted: the main
// queue, the deferred queue, and its Looper attachment. Shared by the
// normal halt/quit path and the hook-panic recovery path.
func (m *Machine) teardown() {
	m.setLifecycle(Halted)
	m.queue.closeAndDrop()
	m.deferred.discard()
	if m.looper != nil {
		m.looper.detach(m)
	}
}
