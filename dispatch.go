package hsm

import (
	"time"

	"go.uber.org/zap"
)

// hasDueMessage reports whether this machine has a message ready to
// dispatch right now. Called by the Looper under no machine-specific
// lock other than the queue's own.
func (m *Machine) hasDueMessage(now time.Time) bool {
	if m.lifecycle() != Running {
		return false
	}
	m.queue.drainDue(now)
	return m.queue.hasReady()
}

// nextWakeTime reports the earliest instant a delayed message becomes
// due, if this machine has no ready message right now.
func (m *Machine) nextWakeTime() (time.Time, bool) {
	return m.queue.nextWake()
}

// dispatchOne pops and fully processes exactly one message: the per-
// iteration contract of spec.md §4.4. Called by the Looper; never
// called concurrently for the same machine.
func (m *Machine) dispatchOne() {
	now := time.Now()
	m.queue.drainDue(now)
	msg, ok := m.queue.pop()
	if !ok {
		return
	}

	defer m.recoverHookPanic(msg)

	if msg.kind == kindQuit {
		m.dispatchQuit(msg)
		return
	}

	m.currentMsg = msg
	m.inProcessMessage = false
	m.deferredThisMsg = false

	origin := m.currentLeafName()
	handler := m.route(msg)

	if handler == "" {
		m.observer.UnhandledMessage(m, msg)
	}

	var destName string
	if pending, ok := m.takePending(); ok {
		if pending.halt {
			destName = "(halt)"
		} else {
			destName = safeName(pending.target.state)
		}
		m.redrive(pending)
	}

	if m.deferredThisMsg {
		m.deferred.push(msg)
	}

	m.log.append(LogRec{
		Kind:    RecMessage,
		What:    msg.What,
		Handler: handler,
		Origin:  origin,
		Dest:    destName,
	})

	if destName != "" {
		m.notify(origin, destName, msg, nil)
		m.flushDeferredIfAny(now)
	} else if handler == "" {
		m.notify(origin, origin, msg, nil)
	}

	m.currentMsg = nil
}

// route bubbles msg from the active leaf toward the root, offering it to
// each state's ProcessMessage until one returns true (spec.md §4.4 steps
// 2–4). Returns the handler's name, or "" if nothing handled it.
func (m *Machine) route(msg *Message) string {
	m.statusMu.RLock()
	chain := append([]*stateNode(nil), m.active...)
	m.statusMu.RUnlock()

	for i := len(chain) - 1; i >= 0; i-- {
		ms, ok := chain[i].state.(MessageState)
		if !ok {
			continue
		}
		m.inProcessMessage = true
		handled := ms.ProcessMessage(m, msg)
		m.inProcessMessage = false
		if handled {
			return safeName(chain[i].state)
		}
	}
	return ""
}

func (m *Machine) currentLeafName() string {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	if len(m.active) == 0 {
		return "(null)"
	}
	return safeName(m.active[len(m.active)-1].state)
}

// flushDeferredIfAny moves every parked message to the head of the main
// queue, in arrival order, immediately after a transition completes
// (spec.md §4.5).
func (m *Machine) flushDeferredIfAny(now time.Time) {
	msgs := m.deferred.flush()
	if len(msgs) == 0 {
		return
	}
	m.queue.sendManyAtFront(msgs, now)
}

// dispatchQuit runs the quit lifecycle: exit every active state
// leaf-to-root, invoke OnQuitting (never OnHalting), and detach from the
// Looper (spec.md §4.6).
func (m *Machine) dispatchQuit(marker *Message) {
	m.currentMsg = marker
	m.logger.Debug("quitting", zap.String("machine", m.name))
	m.drive(nil, haltQuit)
	m.currentMsg = nil
}

func (m *Machine) recoverHookPanic(msg *Message) {
	r := recover()
	if r == nil {
		return
	}
	hp := newHookPanic(r)
	m.lastErr = hp
	m.logger.Error("hook panic", zap.Error(hp), zap.Int("what", msg.What))
	m.log.append(LogRec{Kind: RecMessage, What: msg.What, Handler: "(panic)"})
	m.teardown()
	m.currentMsg = nil
}
