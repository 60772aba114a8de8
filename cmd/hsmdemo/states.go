package main

import (
	"fmt"
	"time"

	"github.com/ethan/hsm"
)

// The demo machine models a recording session: Idle, a composite
// Active state with Editing/Reviewing children, and a halting Archived
// leaf. It exercises hierarchical message bubbling (Reviewing falls
// back to Active's handler for "pause"), deferral (Editing parks a
// "review" request while a save is in flight), and a delayed message
// (save completion).

const (
	whatStart = iota
	whatReview
	whatPause
	whatResume
	whatSave
	whatSaveComplete
	whatArchive
)

// Package-level handles so each state's ProcessMessage can request a
// transition to a sibling constructed later in main. Go resolves these
// at call time, not declaration order, so this wiring is safe.
var (
	idleNode      *idleState
	activeNode    *activeState
	editingNode   *editingState
	reviewingNode *reviewingState
	archivedNode  *archivedState
)

type idleState struct{ hsm.BaseState }

func newIdleState() *idleState { return &idleState{hsm.NewBaseState("Idle")} }

func (s *idleState) Enter(m *hsm.Machine) { fmt.Println("enter Idle") }

func (s *idleState) ProcessMessage(m *hsm.Machine, msg *hsm.Message) bool {
	if msg.What != whatStart {
		return false
	}
	m.TransitionTo(editingNode)
	return true
}

type activeState struct{ hsm.BaseState }

func newActiveState() *activeState { return &activeState{hsm.NewBaseState("Active")} }

func (s *activeState) Enter(m *hsm.Machine) { fmt.Println("enter Active") }
func (s *activeState) Exit(m *hsm.Machine)  { fmt.Println("exit Active") }

// ProcessMessage only runs once neither child claims the message first
// (spec.md §4.4's leaf-to-root bubbling).
func (s *activeState) ProcessMessage(m *hsm.Machine, msg *hsm.Message) bool {
	switch msg.What {
	case whatPause:
		fmt.Println("Active: no child handled pause, archiving the session")
		m.TransitionTo(archivedNode)
		return true
	case whatArchive:
		m.TransitionTo(archivedNode)
		return true
	}
	return false
}

type editingState struct {
	hsm.BaseState
	saving bool
}

func newEditingState() *editingState { return &editingState{BaseState: hsm.NewBaseState("Editing")} }

func (s *editingState) Enter(m *hsm.Machine) {
	fmt.Println("enter Editing")
	s.saving = false
}

func (s *editingState) ProcessMessage(m *hsm.Machine, msg *hsm.Message) bool {
	switch msg.What {
	case whatReview:
		if s.saving {
			fmt.Println("Editing: save in flight, deferring the review request")
			m.DeferMessage()
			return true
		}
		m.TransitionTo(reviewingNode)
		return true
	case whatSave:
		fmt.Println("Editing: save started")
		s.saving = true
		m.SendDelayed(whatSaveComplete, 0, 0, nil, 20*time.Millisecond)
		return true
	case whatSaveComplete:
		fmt.Println("Editing: save complete, deferred messages (if any) replay now")
		s.saving = false
		// Deferred messages are only flushed after a transition, so
		// re-enter Editing to release them.
		m.TransitionTo(s)
		return true
	}
	return false
}

type reviewingState struct{ hsm.BaseState }

func newReviewingState() *reviewingState {
	return &reviewingState{hsm.NewBaseState("Reviewing")}
}

func (s *reviewingState) Enter(m *hsm.Machine) { fmt.Println("enter Reviewing") }

func (s *reviewingState) ProcessMessage(m *hsm.Machine, msg *hsm.Message) bool {
	if msg.What == whatResume {
		m.TransitionTo(editingNode)
		return true
	}
	// whatPause is deliberately left unhandled so it bubbles to Active.
	return false
}

type archivedState struct{ hsm.BaseState }

func newArchivedState() *archivedState {
	return &archivedState{hsm.NewBaseState("Archived")}
}

func (s *archivedState) Enter(m *hsm.Machine) {
	fmt.Println("enter Archived, requesting an orderly halt")
	m.TransitionToHaltingState()
}

// buildSessionMachine wires the hierarchy described above onto m:
//
//	Idle
//	Active
//	  Editing
//	  Reviewing
//	Archived
func buildSessionMachine(m *hsm.Machine) error {
	idleNode = newIdleState()
	activeNode = newActiveState()
	editingNode = newEditingState()
	reviewingNode = newReviewingState()
	archivedNode = newArchivedState()

	if err := m.AddState(idleNode, nil); err != nil {
		return err
	}
	if err := m.AddState(activeNode, nil); err != nil {
		return err
	}
	if err := m.AddState(editingNode, activeNode); err != nil {
		return err
	}
	if err := m.AddState(reviewingNode, activeNode); err != nil {
		return err
	}
	if err := m.AddState(archivedNode, nil); err != nil {
		return err
	}
	return m.SetInitialState(idleNode)
}
