package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ethan/hsm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type sessionObserver struct {
	hsm.BaseMachineObserver
}

func (sessionObserver) UnhandledMessage(m *hsm.Machine, msg *hsm.Message) {
	fmt.Printf("unhandled message what=%d in %s\n", msg.What, m.Current().Name())
}

func (sessionObserver) OnHalting(m *hsm.Machine) {
	fmt.Println("session halting via TransitionToHaltingState")
}

func (sessionObserver) OnQuitting(m *hsm.Machine) {
	fmt.Println("session quitting")
}

type transitionLog struct{}

func (transitionLog) OnTransition(from, to string, msg *hsm.Message, err error) {
	if err != nil {
		fmt.Printf("  x %s -> %s (what=%d): %v\n", from, to, msg.What, err)
		return
	}
	fmt.Printf("  %s -> %s\n", from, to)
}

func newSessionMachine(logger *zap.Logger, dbg bool) (*hsm.Machine, error) {
	m := hsm.NewMachine("session", sessionObserver{}, logger, nil)
	if err := buildSessionMachine(m); err != nil {
		return nil, err
	}
	m.Subscribe(transitionLog{})
	m.SetDbg(dbg)
	return m, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	dbg, _ := cmd.Flags().GetBool("dbg")
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	m, err := newSessionMachine(logger, dbg)
	if err != nil {
		return err
	}
	if err := m.Start(); err != nil {
		return err
	}

	steps := []struct {
		what int
		wait time.Duration
	}{
		{whatStart, 10 * time.Millisecond},
		{whatSave, 10 * time.Millisecond},
		{whatReview, 5 * time.Millisecond}, // deferred: save still in flight
		{-1, 20 * time.Millisecond},        // let the delayed save-complete land and flush the deferral
		{whatResume, 10 * time.Millisecond},
		{whatPause, 10 * time.Millisecond}, // bubbles to Active, archives, halts
	}

	for _, st := range steps {
		if st.what >= 0 {
			m.Send(st.what, 0, 0, nil)
		}
		time.Sleep(st.wait)
		if m.Lifecycle() == hsm.Halted {
			break
		}
	}

	renderBanner(m)
	renderLogRing(m)
	return nil
}

func inspect(cmd *cobra.Command, args []string) error {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	m, err := newSessionMachine(logger, true)
	if err != nil {
		return err
	}
	if err := m.Start(); err != nil {
		return err
	}
	renderBanner(m)
	m.QuitNow()
	time.Sleep(10 * time.Millisecond)
	renderLogRing(m)
	return nil
}

func main() {
	root := &cobra.Command{
		Use:   "hsmdemo",
		Short: "Drives a sample hierarchical state machine end to end",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scripted session scenario and print the resulting log ring",
		RunE:  runScenario,
	}
	runCmd.Flags().Bool("dbg", false, "enable synthetic enter/exit/onHalting/onQuitting log records")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Start the machine, print its banner, then quit it immediately",
		RunE:  inspect,
	}

	root.AddCommand(runCmd, inspectCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
