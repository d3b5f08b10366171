package support

import (
	"context"
	"errors"
	"fmt"
)

// Step is where the walker currently stands.
type Step string

const (
	// StepQuestion shows the current node's question and answers.
	StepQuestion Step = "question"
	// StepSatisfaction shows a solution plus the yes/no satisfaction check.
	StepSatisfaction Step = "satisfaction"
	// StepReport shows the report-submission form.
	StepReport Step = "report"
	// StepDone ends the flow.
	StepDone Step = "done"
)

var (
	// ErrNoHistory is returned by Back on the root node.
	ErrNoHistory = errors.New("nothing to go back to")
	// ErrWrongStep is returned when an operation does not match the current
	// step, e.g. answering while on the report form.
	ErrWrongStep = errors.New("operation not valid in current step")
)

// ReportSubmitter posts the report a walk ends in. The client package
// provides the remote implementation.
type ReportSubmitter interface {
	SubmitReport(ctx context.Context, openReason, description, orderID string) error
}

// Walker is one user's walk through the FAQ graph. It keeps a visited-node
// history stack for single-step backtracking. Walkers are not safe for
// concurrent use; each session owns one.
type Walker struct {
	graph    *Graph
	current  *Node
	history  []*Node
	step     Step
	solution string
}

// NewWalker starts a walk at the graph's root.
func NewWalker(g *Graph) *Walker {
	return &Walker{
		graph:   g,
		current: g.Node(g.Root),
		step:    StepQuestion,
	}
}

// Step reports the current position in the flow.
func (w *Walker) Step() Step { return w.step }

// Question returns the current node's question text.
func (w *Walker) Question() string {
	if w.current == nil {
		return ""
	}
	return w.current.Question
}

// Answers returns the current node's answers.
func (w *Walker) Answers() []Answer {
	if w.current == nil {
		return nil
	}
	return w.current.Answers
}

// Solution returns the advice text once a solution terminal was reached.
func (w *Walker) Solution() string { return w.solution }

// Answer selects answer i on the current question. Depending on the
// answer's action the walk advances to the next question, shows a solution
// with the satisfaction check, or lands on the report form.
func (w *Walker) Answer(i int) error {
	if w.step != StepQuestion {
		return fmt.Errorf("answer while on %s: %w", w.step, ErrWrongStep)
	}
	if i < 0 || i >= len(w.current.Answers) {
		return fmt.Errorf("answer index %d out of range for node %q", i, w.current.ID)
	}

	a := w.current.Answers[i]
	switch a.Action {
	case ActionNext:
		w.history = append(w.history, w.current)
		w.current = w.graph.Node(a.NextID)
	case ActionSolution:
		w.solution = a.Solution
		w.step = StepSatisfaction
	case ActionReport:
		w.step = StepReport
	}
	return nil
}

// Back returns exactly to the previously visited question, popping one
// entry from the history stack. A finished flow cannot be reopened.
func (w *Walker) Back() error {
	switch w.step {
	case StepDone:
		return fmt.Errorf("back after the flow ended: %w", ErrWrongStep)
	case StepSatisfaction, StepReport:
		// Re-open the question that led to the terminal.
		w.step = StepQuestion
		w.solution = ""
		return nil
	}
	if len(w.history) == 0 {
		return ErrNoHistory
	}
	w.current = w.history[len(w.history)-1]
	w.history = w.history[:len(w.history)-1]
	return nil
}

// Satisfied answers the yes/no check after a solution. "Yes" ends the flow;
// "no" re-enters at the report form.
func (w *Walker) Satisfied(yes bool) error {
	if w.step != StepSatisfaction {
		return fmt.Errorf("satisfaction answer while on %s: %w", w.step, ErrWrongStep)
	}
	if yes {
		w.step = StepDone
	} else {
		w.step = StepReport
	}
	return nil
}

// SubmitReport posts the report and ends the flow. On failure the walker
// stays on the report form so the user can retry.
func (w *Walker) SubmitReport(ctx context.Context, submitter ReportSubmitter, openReason, description, orderID string) error {
	if w.step != StepReport {
		return fmt.Errorf("report submission while on %s: %w", w.step, ErrWrongStep)
	}
	if err := submitter.SubmitReport(ctx, openReason, description, orderID); err != nil {
		return fmt.Errorf("failed to submit report: %w", err)
	}
	w.step = StepDone
	return nil
}
