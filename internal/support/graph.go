// Package support implements the guided FAQ flow: a static decision tree
// walked one question at a time, ending in either a canned solution or a
// report submission.
package support

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Action tags what choosing an answer does.
type Action string

const (
	// ActionNext advances to another question node.
	ActionNext Action = "next"
	// ActionSolution terminates the walk with fixed advice text.
	ActionSolution Action = "solution"
	// ActionReport terminates the walk on the report-submission form.
	ActionReport Action = "report"
)

// Answer is one selectable option on a question node.
type Answer struct {
	Label    string `json:"label"`
	Action   Action `json:"action"`
	NextID   string `json:"next_id,omitempty"`
	Solution string `json:"solution,omitempty"`
}

// Node is a single question with 1..N answers.
type Node struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answers  []Answer `json:"answers"`
}

// Graph is the full FAQ decision tree. It is validated at load time: every
// next-target must exist and the next-edges must be acyclic, so a walk
// always terminates within the longest path.
type Graph struct {
	Root  string  `json:"root"`
	Nodes []*Node `json:"nodes"`

	byID map[string]*Node
}

// LoadGraph decodes and validates a graph from JSON.
func LoadGraph(r io.Reader) (*Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode faq graph: %w", err)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadGraphFile loads a graph from a JSON file on disk.
func LoadGraphFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open faq graph: %w", err)
	}
	defer f.Close()
	return LoadGraph(f)
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.byID[id]
}

func (g *Graph) validate() error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("faq graph has no nodes")
	}

	g.byID = make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("faq graph: node without id")
		}
		if _, dup := g.byID[n.ID]; dup {
			return fmt.Errorf("faq graph: duplicate node id %q", n.ID)
		}
		if len(n.Answers) == 0 {
			return fmt.Errorf("faq graph: node %q has no answers", n.ID)
		}
		g.byID[n.ID] = n
	}

	if g.Root == "" {
		return fmt.Errorf("faq graph: no root node configured")
	}
	if g.byID[g.Root] == nil {
		return fmt.Errorf("faq graph: root node %q does not exist", g.Root)
	}

	for _, n := range g.Nodes {
		for i, a := range n.Answers {
			switch a.Action {
			case ActionNext:
				if g.byID[a.NextID] == nil {
					return fmt.Errorf("faq graph: node %q answer %d targets unknown node %q", n.ID, i, a.NextID)
				}
			case ActionSolution:
				if a.Solution == "" {
					return fmt.Errorf("faq graph: node %q answer %d is a solution without text", n.ID, i)
				}
			case ActionReport:
				// terminal, nothing to check
			default:
				return fmt.Errorf("faq graph: node %q answer %d has unknown action %q", n.ID, i, a.Action)
			}
		}
	}

	return g.checkAcyclic()
}

// checkAcyclic runs a three-color DFS over the next-edges.
func (g *Graph) checkAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Nodes))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, a := range g.byID[id].Answers {
			if a.Action != ActionNext {
				continue
			}
			switch color[a.NextID] {
			case gray:
				return fmt.Errorf("faq graph: cycle through node %q", a.NextID)
			case white:
				if err := visit(a.NextID); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, n := range g.Nodes {
		if color[n.ID] == white {
			if err := visit(n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
