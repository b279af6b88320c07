// Package plan implements the dependency analyzer and wave planner,
// grounded in mbflow's ExecutionPlanner
// (internal/application/executor/planner.go), generalized from its
// edge-condition-driven readiness check to this package's
// input-plus-scanned-template dependency map and Kahn's-algorithm wave
// partition.
package plan

import (
	"sort"
	"strings"

	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/expr"

	"github.com/wfcore/wfcore/internal/domain"
)

// separators precede a template reference to a node ID for the
// conservative pattern match: "( X.", ", X.", "! X.", " X."
var separators = []string{"(", ",", "!", " "}

// AnalyzeDeps builds the reverse-dependency map: for every node, the set
// of node IDs it depends on, seeded by explicit `input` references and
// widened by a conservative scan of every templated config string. The
// scan is intentionally string-pattern-based — it may over-approximate
// but must never miss an explicit reference.
func AnalyzeDeps(nodes []*domain.Node) map[string]map[string]bool {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}

	deps := make(map[string]map[string]bool, len(nodes))
	for _, n := range nodes {
		set := map[string]bool{}
		if n.Input != "" && n.Input != n.ID {
			set[n.Input] = true
		}
		if n.Config != nil {
			scanValue(n.Config, n.ID, ids, set)
		}
		deps[n.ID] = set
	}
	return deps
}

func scanValue(v any, selfID string, ids map[string]bool, out map[string]bool) {
	switch x := v.(type) {
	case string:
		scanString(x, selfID, ids, out)
	case map[string]any:
		for _, val := range x {
			scanValue(val, selfID, ids, out)
		}
	case []any:
		for _, val := range x {
			scanValue(val, selfID, ids, out)
		}
	}
}

func scanString(s, selfID string, ids map[string]bool, out map[string]bool) {
	if !strings.Contains(s, "{{") {
		return
	}
	for _, seg := range expr.Segment(s) {
		if seg.Kind != expr.SegmentExpression {
			continue
		}
		referenceCandidates(seg.Value, selfID, ids, out)
	}
}

func referenceCandidates(exprSrc, selfID string, ids map[string]bool, out map[string]bool) {
	trimmed := strings.TrimSpace(exprSrc)
	for id := range ids {
		if id == selfID {
			continue
		}
		if trimmed == id || strings.HasPrefix(trimmed, id+".") {
			out[id] = true
			continue
		}
		for _, sep := range separators {
			if strings.Contains(exprSrc, sep+id+".") {
				out[id] = true
				break
			}
		}
	}
}

// ownedNodeIDs collects every node ID referenced exclusively from a control
// node's body/branches/children/cases — nodes a control-flow handler looks
// up and runs directly, by ID, rather than the wave planner scheduling them
// unconditionally. Without this exclusion a loop body would run once as an
// ordinary top-level node *and* once per iteration.
func ownedNodeIDs(nodes []*domain.Node) map[string]bool {
	owned := map[string]bool{}
	for _, n := range nodes {
		switch n.Kind {
		case domain.KindParallel:
			for _, branch := range n.Branches {
				for _, id := range branch {
					owned[id] = true
				}
			}
		case domain.KindForeach, domain.KindLoop:
			for _, id := range n.Body {
				owned[id] = true
			}
		case domain.KindTimeout:
			for _, id := range n.Children {
				owned[id] = true
			}
		case domain.KindBranch:
			for _, c := range n.Cases {
				for _, id := range c.NodeIDs {
					owned[id] = true
				}
			}
			for _, id := range n.Else {
				owned[id] = true
			}
		}
	}
	return owned
}

// BuildPlan runs the dependency analyzer then Kahn's algorithm wave
// planner over the resulting map, assembling the final ExecutionPlan.
// Nodes owned by a control-flow node (see ownedNodeIDs) are kept in the
// plan's lookup table but excluded from wave scheduling.
func BuildPlan(workflowID string, nodes []*domain.Node) (*domain.ExecutionPlan, error) {
	owned := ownedNodeIDs(nodes)

	nodeTable := make(map[string]*domain.Node, len(nodes))
	scheduled := make([]*domain.Node, 0, len(nodes))
	for _, n := range nodes {
		nodeTable[n.ID] = n
		if !owned[n.ID] {
			scheduled = append(scheduled, n)
		}
	}

	deps := AnalyzeDeps(scheduled)
	waveIDs, err := Waves(deps)
	if err != nil {
		return nil, err
	}

	waves := make([]domain.Wave, len(waveIDs))
	for i, ids := range waveIDs {
		waves[i] = domain.Wave{WaveNumber: i, NodeIDs: ids}
	}

	return &domain.ExecutionPlan{
		WorkflowID: workflowID,
		TotalNodes: len(nodes),
		Waves:      waves,
		Nodes:      nodeTable,
	}, nil
}

// Waves runs Kahn's algorithm over a dependency map, producing an ordered
// list of waves (each a deterministically sorted slice of node IDs — wave
// membership has no meaningful order, but determinism makes
// output comparisons and tests reproducible). Fails with a cycle error
// naming the residual node IDs when a round yields no ready nodes while
// nodes remain — a defensive post-condition since upstream validators are
// expected to reject cyclic graphs before the core ever sees them.
func Waves(deps map[string]map[string]bool) ([][]string, error) {
	remaining := make(map[string]map[string]bool, len(deps))
	for id, d := range deps {
		cp := make(map[string]bool, len(d))
		for dep := range d {
			cp[dep] = true
		}
		remaining[id] = cp
	}

	done := map[string]bool{}
	var waves [][]string

	for len(remaining) > 0 {
		var ready []string
		for id, d := range remaining {
			allMet := true
			for dep := range d {
				if !done[dep] {
					allMet = false
					break
				}
			}
			if allMet {
				ready = append(ready, id)
			}
		}

		if len(ready) == 0 {
			residual := make([]string, 0, len(remaining))
			for id := range remaining {
				residual = append(residual, id)
			}
			sort.Strings(residual)
			return nil, domainerrors.NewCycle(residual)
		}

		sort.Strings(ready)
		waves = append(waves, ready)
		for _, id := range ready {
			done[id] = true
			delete(remaining, id)
		}
	}

	return waves, nil
}
