package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// Diff pairs the verdicts of two runs by (scenario, target) and returns
// the pairs whose outcome changed, including pairs present in only one
// run. Results are ordered by scenario then target.
func (s *Store) Diff(ctx context.Context, before, after string) ([]Change, error) {
	for _, id := range []string{before, after} {
		if _, err := s.GetRun(ctx, id); err != nil {
			return nil, fmt.Errorf("diff: %w", err)
		}
	}

	a, err := s.ReadVerdicts(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	b, err := s.ReadVerdicts(ctx, after)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}

	type key struct{ scenario, target string }
	outcomes := make(map[key]*Change)
	for _, v := range a {
		outcomes[key{v.Scenario, v.Target}] = &Change{Scenario: v.Scenario, Target: v.Target, Before: v.Outcome()}
	}
	for _, v := range b {
		k := key{v.Scenario, v.Target}
		c, ok := outcomes[k]
		if !ok {
			c = &Change{Scenario: v.Scenario, Target: v.Target}
			outcomes[k] = c
		}
		c.After = v.Outcome()
	}

	changes := []Change{}
	for _, c := range outcomes {
		if c.Before != c.After {
			changes = append(changes, *c)
		}
	}
	slices.SortFunc(changes, func(x, y Change) int {
		if n := cmp.Compare(x.Scenario, y.Scenario); n != 0 {
			return n
		}
		return cmp.Compare(x.Target, y.Target)
	})
	return changes, nil
}
