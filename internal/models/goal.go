package models

import "slices"

// ClampProgress bounds a goal's progress to [0, target].
func ClampProgress(value, target float64) float64 {
	return max(0, min(value, target))
}

// WithProgress applies c.Amount to the goal, clamping the result, and
// records c as a contribution with the signed amount it was given.
func (g Goal) WithProgress(c Contribution) Goal {
	g.Current = ClampProgress(g.Current+c.Amount, g.Target)
	g.Contributions = append(cloneSlice(g.Contributions), c)
	return g
}

// WithoutContribution removes a contribution and takes its amount back off
// the progress, never going below zero.
func (g Goal) WithoutContribution(id int64) (Goal, bool) {
	idx := slices.IndexFunc(g.Contributions, func(c Contribution) bool { return c.ID == id })
	if idx < 0 {
		return g, false
	}
	g.Current = ClampProgress(g.Current-g.Contributions[idx].Amount, g.Target)
	g.Contributions = slices.Delete(cloneSlice(g.Contributions), idx, idx+1)
	return g, true
}
