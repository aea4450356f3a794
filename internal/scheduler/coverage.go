// File path: internal/scheduler/coverage.go
package scheduler

import (
	"github.com/Nireus79/Socrates2-sub000/internal/spec"
)

// Coverage computes the per-category coverage percentage for the given
// current-specification counts: min(count/target, 1) * 100. Every category in
// the fixed enumeration appears in the result, including untouched ones.
func Coverage(counts map[spec.Category]int) map[spec.Category]float64 {
	targets := spec.CoverageTargets()
	coverage := make(map[spec.Category]float64, len(targets))
	for _, category := range spec.Categories() {
		target := targets[category]
		if target <= 0 {
			coverage[category] = 100
			continue
		}
		ratio := float64(counts[category]) / float64(target)
		if ratio > 1 {
			ratio = 1
		}
		coverage[category] = ratio * 100
	}
	return coverage
}

// NextCategory returns the category most in need of attention: the one with
// the lowest coverage. Ties break in favour of the earlier category in the
// canonical enumeration order, never in map iteration order.
func NextCategory(counts map[spec.Category]int) spec.Category {
	coverage := Coverage(counts)
	categories := spec.Categories()
	best := categories[0]
	bestValue := coverage[best]
	for _, category := range categories[1:] {
		if coverage[category] < bestValue {
			best = category
			bestValue = coverage[category]
		}
	}
	return best
}

// MaturityScore condenses coverage into the 0-100 project maturity indicator:
// the mean coverage across every category, truncated to an integer.
func MaturityScore(counts map[spec.Category]int) int {
	coverage := Coverage(counts)
	if len(coverage) == 0 {
		return 0
	}
	var total float64
	for _, value := range coverage {
		total += value
	}
	return int(total / float64(len(coverage)))
}
