package matrix

import (
	"slices"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
)

// MaxFullModeFeatures bounds the powerset size; beyond it --simple is required.
const MaxFullModeFeatures = 20

// VersionPlan holds one toolchain and its jobs in canonical order.
type VersionPlan struct {
	Version domain.ToolchainVersion
	Jobs    []domain.Job
}

// Plan is the complete, ordered test matrix.
type Plan struct {
	Mode     constants.MatrixMode
	Versions []VersionPlan
}

// TotalJobs returns the number of jobs across all toolchains.
func (p *Plan) TotalJobs() int {
	n := 0
	for _, vp := range p.Versions {
		n += len(vp.Jobs)
	}
	return n
}

// Build computes the plan for every toolchain, in configuration order.
// The result is deterministic for a fixed input.
func Build(versions []domain.ToolchainVersion, features []domain.Feature, mode constants.MatrixMode, policy *Policy) (*Plan, error) {
	if policy == nil {
		policy = NewPolicy(nil)
	}

	plan := &Plan{Mode: mode, Versions: make([]VersionPlan, 0, len(versions))}
	for _, v := range versions {
		combos, err := Combinations(features, v.Name, mode, policy)
		if err != nil {
			return nil, err
		}

		jobs := make([]domain.Job, 0, len(combos))
		for i, c := range combos {
			jobs = append(jobs, domain.Job{Version: v.Name, Combination: c, Index: i})
		}
		plan.Versions = append(plan.Versions, VersionPlan{Version: v, Jobs: jobs})
	}
	return plan, nil
}

// Combinations returns the eligible feature combinations for one toolchain.
//
// Full mode yields the powerset of the eligible features. Simple mode yields
// the empty set, one singleton per eligible feature and the set of all eligible
// features, with duplicates removed. Ineligible features never appear; their
// singletons are dropped rather than emptied.
//
// Order is canonical: by size, then lexicographically by sorted member names.
func Combinations(features []domain.Feature, version string, mode constants.MatrixMode, policy *Policy) ([]domain.FeatureCombination, error) {
	eligible, err := eligibleNames(features, version, policy)
	if err != nil {
		return nil, err
	}

	var combos []domain.FeatureCombination
	switch mode {
	case constants.ModeFull:
		if len(eligible) > MaxFullModeFeatures {
			return nil, errors.Wrapf(errors.ErrConfigInvalid,
				"%d features on %s exceed the full-mode limit of %d, use --simple",
				len(eligible), version, MaxFullModeFeatures)
		}
		combos = powerset(eligible)
	case constants.ModeSimple:
		combos = simpleSet(eligible)
	default:
		return nil, errors.Wrapf(errors.ErrConfigInvalid, "unknown matrix mode %q", mode)
	}

	slices.SortFunc(combos, domain.FeatureCombination.Compare)
	return slices.CompactFunc(combos, domain.FeatureCombination.Equal), nil
}

// eligibleNames returns the sorted names of features eligible on version.
func eligibleNames(features []domain.Feature, version string, policy *Policy) ([]string, error) {
	if policy == nil {
		policy = NewPolicy(nil)
	}

	names := make([]string, 0, len(features))
	for _, f := range features {
		ok, err := policy.Eligible(f, version)
		if err != nil {
			return nil, errors.Join(errors.ErrConfigInvalid, err)
		}
		if ok {
			names = append(names, f.Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// powerset returns every subset of names, including the empty and full sets.
func powerset(names []string) []domain.FeatureCombination {
	n := len(names)
	out := make([]domain.FeatureCombination, 0, 1<<n)
	for mask := 0; mask < 1<<n; mask++ {
		members := make([]string, 0, n)
		for i, name := range names {
			if mask&(1<<i) != 0 {
				members = append(members, name)
			}
		}
		out = append(out, domain.NewFeatureCombination(members...))
	}
	return out
}

// simpleSet returns the empty set, every singleton and the full set.
func simpleSet(names []string) []domain.FeatureCombination {
	out := make([]domain.FeatureCombination, 0, len(names)+2)
	out = append(out, domain.NewFeatureCombination())
	for _, name := range names {
		out = append(out, domain.NewFeatureCombination(name))
	}
	return append(out, domain.NewFeatureCombination(names...))
}
