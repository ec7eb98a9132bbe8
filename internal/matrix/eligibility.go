// Package matrix expands the configuration into the ordered list of
// (toolchain, feature combination) jobs.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/engine, internal/workspace, internal/cli
package matrix

import (
	"maps"
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
)

// Decision is the result of an eligibility check.
type Decision int

// Eligibility decisions.
const (
	Deny Decision = iota
	Allow
	Ambiguous
)

// String returns a lowercase name for logs.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Ambiguous:
		return "ambiguous"
	}
	return "unknown"
}

// channelTable answers channel-vs-channel checks: channelTable[version][min]
// is true when a feature requiring min may be enabled on version.
//
//nolint:gochecknoglobals // read-only rule table
var channelTable = map[string]map[string]bool{
	constants.ChannelNightly: {constants.ChannelNightly: true, constants.ChannelBeta: true, constants.ChannelStable: true},
	constants.ChannelBeta:    {constants.ChannelBeta: true, constants.ChannelStable: true},
	constants.ChannelStable:  {constants.ChannelStable: true},
}

// Policy decides whether a feature's min_rust admits a toolchain.
//
// Channel against channel uses channelTable. Numeric against numeric compares
// versions. Mixed pairs are decided only when the channel toolchain's release
// is known through Resolved; otherwise they are Ambiguous, except that nightly
// admits every numeric minimum and no numeric release satisfies a nightly minimum.
type Policy struct {
	// Resolved maps a channel toolchain as written ("stable", "beta-2020-01-01")
	// to the release it points at. Dated channels are keyed on their own.
	Resolved map[string]*semver.Version
}

// NewPolicy returns a Policy. resolved may be nil.
func NewPolicy(resolved map[string]*semver.Version) *Policy {
	if resolved == nil {
		resolved = map[string]*semver.Version{}
	}
	return &Policy{Resolved: resolved}
}

// Decide applies the rule table to a toolchain and a min_rust constraint.
func (p *Policy) Decide(version, minimum domain.VersionID) Decision {
	switch {
	case version.IsChannel() && minimum.IsChannel():
		if channelTable[version.Channel][minimum.Channel] {
			return Allow
		}
		return Deny

	case !version.IsChannel() && !minimum.IsChannel():
		return boolDecision(!version.Numeric.LessThan(minimum.Numeric))

	case version.IsChannel():
		if version.Channel == constants.ChannelNightly {
			return Allow
		}
		resolved, ok := p.Resolved[version.Raw]
		if !ok {
			return Ambiguous
		}
		return boolDecision(!resolved.LessThan(minimum.Numeric))

	default:
		if minimum.Channel == constants.ChannelNightly {
			return Deny
		}
		resolved, ok := p.Resolved[minimum.Raw]
		if !ok {
			return Ambiguous
		}
		return boolDecision(!version.Numeric.LessThan(resolved))
	}
}

// Eligible reports whether feature may be enabled on the toolchain named version.
// An Ambiguous decision is returned as an error wrapping ErrAmbiguousEligibility.
func (p *Policy) Eligible(feature domain.Feature, version string) (bool, error) {
	if !feature.HasConstraint() {
		return true, nil
	}

	v, err := domain.ParseVersionID(version)
	if err != nil {
		return false, err
	}
	minimum, err := domain.ParseVersionID(feature.MinRust)
	if err != nil {
		return false, errors.Wrapf(err, "feature %s min_rust", feature.Name)
	}

	switch p.Decide(v, minimum) {
	case Allow:
		return true, nil
	case Deny:
		return false, nil
	case Ambiguous:
		return false, errors.Wrapf(errors.ErrAmbiguousEligibility,
			"feature %s (min_rust %s) on toolchain %s", feature.Name, feature.MinRust, version)
	}
	return false, errors.Wrapf(errors.ErrAmbiguousEligibility, "feature %s", feature.Name)
}

// UnresolvedChannels returns the channel toolchains, as written ("stable",
// "beta-2020-01-01"), whose release must be known to decide every
// (version, feature) pair. The result is sorted and contains each name once.
func UnresolvedChannels(versions []domain.ToolchainVersion, features []domain.Feature) []string {
	unresolved := NewPolicy(nil)
	need := map[string]bool{}

	for _, tv := range versions {
		v, err := domain.ParseVersionID(tv.Name)
		if err != nil {
			continue
		}
		for _, f := range features {
			if !f.HasConstraint() {
				continue
			}
			minimum, err := domain.ParseVersionID(f.MinRust)
			if err != nil {
				continue
			}
			if unresolved.Decide(v, minimum) != Ambiguous {
				continue
			}
			if v.IsChannel() {
				need[v.Raw] = true
			} else {
				need[minimum.Raw] = true
			}
		}
	}

	return slices.Sorted(maps.Keys(need))
}

// boolDecision maps a comparison result to Allow or Deny.
func boolDecision(ok bool) Decision {
	if ok {
		return Allow
	}
	return Deny
}
