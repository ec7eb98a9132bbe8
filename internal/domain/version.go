package domain

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/errors"
)

// VersionID is a parsed toolchain identifier. Exactly one of Channel and
// Numeric is set.
type VersionID struct {
	// Raw is the identifier as written in the configuration.
	Raw string

	// Channel is "nightly", "beta" or "stable" for channel identifiers,
	// including date or host suffixed ones such as "nightly-2020-01-01".
	Channel string

	// Numeric is set for explicit release versions such as "1.29.0".
	Numeric *semver.Version
}

// IsChannel reports whether the identifier names a release channel.
func (v VersionID) IsChannel() bool {
	return v.Channel != ""
}

// String returns the raw identifier.
func (v VersionID) String() string {
	return v.Raw
}

// channels lists the known channels in ascending order of freshness.
//
//nolint:gochecknoglobals // read-only lookup table
var channels = []string{constants.ChannelStable, constants.ChannelBeta, constants.ChannelNightly}

// ParseVersionID parses a toolchain identifier as used in `rust[].name`,
// `features[].min_rust` and `fuzzing.rust`.
func ParseVersionID(raw string) (VersionID, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return VersionID{}, fmt.Errorf("toolchain name %w", errors.ErrEmptyValue)
	}

	for _, ch := range channels {
		if name == ch || strings.HasPrefix(name, ch+"-") {
			return VersionID{Raw: name, Channel: ch}, nil
		}
	}

	v, err := semver.NewVersion(stripHostTriple(name))
	if err != nil {
		return VersionID{}, errors.Wrapf(errors.ErrInvalidVersion, "%q", raw)
	}
	return VersionID{Raw: name, Numeric: v}, nil
}

// stripHostTriple drops a trailing host triple from a numeric toolchain name,
// so "1.29.0-x86_64-unknown-linux-gnu" compares as 1.29.0. Rust releases
// carry no pre-release part; a triple always holds at least two dashes.
func stripHostTriple(name string) string {
	release, host, found := strings.Cut(name, "-")
	if !found || !strings.Contains(host, "-") {
		return name
	}
	return release
}
