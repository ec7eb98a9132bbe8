package domain

import (
	"slices"
	"strings"
)

// FeatureCombination is a set of feature names, stored sorted so two
// combinations with the same members are equal element-wise.
type FeatureCombination struct {
	members []string
}

// NewFeatureCombination builds a combination from names, sorting and
// de-duplicating them.
func NewFeatureCombination(names ...string) FeatureCombination {
	members := slices.Clone(names)
	slices.Sort(members)
	return FeatureCombination{members: slices.Compact(members)}
}

// Members returns a copy of the sorted member names.
func (c FeatureCombination) Members() []string {
	return slices.Clone(c.members)
}

// Len returns the number of features in the combination.
func (c FeatureCombination) Len() int {
	return len(c.members)
}

// IsEmpty reports whether no feature is enabled.
func (c FeatureCombination) IsEmpty() bool {
	return len(c.members) == 0
}

// Contains reports whether name is a member.
func (c FeatureCombination) Contains(name string) bool {
	_, found := slices.BinarySearch(c.members, name)
	return found
}

// Flag returns the comma separated value for cargo's --features flag.
func (c FeatureCombination) Flag() string {
	return strings.Join(c.members, ",")
}

// Key identifies the combination; equal member sets yield equal keys.
func (c FeatureCombination) Key() string {
	return c.Flag()
}

// String renders the combination for logs, e.g. "[rand,unstable]".
func (c FeatureCombination) String() string {
	return "[" + c.Flag() + "]"
}

// Equal reports whether both combinations hold the same members.
func (c FeatureCombination) Equal(other FeatureCombination) bool {
	return slices.Equal(c.members, other.members)
}

// Compare orders combinations canonically: by size, then lexicographically
// by sorted member names. It returns -1, 0 or +1.
func (c FeatureCombination) Compare(other FeatureCombination) int {
	if len(c.members) != len(other.members) {
		if len(c.members) < len(other.members) {
			return -1
		}
		return 1
	}
	return slices.Compare(c.members, other.members)
}

// MarshalText implements encoding.TextMarshaler so combinations serialize as
// their flag value in JSON and YAML.
func (c FeatureCombination) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
