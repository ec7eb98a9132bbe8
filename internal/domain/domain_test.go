package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgeisler/testinator/internal/constants"
	terrors "github.com/sgeisler/testinator/internal/errors"
)

func TestFeatureCombination_SortsAndDedupes(t *testing.T) {
	c := NewFeatureCombination("unstable", "rand", "rand")

	assert.Equal(t, []string{"rand", "unstable"}, c.Members())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "rand,unstable", c.Flag())
	assert.Equal(t, "[rand,unstable]", c.String())
	assert.True(t, c.Contains("rand"))
	assert.False(t, c.Contains("serde"))
}

func TestFeatureCombination_Empty(t *testing.T) {
	c := NewFeatureCombination()

	assert.True(t, c.IsEmpty())
	assert.Empty(t, c.Flag())
	assert.Equal(t, "[]", c.String())
	assert.True(t, c.Equal(FeatureCombination{}))
}

func TestFeatureCombination_MembersIsCopy(t *testing.T) {
	c := NewFeatureCombination("a", "b")
	m := c.Members()
	m[0] = "z"

	assert.Equal(t, []string{"a", "b"}, c.Members())
}

func TestFeatureCombination_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b FeatureCombination
		want int
	}{
		{"empty before singleton", NewFeatureCombination(), NewFeatureCombination("a"), -1},
		{"size wins over names", NewFeatureCombination("z"), NewFeatureCombination("a", "b"), -1},
		{"lexicographic within size", NewFeatureCombination("a", "c"), NewFeatureCombination("a", "b"), 1},
		{"equal", NewFeatureCombination("b", "a"), NewFeatureCombination("a", "b"), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Compare(tc.b))
		})
	}
}

func TestJobOutcome_Variants(t *testing.T) {
	ok := Success(time.Second)
	assert.True(t, ok.IsSuccess())
	assert.Equal(t, constants.OutcomeSuccess, ok.Kind)

	failed := Failure(101, "out", "err", 2*time.Second)
	assert.False(t, failed.IsSuccess())
	assert.Equal(t, 101, failed.ExitCode)
	assert.Equal(t, "out", failed.Stdout)
	assert.Equal(t, "err", failed.Stderr)

	setup := SetupFailed("copy failed")
	assert.False(t, setup.IsSuccess())
	assert.Equal(t, constants.OutcomeSetupFailed, setup.Kind)
	assert.Equal(t, "copy failed", setup.Reason)
}

func TestFuzzOutcome_Variants(t *testing.T) {
	assert.True(t, FuzzSuccess(time.Minute).IsSuccess())

	crash := FuzzCrash(1, "SIGSEGV", time.Second)
	assert.False(t, crash.IsSuccess())
	assert.Equal(t, constants.OutcomeCrash, crash.Kind)

	assert.Equal(t, constants.OutcomeSetupFailed, FuzzSetupFailed("no targets").Kind)
}

func TestJob_JSONUsesFeatureString(t *testing.T) {
	job := Job{Version: "stable", Combination: NewFeatureCombination("rand"), Index: 1}

	data, err := json.Marshal(job)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"stable","features":"[rand]","index":1}`, string(data))
}

func TestParseVersionID(t *testing.T) {
	tests := []struct {
		raw     string
		channel string
		numeric string
		wantErr error
	}{
		{raw: "nightly", channel: "nightly"},
		{raw: "nightly-2020-01-01", channel: "nightly"},
		{raw: "beta", channel: "beta"},
		{raw: "stable", channel: "stable"},
		{raw: "stable-x86_64-unknown-linux-gnu", channel: "stable"},
		{raw: "1.29.0", numeric: "1.29.0"},
		{raw: "1.41", numeric: "1.41.0"},
		{raw: "1.29.0-x86_64-unknown-linux-gnu", numeric: "1.29.0"},
		{raw: "1.41-aarch64-apple-darwin", numeric: "1.41.0"},
		{raw: "", wantErr: terrors.ErrEmptyValue},
		{raw: "nightlyish", wantErr: terrors.ErrInvalidVersion},
		{raw: "latest", wantErr: terrors.ErrInvalidVersion},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			id, err := ParseVersionID(tc.raw)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.raw, id.String())
			assert.Equal(t, tc.channel, id.Channel)
			assert.Equal(t, tc.channel != "", id.IsChannel())
			if tc.numeric != "" {
				require.NotNil(t, id.Numeric)
				assert.Equal(t, tc.numeric, id.Numeric.String())
			}
		})
	}
}
