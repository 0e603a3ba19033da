package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewPiroli/NOS-MCT/internal/inventory"
)

func TestPredicateMatch(t *testing.T) {
	candidate := inventory.Candidate{
		"os":       "ios",
		"hostname": "core-sw-01.example.net",
		"location": "rack 12",
	}

	tests := []struct {
		name string
		pred inventory.Predicate
		want bool
	}{
		{
			name: "EQ hit",
			pred: inventory.Predicate{Field: "os", Qualifier: inventory.QualifierEQ, Values: []string{"ios"}},
			want: true,
		},
		{
			name: "EQ miss",
			pred: inventory.Predicate{Field: "os", Qualifier: inventory.QualifierEQ, Values: []string{"nxos"}},
			want: false,
		},
		{
			name: "LIKE matches anywhere in the field",
			pred: inventory.Predicate{Field: "hostname", Qualifier: inventory.QualifierLike, Values: []string{`core-sw`}},
			want: true,
		},
		{
			name: "ANY policy needs one hit",
			pred: inventory.Predicate{Field: "os", Qualifier: inventory.QualifierEQ, Values: []string{"nxos", "ios"}},
			want: true,
		},
		{
			name: "ALL policy needs every value",
			pred: inventory.Predicate{Field: "hostname", Qualifier: inventory.QualifierLike, Values: []string{`core`, `access`}, MatchAll: true},
			want: false,
		},
		{
			name: "ALL policy satisfied",
			pred: inventory.Predicate{Field: "hostname", Qualifier: inventory.QualifierLike, Values: []string{`core`, `sw-01`}, MatchAll: true},
			want: true,
		},
		{
			name: "unknown field never satisfies",
			pred: inventory.Predicate{Field: "serial", Qualifier: inventory.QualifierEQ, Values: []string{"ios"}},
			want: false,
		},
		{
			name: "unknown field stays unsatisfied even when inverted",
			pred: inventory.Predicate{Field: "serial", Qualifier: inventory.QualifierEQ, Values: []string{"ios"}, Inverted: true},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pred.Match(candidate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Inversion must produce the logical complement for any candidate whose
// field exists.
func TestPredicateInversionComplement(t *testing.T) {
	candidates := []inventory.Candidate{
		{"os": "ios"},
		{"os": "linux"},
		{"os": ""},
		{"os": "iosxe"},
	}
	pred := inventory.Predicate{Field: "os", Qualifier: inventory.QualifierLike, Values: []string{`ios`}}
	inverted := pred
	inverted.Inverted = true

	for _, c := range candidates {
		plain, err := pred.Match(c)
		require.NoError(t, err)
		flipped, err := inverted.Match(c)
		require.NoError(t, err)
		assert.NotEqual(t, plain, flipped, "candidate %v", c)
	}
}

func TestPredicateBadPattern(t *testing.T) {
	pred := inventory.Predicate{Field: "os", Qualifier: inventory.QualifierLike, Values: []string{`(`}}
	_, err := pred.Match(inventory.Candidate{"os": "ios"})
	assert.Error(t, err)
}

func TestFilterSetAllMustPass(t *testing.T) {
	fs := inventory.FilterSet{
		{Field: "os", Qualifier: inventory.QualifierEQ, Values: []string{"ios"}},
		{Field: "location", Qualifier: inventory.QualifierLike, Values: []string{`rack`}},
	}
	ok, err := fs.Match(inventory.Candidate{"os": "ios", "location": "rack 3"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.Match(inventory.Candidate{"os": "ios", "location": "closet"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultFilterSet(t *testing.T) {
	fs := inventory.DefaultFilterSet()

	excluded := []string{"windows", "linux", "proxmox", "vmware-esxi", "apc", "", " "}
	for _, os := range excluded {
		ok, err := fs.Match(inventory.Candidate{"os": os})
		require.NoError(t, err)
		assert.False(t, ok, "os %q should be excluded", os)
	}

	for _, os := range []string{"ios", "iosxe", "nxos"} {
		ok, err := fs.Match(inventory.Candidate{"os": os})
		require.NoError(t, err)
		assert.True(t, ok, "os %q should pass", os)
	}
}
