package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Reference
		ok   bool
	}{
		{
			name: "plain username",
			raw:  "wallet_alice_5_5",
			want: Reference{Username: "alice", BundleID: "5", USD: 5},
			ok:   true,
		},
		{
			name: "username with underscores",
			raw:  "wallet_john_doe_42_10_10",
			want: Reference{Username: "john_doe_42", BundleID: "10", USD: 10},
			ok:   true,
		},
		{
			name: "fractional amount",
			raw:  "wallet_bob_20_20.00",
			want: Reference{Username: "bob", BundleID: "20", USD: 20},
			ok:   true,
		},
		{name: "missing prefix", raw: "order_alice_5_5"},
		{name: "too few fields", raw: "wallet_alice_5"},
		{name: "non-numeric amount", raw: "wallet_alice_5_abc"},
		{name: "zero amount", raw: "wallet_alice_5_0"},
		{name: "negative amount", raw: "wallet_alice_5_-5"},
		{name: "empty", raw: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReference(tt.raw)
			if !tt.ok {
				require.ErrorIs(t, err, ErrMalformedReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	ref := Reference{Username: "a_b_c", BundleID: "50", USD: 50}
	got, err := ParseReference(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestBundlesLookup(t *testing.T) {
	b := NewBundles(DefaultBundles())

	bundle, err := b.Get("20")
	require.NoError(t, err)
	assert.Equal(t, Bundle{USD: 20, Credits: 21}, bundle)

	bundle, err = b.Get("50")
	require.NoError(t, err)
	assert.Equal(t, 52, bundle.Credits)

	_, err = b.Get("3")
	assert.ErrorIs(t, err, ErrUnknownBundle)
}
