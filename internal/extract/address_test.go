package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Address
		ok   bool
	}{
		{
			name: "double space separated",
			body: "4943 SE 10th Place\nKeystone Heights  FL  32656",
			want: Address{Street: "4943 SE 10th Place", City: "Keystone Heights", State: "FL", Zip: "32656"},
			ok:   true,
		},
		{
			name: "comma separated",
			body: "Ship to:\n210 Oak Ave\nGainesville, FL 32601\nPhone: 352-473-1234",
			want: Address{Street: "210 Oak Ave", City: "Gainesville", State: "FL", Zip: "32601"},
			ok:   true,
		},
		{
			name: "single space separated",
			body: "88 Palm Way\nStarke FL 32091",
			want: Address{Street: "88 Palm Way", City: "Starke", State: "FL", Zip: "32091"},
			ok:   true,
		},
		{
			name: "zip plus four",
			body: "4943 SE 10th Place\nKeystone Heights, FL 32656-1001",
			want: Address{Street: "4943 SE 10th Place", City: "Keystone Heights", State: "FL", Zip: "32656-1001"},
			ok:   true,
		},
		{
			name: "no address",
			body: "Name: Jane Smith\nTotal: $450.00",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAddress(tt.body)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// A city candidate containing a field-label word must be rejected so the
// cascade can fall through to the real address line.
func TestParseAddressBlocklist(t *testing.T) {
	body := "Order Total  OH  44236\n4943 SE 10th Place\nKeystone Heights  FL  32656"
	got, ok := ParseAddress(body)
	require.True(t, ok)
	assert.Equal(t, "Keystone Heights", got.City)
	assert.Equal(t, "FL", got.State)
}

func TestStreetLineSkipsPhoneAndCurrency(t *testing.T) {
	body := "352-473-1234\n$4,943.50\n4943 SE 10th Place\nKeystone Heights  FL  32656"
	got, ok := ParseAddress(body)
	require.True(t, ok)
	assert.Equal(t, "4943 SE 10th Place", got.Street)
}

func TestStreetSuffixFallback(t *testing.T) {
	body := "deliver to Oakwood Drive 12 (rear entrance)\nKeystone Heights  FL  32656"
	got, ok := ParseAddress(body)
	require.True(t, ok)
	assert.Equal(t, "deliver to Oakwood Drive 12 (rear entrance)", got.Street)
}
