package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetwork(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Network
		wantErr bool
	}{
		{"Mainnet", "mainnet", Mainnet, false},
		{"Testnet", "testnet", Testnet, false},
		{"Devnet", "devnet", Devnet, false},
		{"Unknown", "regtest", "", true},
		{"Empty", "", "", true},
		{"CaseSensitive", "Mainnet", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNetwork(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"HTTPS", "https://seed-1.mainnet.networks.dash.org:1443", true},
		{"HTTP", "http://10.0.0.1:3000", true},
		{"NoScheme", "seed-1.mainnet.networks.dash.org", false},
		{"WrongScheme", "ftp://example.com", false},
		{"NoHost", "https://", false},
		{"Garbage", "not a url", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.raw))
		})
	}
}

func TestSanitize(t *testing.T) {
	got := Sanitize([]string{
		"https://a.test",
		"not a url",
		"https://b.test",
		"",
		"ftp://c.test",
	})
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, got)
}

// Every network must ship a non-empty, syntactically valid fallback table;
// the selector's never-empty guarantee depends on it.
func TestFallbackEndpoints(t *testing.T) {
	for _, network := range Networks() {
		t.Run(network.String(), func(t *testing.T) {
			fallback := FallbackEndpoints(network)
			require.NotEmpty(t, fallback)
			for _, ep := range fallback {
				assert.True(t, Valid(ep), "fallback endpoint %q must be a valid URL", ep)
			}
		})
	}
}

func TestFallbackEndpointsReturnsCopy(t *testing.T) {
	first := FallbackEndpoints(Mainnet)
	first[0] = "mutated"
	assert.NotEqual(t, "mutated", FallbackEndpoints(Mainnet)[0])
}
