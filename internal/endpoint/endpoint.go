package endpoint

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
)

// Network identifies one of the logical DAPI networks.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Devnet  Network = "devnet"
)

// Networks lists every supported network.
func Networks() []Network {
	return []Network{Mainnet, Testnet, Devnet}
}

func ParseNetwork(raw string) (Network, error) {
	switch Network(raw) {
	case Mainnet, Testnet, Devnet:
		return Network(raw), nil
	}
	return "", fmt.Errorf("unknown network %q", raw)
}

func (n Network) String() string {
	return string(n)
}

// Valid reports whether raw is an absolute http(s) URL with a host.
func Valid(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Sanitize filters a raw candidate list down to valid endpoint URLs.
// Invalid entries are dropped with a warning, never propagated.
func Sanitize(raw []string) []string {
	valid := make([]string, 0, len(raw))
	for _, candidate := range raw {
		if !Valid(candidate) {
			log.Warn().Str("endpoint", candidate).Msg("dropping invalid endpoint URL")
			continue
		}
		valid = append(valid, candidate)
	}
	return valid
}

// fallbackEndpoints is the static last-resort table. Every network must have
// at least one syntactically valid entry; the selector relies on that to
// never hand the consumer an empty list.
var fallbackEndpoints = map[Network][]string{
	Mainnet: {
		"https://seed-1.mainnet.networks.dash.org:1443",
		"https://seed-2.mainnet.networks.dash.org:1443",
		"https://seed-3.mainnet.networks.dash.org:1443",
		"https://seed-4.mainnet.networks.dash.org:1443",
		"https://seed-5.mainnet.networks.dash.org:1443",
	},
	Testnet: {
		"https://seed-1.testnet.networks.dash.org:1443",
		"https://seed-2.testnet.networks.dash.org:1443",
		"https://seed-3.testnet.networks.dash.org:1443",
	},
	Devnet: {
		"https://seed-1.devnet.networks.dash.org:1443",
	},
}

// FallbackEndpoints returns the static fallback list for a network.
// The result is a copy; callers may reorder it freely.
func FallbackEndpoints(n Network) []string {
	src := fallbackEndpoints[n]
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
