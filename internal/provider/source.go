package provider

import "dapigate/internal/endpoint"

type SourceKind int

const (
	SourceRemote SourceKind = iota
	SourceLocalResource
	SourceEnvironment
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemote:
		return "remote"
	case SourceLocalResource:
		return "resource"
	case SourceEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// ConfigurationSource says where a network's candidate endpoints come from.
// Immutable once a Provider is constructed.
type ConfigurationSource struct {
	Kind  SourceKind
	Value string
}

// RemoteSource fetches candidates from a JSON document at url.
func RemoteSource(url string) ConfigurationSource {
	return ConfigurationSource{Kind: SourceRemote, Value: url}
}

// LocalResourceSource reads candidates from a bundled resource by name.
func LocalResourceSource(name string) ConfigurationSource {
	return ConfigurationSource{Kind: SourceLocalResource, Value: name}
}

// EnvironmentSource reads a comma-separated candidate list from a process
// environment variable.
func EnvironmentSource(name string) ConfigurationSource {
	return ConfigurationSource{Kind: SourceEnvironment, Value: name}
}

// DefaultDevnetEnvVar is the environment variable consulted for devnet
// candidates when no explicit source is configured.
const DefaultDevnetEnvVar = "DAPI_DEVNET_ENDPOINTS"

// DefaultSource returns the configuration source used for a network when
// none is configured explicitly.
func DefaultSource(n endpoint.Network) ConfigurationSource {
	switch n {
	case endpoint.Devnet:
		return EnvironmentSource(DefaultDevnetEnvVar)
	default:
		return LocalResourceSource("endpoints-" + n.String())
	}
}
