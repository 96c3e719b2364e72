// Package config loads and validates ingestor configuration.
//
// Configuration is YAML with ${VAR} environment expansion. Unknown keys are
// rejected. Durations are expressed in nanoseconds when set via YAML; most
// deployments rely on the documented defaults in defaults.go.
package config
