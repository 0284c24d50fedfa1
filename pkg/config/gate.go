package config

import (
	"github.com/tendant/gatekeeper/pkg/gate"
)

// GateConfig holds the environment-facing gate settings. Zero values fall
// back to the gate defaults.
type GateConfig struct {
	Label           string
	SecretLength    int
	RoutePrefix     string
	SuccessRedirect string
	FailureRedirect string
	IdentityPath    string
}

// NewGateConfigFromEnv loads GateConfig from environment variables.
//
// Environment variables:
//   - TFA_LABEL: issuer shown in authenticator apps (default: "")
//   - TFA_SECRET_LENGTH: secret size in random bytes (default: 64)
//   - TFA_ROUTE_PREFIX: challenge path (default: "/tfa")
//   - TFA_SUCCESS_REDIRECT: target after a verified code (default: "/")
//   - TFA_FAILURE_REDIRECT: target after a wrong code (default: the challenge path)
//   - TFA_IDENTITY_PATH: dotted path to the identity in the user value (default: "email")
func NewGateConfigFromEnv() GateConfig {
	return GateConfig{
		Label:           GetEnvOrDefault("TFA_LABEL", ""),
		SecretLength:    GetEnvInt("TFA_SECRET_LENGTH", 0),
		RoutePrefix:     GetEnvOrDefault("TFA_ROUTE_PREFIX", gate.DEFAULT_ROUTE_PREFIX),
		SuccessRedirect: GetEnvOrDefault("TFA_SUCCESS_REDIRECT", gate.DEFAULT_SUCCESS_REDIRECT),
		FailureRedirect: GetEnvOrDefault("TFA_FAILURE_REDIRECT", ""),
		IdentityPath:    GetEnvOrDefault("TFA_IDENTITY_PATH", gate.DEFAULT_IDENTITY_PATH),
	}
}

func (c GateConfig) Validate() error {
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequireNonNegative("TFA_SECRET_LENGTH", c.SecretLength),
			WhenSet(c.RoutePrefix, func() *ValidationError {
				return RequireRoutePrefix("TFA_ROUTE_PREFIX", c.RoutePrefix)
			}),
			WhenSet(c.SuccessRedirect, func() *ValidationError {
				return RequireRelativePath("TFA_SUCCESS_REDIRECT", c.SuccessRedirect)
			}),
			WhenSet(c.FailureRedirect, func() *ValidationError {
				return RequireRelativePath("TFA_FAILURE_REDIRECT", c.FailureRedirect)
			}),
		)
	})
}

// ToGateConfig builds a gate.Config around the given capabilities.
func (c GateConfig) ToGateConfig(store gate.EnrollmentStore, flag gate.SessionFlag) gate.Config {
	return gate.Config{
		Label:            c.Label,
		SecretByteLength: c.SecretLength,
		RoutePrefix:      c.RoutePrefix,
		SuccessRedirect:  c.SuccessRedirect,
		FailureRedirect:  c.FailureRedirect,
		IdentityPath:     c.IdentityPath,
		Store:            store,
		Flag:             flag,
	}
}
