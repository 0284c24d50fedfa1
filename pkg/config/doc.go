// Package config loads gatekeeper settings from the environment.
//
// Environment variable helpers convert and default values:
//
//	prefix := config.GetEnvOrDefault("TFA_ROUTE_PREFIX", "/tfa")
//	length := config.GetEnvInt("TFA_SECRET_LENGTH", 64)
//	ttl := config.GetEnvDuration("TFA_SESSION_FLAG_TTL", 0)
//
// Invalid numbers and durations fall back to the default rather than failing,
// so call Validate on the assembled config:
//
//	gateCfg := config.NewGateConfigFromEnv()
//	storageCfg := config.NewStorageConfigFromEnv()
//	if err := gateCfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//	if err := storageCfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Validation failures come back as ValidationErrors, one entry per field:
//
//	configuration validation failed:
//	  - TFA_PERSISTENCE: must be one of [memory file postgres redis], got "mongo"
//	  - TFA_SESSION_FLAG_TTL: must be non-negative, got -1m0s
package config
