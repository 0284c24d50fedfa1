package gate

import (
	"log/slog"
	"strings"
	"time"

	gkerrors "github.com/tendant/gatekeeper/pkg/errors"
	"github.com/tendant/gatekeeper/pkg/twofa"
)

const (
	DEFAULT_ROUTE_PREFIX     = "/tfa"
	DEFAULT_SUCCESS_REDIRECT = "/"
	VERIFY_SUFFIX            = "/verify"
)

// Config holds construction-time settings for a Gate. Zero values pick the
// defaults noted on each field.
type Config struct {
	// Label is the issuer shown by authenticator apps. Optional.
	Label string
	// SecretByteLength defaults to 64.
	SecretByteLength int
	// RoutePrefix defaults to /tfa. Normalized to one leading slash and no
	// trailing slash.
	RoutePrefix string
	// SuccessRedirect defaults to /.
	SuccessRedirect string
	// FailureRedirect defaults to the challenge path.
	FailureRedirect string
	// IdentityPath is a dotted path into the authenticated user value,
	// defaults to "email".
	IdentityPath string

	Store EnrollmentStore
	Flag  SessionFlag

	// Clock defaults to time.Now.
	Clock func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// normalizePrefix trims surrounding slashes and adds back a single leading one.
func normalizePrefix(prefix string) string {
	return "/" + strings.Trim(strings.TrimSpace(prefix), "/")
}

// validate checks c and returns a copy with defaults applied.
func (c Config) validate() (Config, identityPath, error) {
	if c.Store == nil {
		return c, identityPath{}, gkerrors.Configuration("store", "an enrollment store is required")
	}
	if c.Flag == nil {
		return c, identityPath{}, gkerrors.Configuration("flag", "a session flag is required")
	}

	if c.SecretByteLength == 0 {
		c.SecretByteLength = twofa.DEFAULT_SECRET_LENGTH
	}
	if c.SecretByteLength < 0 {
		return c, identityPath{}, gkerrors.Configuration("secret byte length", "must be positive")
	}

	if c.RoutePrefix == "" {
		c.RoutePrefix = DEFAULT_ROUTE_PREFIX
	}
	c.RoutePrefix = normalizePrefix(c.RoutePrefix)
	if c.RoutePrefix == "/" {
		return c, identityPath{}, gkerrors.Configuration("route prefix", "must name a path below /")
	}
	if strings.ContainsAny(c.RoutePrefix, "?#") {
		return c, identityPath{}, gkerrors.Configuration("route prefix", "must be a plain path")
	}

	if c.SuccessRedirect == "" {
		c.SuccessRedirect = DEFAULT_SUCCESS_REDIRECT
	}
	if c.FailureRedirect == "" {
		c.FailureRedirect = c.RoutePrefix
	}

	if c.IdentityPath == "" {
		c.IdentityPath = DEFAULT_IDENTITY_PATH
	}
	idPath, err := parseIdentityPath(c.IdentityPath)
	if err != nil {
		return c, identityPath{}, gkerrors.Configuration("identity path", err.Error())
	}

	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return c, idPath, nil
}
