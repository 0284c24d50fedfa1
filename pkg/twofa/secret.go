package twofa

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	gkerrors "github.com/tendant/gatekeeper/pkg/errors"
)

const (
	DEFAULT_SECRET_LENGTH = 64
	PERIOD                = 30
	SKEW                  = 10
)

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

var validateOpts = totp.ValidateOpts{
	Period:    PERIOD,
	Skew:      SKEW,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// TwoFactorSecret holds one TOTP shared secret. Values are immutable; a new
// secret always means a new TwoFactorSecret.
type TwoFactorSecret struct {
	label string
	raw   string
}

// GenerateOpts controls secret generation.
type GenerateOpts struct {
	// Label is the issuer shown by authenticator apps, optional.
	Label string
	// ByteLength is the number of random bytes, defaults to 64.
	ByteLength int
	// Rand defaults to crypto/rand.Reader.
	Rand io.Reader
}

// Generate creates a new secret from ByteLength bytes of randomness,
// Base32 encoded without padding.
func Generate(opts GenerateOpts) (*TwoFactorSecret, error) {
	length := opts.ByteLength
	if length == 0 {
		length = DEFAULT_SECRET_LENGTH
	}
	if length < 0 {
		return nil, gkerrors.Newf(gkerrors.ErrCodeConfiguration, "secret length must be positive, got %d", length)
	}

	reader := opts.Rand
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(reader, buf); err != nil {
		slog.Error("Failed to read random bytes for totp secret", "length", length, "error", err)
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	return &TwoFactorSecret{
		label: opts.Label,
		raw:   secretEncoding.EncodeToString(buf),
	}, nil
}

// FromStored rehydrates a secret persisted earlier via Raw.
func FromStored(label, raw string) (*TwoFactorSecret, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, gkerrors.New(gkerrors.ErrCodeInvalidSecret, "stored secret is empty")
	}
	if _, err := decodeSecret(trimmed); err != nil {
		return nil, gkerrors.Wrap(err, gkerrors.ErrCodeInvalidSecret, "stored secret is not valid base32")
	}
	return &TwoFactorSecret{label: label, raw: trimmed}, nil
}

// decodeSecret accepts lower case and missing padding, like authenticator apps do.
func decodeSecret(raw string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimRight(raw, "="))
	return secretEncoding.DecodeString(s)
}

// Raw returns the Base32 secret suitable for persistence.
func (s *TwoFactorSecret) Raw() string {
	return s.raw
}

// Bytes returns the decoded HMAC key.
func (s *TwoFactorSecret) Bytes() []byte {
	b, _ := decodeSecret(s.raw)
	return b
}

func (s *TwoFactorSecret) Label() string {
	return s.label
}

// String never exposes the secret material.
func (s *TwoFactorSecret) String() string {
	return fmt.Sprintf("TwoFactorSecret{label=%q}", s.label)
}

func (s *TwoFactorSecret) LogValue() slog.Value {
	return slog.GroupValue(slog.String("label", s.label))
}

// Verify reports whether code matches any of the 2*SKEW+1 time steps around
// now. Malformed codes are simply not valid.
func (s *TwoFactorSecret) Verify(code string, now time.Time) bool {
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), s.raw, now.UTC(), validateOpts)
	if err != nil {
		slog.Debug("Rejected totp passcode", "error", err)
		return false
	}
	return valid
}

// ExpectedCode returns the code for the time step containing now.
func (s *TwoFactorSecret) ExpectedCode(now time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(s.raw, now.UTC(), validateOpts)
	if err != nil {
		slog.Error("Failed to generate totp passcode", "error", err)
		return "", err
	}
	return code, nil
}

// AccountLabel is the label an authenticator app displays for identity.
func (s *TwoFactorSecret) AccountLabel(identity string) string {
	if s.label == "" {
		return identity
	}
	return s.label + ":" + identity
}

// ProvisioningURI builds the otpauth URI handed to a QR encoder.
func (s *TwoFactorSecret) ProvisioningURI(identity string) string {
	var b strings.Builder
	b.WriteString("otpauth://totp/")
	b.WriteString(url.PathEscape(s.AccountLabel(identity)))
	b.WriteString("?secret=")
	b.WriteString(s.raw)
	fmt.Fprintf(&b, "&algorithm=%s&digits=%d&period=%d", otp.AlgorithmSHA1.String(), otp.DigitsSix.Length(), PERIOD)
	return b.String()
}
