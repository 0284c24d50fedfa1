package twofa

import (
	"bytes"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/pquerna/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gkerrors "github.com/tendant/gatekeeper/pkg/errors"
	"github.com/xlzd/gotp"
)

// base32 of the RFC 6238 SHA1 seed "12345678901234567890"
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func fixedSecret(t *testing.T) *TwoFactorSecret {
	t.Helper()
	s, err := Generate(GenerateOpts{
		Label: "acme",
		Rand:  bytes.NewReader(bytes.Repeat([]byte{0x5a, 0x17, 0xc3}, 32)),
	})
	require.NoError(t, err)
	return s
}

func TestGenerate(t *testing.T) {
	t.Run("default length", func(t *testing.T) {
		s, err := Generate(GenerateOpts{})
		require.NoError(t, err)
		assert.Len(t, s.Bytes(), DEFAULT_SECRET_LENGTH)
		assert.NotContains(t, s.Raw(), "=")
		assert.Equal(t, strings.ToUpper(s.Raw()), s.Raw())
	})

	t.Run("custom length and label", func(t *testing.T) {
		s, err := Generate(GenerateOpts{Label: "acme", ByteLength: 20})
		require.NoError(t, err)
		assert.Len(t, s.Bytes(), 20)
		assert.Equal(t, "acme", s.Label())
	})

	t.Run("two secrets differ", func(t *testing.T) {
		a, err := Generate(GenerateOpts{})
		require.NoError(t, err)
		b, err := Generate(GenerateOpts{})
		require.NoError(t, err)
		assert.NotEqual(t, a.Raw(), b.Raw())
	})

	t.Run("broken randomness", func(t *testing.T) {
		_, err := Generate(GenerateOpts{Rand: iotest.ErrReader(assert.AnError)})
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("short randomness", func(t *testing.T) {
		_, err := Generate(GenerateOpts{ByteLength: 16, Rand: bytes.NewReader([]byte{1, 2, 3})})
		require.Error(t, err)
	})

	t.Run("negative length", func(t *testing.T) {
		_, err := Generate(GenerateOpts{ByteLength: -1})
		require.Error(t, err)
		assert.True(t, gkerrors.IsCode(err, gkerrors.ErrCodeConfiguration))
	})
}

func TestFromStored(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s, err := FromStored("acme", rfcSecret)
		require.NoError(t, err)
		assert.Equal(t, []byte("12345678901234567890"), s.Bytes())
	})

	t.Run("lower case and padded", func(t *testing.T) {
		s, err := FromStored("", strings.ToLower(rfcSecret)+"========")
		require.NoError(t, err)
		assert.Equal(t, []byte("12345678901234567890"), s.Bytes())
	})

	for name, raw := range map[string]string{
		"empty":      "",
		"blank":      "   ",
		"not base32": "not-a-secret!",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromStored("acme", raw)
			require.Error(t, err)
			assert.True(t, gkerrors.IsCode(err, gkerrors.ErrCodeInvalidSecret))
		})
	}
}

func TestExpectedCodeRFCVectors(t *testing.T) {
	s, err := FromStored("", rfcSecret)
	require.NoError(t, err)

	// RFC 6238 appendix B, truncated to six digits
	cases := map[int64]string{
		59:         "287082",
		1111111109: "081804",
		1111111111: "050471",
		1234567890: "005924",
		2000000000: "279037",
	}
	for ts, want := range cases {
		code, err := s.ExpectedCode(time.Unix(ts, 0))
		require.NoError(t, err)
		assert.Equal(t, want, code, "t=%d", ts)
		assert.True(t, s.Verify(want, time.Unix(ts, 0)), "t=%d", ts)
	}
}

func TestVerifyWindow(t *testing.T) {
	s := fixedSecret(t)
	// 20 seconds into a 30 second step
	now := time.Unix(1700000000, 0)

	code, err := s.ExpectedCode(now)
	require.NoError(t, err)

	assert.True(t, s.Verify(code, now))
	assert.True(t, s.Verify(code, now.Add(31*time.Second)))
	assert.True(t, s.Verify(code, now.Add(-31*time.Second)))
	assert.True(t, s.Verify(code, now.Add(300*time.Second)), "ten steps ahead")
	assert.True(t, s.Verify(code, now.Add(-300*time.Second)), "ten steps behind")
	assert.False(t, s.Verify(code, now.Add(330*time.Second)), "eleven steps ahead")
	assert.False(t, s.Verify(code, now.Add(400*time.Second)))
	assert.False(t, s.Verify(code, now.Add(-400*time.Second)))
}

func TestVerifyMalformedCodes(t *testing.T) {
	s := fixedSecret(t)
	now := time.Unix(1700000000, 0)

	for _, code := range []string{"", "12345", "1234567", "abcdef"} {
		assert.False(t, s.Verify(code, now), "code %q", code)
	}

	code, err := s.ExpectedCode(now)
	require.NoError(t, err)
	assert.True(t, s.Verify(" "+code+" ", now), "surrounding whitespace is ignored")
}

func TestVerifyAgainstIndependentImplementation(t *testing.T) {
	s, err := FromStored("", rfcSecret)
	require.NoError(t, err)

	code := gotp.NewDefaultTOTP(rfcSecret).Now()
	assert.True(t, s.Verify(code, time.Now()))
}

func TestProvisioningURI(t *testing.T) {
	s := fixedSecret(t)

	uri := s.ProvisioningURI("bob@example.com")
	assert.Equal(t,
		"otpauth://totp/acme:bob@example.com?secret="+s.Raw()+"&algorithm=SHA1&digits=6&period=30",
		uri)

	key, err := otp.NewKeyFromURL(uri)
	require.NoError(t, err)
	assert.Equal(t, "totp", key.Type())
	assert.Equal(t, s.Raw(), key.Secret())
	assert.Equal(t, uint64(30), key.Period())

	decoded, err := decodeSecret(key.Secret())
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0x5a, 0x17, 0xc3}, 32)[:DEFAULT_SECRET_LENGTH], decoded)
}

func TestProvisioningURIEscapesLabel(t *testing.T) {
	s, err := FromStored("", rfcSecret)
	require.NoError(t, err)

	uri := s.ProvisioningURI("jane doe/ops")
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/jane%20doe%2Fops?secret="), uri)

	key, err := otp.NewKeyFromURL(uri)
	require.NoError(t, err)
	assert.Equal(t, rfcSecret, key.Secret())
}

func TestSecretNeverPrinted(t *testing.T) {
	s := fixedSecret(t)
	assert.NotContains(t, s.String(), s.Raw())
	assert.Equal(t, `TwoFactorSecret{label="acme"}`, s.String())
}
