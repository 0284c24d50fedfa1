package twofa

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodeDataURI(t *testing.T) {
	s, err := Generate(GenerateOpts{Label: "acme"})
	require.NoError(t, err)

	dataURI, err := QRCodeDataURI(s.ProvisioningURI("bob@example.com"), 0)
	require.NoError(t, err)

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(dataURI, prefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURI, prefix))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_QR_SIZE, img.Bounds().Dx())
	assert.Equal(t, DEFAULT_QR_SIZE, img.Bounds().Dy())
}

func TestQRCodeDataURIInvalidURI(t *testing.T) {
	_, err := QRCodeDataURI("://not a uri", 200)
	assert.Error(t, err)
}
