package twofa

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/pquerna/otp"
)

const DEFAULT_QR_SIZE = 200

// QRCodeDataURI renders a provisioning URI as a PNG data URI that can be
// dropped straight into an <img> tag.
func QRCodeDataURI(uri string, size int) (string, error) {
	if size <= 0 {
		size = DEFAULT_QR_SIZE
	}

	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", fmt.Errorf("invalid provisioning uri: %w", err)
	}

	img, err := key.Image(size, size)
	if err != nil {
		return "", fmt.Errorf("failed to render qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
