// Package twofa implements the TOTP primitives behind the gate: secret
// generation, code verification with a tolerant time window, otpauth
// provisioning URIs and QR code rendering.
//
// Codes are six digits, SHA1, with a 30 second period. Verification accepts
// codes up to SKEW steps on either side of the current time.
//
//	secret, err := twofa.Generate(twofa.GenerateOpts{Label: "Acme"})
//	if err != nil {
//	    return err
//	}
//	uri := secret.ProvisioningURI("jane@example.com")
//	img, err := twofa.QRCodeDataURI(uri, twofa.DEFAULT_QR_SIZE)
//
//	// later
//	secret, err = twofa.FromStored("Acme", stored)
//	ok := secret.Verify(code, time.Now())
package twofa
