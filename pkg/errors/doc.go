// Package errors provides structured error handling with error codes for the
// two-factor gate.
//
// Every failure the gate can surface carries an ErrorCode so mounting layers
// can map it to a response without string matching.
//
// # Error Codes
//
//   - ErrCodeConfiguration: bad construction arguments, raised by gate.New
//   - ErrCodeSessionMissing: request reached the gate without a session
//   - ErrCodeIdentityUnresolved: authenticated user has no identifier at the configured path
//   - ErrCodeInvalidSecret: stored secret is empty or not Base32
//   - ErrCodeStoreFailure: enrollment store Load/Save failed
//   - ErrCodeFlagFailure: session flag Get/Set failed
//
// Wrong or expired codes are not errors; the gate reports them as an outcome.
//
// # Basic Usage
//
//	import gkerrors "github.com/tendant/gatekeeper/pkg/errors"
//
//	// Wrap a failure from an injected capability
//	return gkerrors.StoreFailure(err, "load")
//
//	// Inspect
//	if gkerrors.IsCode(err, gkerrors.ErrCodeSessionMissing) {
//		// mounting order bug upstream
//	}
//
//	// The wrapped cause survives
//	if errors.Is(err, context.DeadlineExceeded) {
//		// ...
//	}
//
// # HTTP Status Code Mapping
//
//   - ErrCodeInvalidInput → 400 Bad Request
//   - ErrCodeNotFound → 404 Not Found
//   - ErrCodeStoreFailure, ErrCodeFlagFailure → 503 Service Unavailable
//   - everything else → 500 Internal Server Error
package errors
