// Package gate puts a TOTP second factor in front of an already
// authenticated session.
//
// A Gate owns two endpoints under its route prefix and guards everything
// else:
//
//	GET  /tfa         challenge: enroll on first visit, otherwise ask for a code
//	POST /tfa/verify  verify a submitted code and mark the session
//	*                 pass through once the session is verified, else redirect to /tfa
//
// The gate itself is transport agnostic. Evaluate takes a Request and returns
// an Outcome describing what to do; Handler adapts that to net/http and chi.
//
// # Capabilities
//
// Persistence is injected:
//
//   - EnrollmentStore keeps one EnrollmentRecord per identity
//   - SessionFlag remembers which sessions passed the challenge
//
// Stores that also implement EnrollmentCreator get first-writer-wins
// enrollment; others fall back to last writer wins.
//
// # Usage
//
//	g, err := gate.New(gate.Config{
//		Label: "Acme",
//		Store: enrollment.NewMemoryStore(),
//		Flag:  sessionflag.NewMemoryFlag(),
//	})
//	if err != nil {
//		return err
//	}
//	h := gate.NewHandler(g, gate.HandlerOptions{})
//	h.Routes(r, func(r chi.Router) {
//		r.Get("/dashboard", dashboard)
//	})
package gate
