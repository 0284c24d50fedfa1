package gate

import (
	"context"
	"errors"
	"net/http"

	gkerrors "github.com/tendant/gatekeeper/pkg/errors"
	"github.com/tendant/gatekeeper/pkg/twofa"
)

// State names the branch of the gate that produced an Outcome.
type State string

const (
	StateNoSession               State = "no_session"
	StateUnauthenticated         State = "unauthenticated"
	StateSessionVerified         State = "session_verified"
	StatePendingFirstEnrollment  State = "pending_first_enrollment"
	StatePendingRoutineChallenge State = "pending_routine_challenge"
	StateVerifySucceeded         State = "verify_succeeded"
	StateVerifyFailed            State = "verify_failed"
	StateAccessDenied            State = "access_denied"
)

// Action is what the mounting layer should do with the request.
type Action int

const (
	// ActionPassThrough hands the request to the next handler untouched.
	ActionPassThrough Action = iota
	// ActionRedirect sends the client to Outcome.RedirectTarget.
	ActionRedirect
	// ActionChallenge shows the code entry view.
	ActionChallenge
)

func (a Action) String() string {
	switch a {
	case ActionPassThrough:
		return "pass_through"
	case ActionRedirect:
		return "redirect"
	case ActionChallenge:
		return "challenge"
	default:
		return "unknown"
	}
}

// Request is the slice of an inbound request the gate needs.
type Request struct {
	Method string
	Path   string

	// HasSession is false when no session middleware ran before the gate.
	HasSession bool
	SessionID  string

	// User is the authenticated user value, nil before login.
	User any

	// Code is the submitted passcode on the verify endpoint.
	Code string
}

// Outcome is the logical result of evaluating a Request.
type Outcome struct {
	State  State
	Action Action

	RedirectTarget string

	// Set for ActionChallenge. ProvisioningURI is empty once the identity
	// has confirmed enrollment.
	ProvisioningURI string
	VerifyURL       string

	Identity string
}

var errEnrollmentVanished = errors.New("enrollment disappeared after a concurrent create")

// Gate is the two-factor state machine. It keeps no per-request state and is
// safe for concurrent use as long as its store and flag are.
type Gate struct {
	cfg        Config
	identity   identityPath
	verifyPath string
}

// New validates cfg and builds a Gate.
func New(cfg Config) (*Gate, error) {
	cfg, idPath, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	return &Gate{
		cfg:        cfg,
		identity:   idPath,
		verifyPath: cfg.RoutePrefix + VERIFY_SUFFIX,
	}, nil
}

func (g *Gate) ChallengePath() string   { return g.cfg.RoutePrefix }
func (g *Gate) VerifyPath() string      { return g.verifyPath }
func (g *Gate) SuccessRedirect() string { return g.cfg.SuccessRedirect }
func (g *Gate) FailureRedirect() string { return g.cfg.FailureRedirect }

// IdentityOf resolves the configured identity path against user.
func (g *Gate) IdentityOf(user any) (string, bool) {
	if user == nil {
		return "", false
	}
	return g.identity.resolve(user)
}

// Evaluate routes req to Challenge, Verify or Guard.
func (g *Gate) Evaluate(ctx context.Context, req Request) (Outcome, error) {
	switch {
	case req.Method == http.MethodGet && req.Path == g.cfg.RoutePrefix:
		return g.Challenge(ctx, req)
	case req.Method == http.MethodPost && req.Path == g.verifyPath:
		return g.Verify(ctx, req)
	default:
		return g.Guard(ctx, req)
	}
}

// Challenge serves the code entry view, enrolling the identity on its first
// visit.
func (g *Gate) Challenge(ctx context.Context, req Request) (Outcome, error) {
	identity, verified, out, err := g.begin(ctx, req)
	if err != nil || out != nil {
		return deref(out), err
	}
	if verified {
		return g.redirect(StateSessionVerified, identity, g.cfg.SuccessRedirect), nil
	}

	record, err := g.load(ctx, identity)
	if err != nil {
		return Outcome{}, err
	}

	state := StatePendingRoutineChallenge
	var secret *twofa.TwoFactorSecret
	if !record.HasSecret() {
		state = StatePendingFirstEnrollment
		secret, record, err = g.enroll(ctx, identity)
	} else {
		secret, err = g.rehydrate(identity, record)
	}
	if err != nil {
		return Outcome{}, err
	}

	out = &Outcome{
		State:     state,
		Action:    ActionChallenge,
		VerifyURL: g.verifyPath,
		Identity:  identity,
	}
	if !record.Verified {
		out.ProvisioningURI = secret.ProvisioningURI(identity)
	}
	return *out, nil
}

// Verify checks a submitted code. A wrong code is an outcome, not an error.
func (g *Gate) Verify(ctx context.Context, req Request) (Outcome, error) {
	identity, verified, out, err := g.begin(ctx, req)
	if err != nil || out != nil {
		return deref(out), err
	}
	if verified {
		return g.redirect(StateSessionVerified, identity, g.cfg.SuccessRedirect), nil
	}

	record, err := g.load(ctx, identity)
	if err != nil {
		return Outcome{}, err
	}
	if !record.HasSecret() {
		g.cfg.Logger.Warn("Code submitted before enrollment", "identity", identity)
		return g.redirect(StateVerifyFailed, identity, g.cfg.FailureRedirect), nil
	}

	secret, err := g.rehydrate(identity, record)
	if err != nil {
		return Outcome{}, err
	}

	if !secret.Verify(req.Code, g.cfg.Clock()) {
		g.cfg.Logger.Info("Two-factor verification failed", "identity", identity)
		return g.redirect(StateVerifyFailed, identity, g.cfg.FailureRedirect), nil
	}

	if err := g.cfg.Flag.Set(ctx, req.SessionID); err != nil {
		g.cfg.Logger.Error("Failed to set session verified flag", "identity", identity, "error", err)
		return Outcome{}, gkerrors.FlagFailure(err, "set")
	}

	if !record.Verified {
		record.Verified = true
		record.UpdatedAt = g.cfg.Clock().UTC()
		if err := g.cfg.Store.Save(ctx, identity, *record); err != nil {
			g.cfg.Logger.Error("Failed to confirm enrollment", "identity", identity, "error", err)
			return Outcome{}, gkerrors.StoreFailure(err, "save")
		}
		g.cfg.Logger.Info("Two-factor enrollment confirmed", "identity", identity)
	}

	g.cfg.Logger.Info("Two-factor verification succeeded", "identity", identity)
	return g.redirect(StateVerifySucceeded, identity, g.cfg.SuccessRedirect), nil
}

// Guard protects every other route behind the gate.
func (g *Gate) Guard(ctx context.Context, req Request) (Outcome, error) {
	identity, verified, out, err := g.begin(ctx, req)
	if err != nil || out != nil {
		return deref(out), err
	}
	if verified {
		return Outcome{State: StateSessionVerified, Action: ActionPassThrough, Identity: identity}, nil
	}
	return g.redirect(StateAccessDenied, identity, g.cfg.RoutePrefix), nil
}

// begin handles the states shared by every entry point. A non-nil Outcome
// ends evaluation early.
func (g *Gate) begin(ctx context.Context, req Request) (string, bool, *Outcome, error) {
	if !req.HasSession {
		return "", false, &Outcome{State: StateNoSession}, gkerrors.SessionMissing()
	}
	if req.User == nil {
		return "", false, &Outcome{State: StateUnauthenticated, Action: ActionPassThrough}, nil
	}

	identity, ok := g.IdentityOf(req.User)
	if !ok {
		g.cfg.Logger.Error("Authenticated user has no identity", "path", g.identity.String())
		return "", false, nil, gkerrors.Newf(gkerrors.ErrCodeIdentityUnresolved,
			"no identity found at path %q", g.identity.String())
	}

	verified, err := g.cfg.Flag.Get(ctx, req.SessionID)
	if err != nil {
		g.cfg.Logger.Error("Failed to read session verified flag", "identity", identity, "error", err)
		return "", false, nil, gkerrors.FlagFailure(err, "get")
	}
	return identity, verified, nil, nil
}

func (g *Gate) load(ctx context.Context, identity string) (*EnrollmentRecord, error) {
	record, err := g.cfg.Store.Load(ctx, identity)
	if err != nil {
		g.cfg.Logger.Error("Failed to load enrollment", "identity", identity, "error", err)
		return nil, gkerrors.StoreFailure(err, "load")
	}
	return record, nil
}

func (g *Gate) rehydrate(identity string, record *EnrollmentRecord) (*twofa.TwoFactorSecret, error) {
	secret, err := twofa.FromStored(g.cfg.Label, record.Secret)
	if err != nil {
		g.cfg.Logger.Error("Stored secret is unusable", "identity", identity, "error", err)
		return nil, err
	}
	return secret, nil
}

// enroll issues a fresh secret and persists it unverified. Stores that
// implement EnrollmentCreator keep the first writer's secret.
func (g *Gate) enroll(ctx context.Context, identity string) (*twofa.TwoFactorSecret, *EnrollmentRecord, error) {
	secret, err := twofa.Generate(twofa.GenerateOpts{
		Label:      g.cfg.Label,
		ByteLength: g.cfg.SecretByteLength,
	})
	if err != nil {
		return nil, nil, gkerrors.InternalWrap(err, "failed to generate secret")
	}

	now := g.cfg.Clock().UTC()
	record := EnrollmentRecord{
		Secret:    secret.Raw(),
		Verified:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	creator, ok := g.cfg.Store.(EnrollmentCreator)
	if !ok {
		if err := g.cfg.Store.Save(ctx, identity, record); err != nil {
			g.cfg.Logger.Error("Failed to save enrollment", "identity", identity, "error", err)
			return nil, nil, gkerrors.StoreFailure(err, "save")
		}
		g.cfg.Logger.Info("Generated new totp secret", "identity", identity)
		return secret, &record, nil
	}

	created, err := creator.CreateIfAbsent(ctx, identity, record)
	if err != nil {
		g.cfg.Logger.Error("Failed to create enrollment", "identity", identity, "error", err)
		return nil, nil, gkerrors.StoreFailure(err, "create")
	}
	if created {
		g.cfg.Logger.Info("Generated new totp secret", "identity", identity)
		return secret, &record, nil
	}

	// Lost the race: serve whatever the winner stored.
	winner, err := g.load(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	if !winner.HasSecret() {
		return nil, nil, gkerrors.StoreFailure(errEnrollmentVanished, "create")
	}
	secret, err = g.rehydrate(identity, winner)
	if err != nil {
		return nil, nil, err
	}
	g.cfg.Logger.Info("Concurrent enrollment detected, using existing secret", "identity", identity)
	return secret, winner, nil
}

func (g *Gate) redirect(state State, identity, target string) Outcome {
	return Outcome{
		State:          state,
		Action:         ActionRedirect,
		RedirectTarget: target,
		Identity:       identity,
	}
}

func deref(o *Outcome) Outcome {
	if o == nil {
		return Outcome{}
	}
	return *o
}
