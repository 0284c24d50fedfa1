package gate

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	gkerrors "github.com/tendant/gatekeeper/pkg/errors"
	"github.com/tendant/gatekeeper/pkg/twofa"
)

// ChallengeView is what the code entry page needs.
type ChallengeView struct {
	QRImage         string `json:"qrImage,omitempty"`
	ProvisioningURI string `json:"provisioningUri,omitempty"`
	VerifyURL       string `json:"verifyUrl"`
}

type RedirectView struct {
	Redirect string `json:"redirect"`
}

type ErrorView struct {
	Error string             `json:"error"`
	Code  gkerrors.ErrorCode `json:"code"`
}

// Renderer draws the challenge page for browsers. Without one the view is
// returned as JSON.
type Renderer interface {
	RenderChallenge(w http.ResponseWriter, r *http.Request, view ChallengeView) error
}

type RendererFunc func(w http.ResponseWriter, r *http.Request, view ChallengeView) error

func (f RendererFunc) RenderChallenge(w http.ResponseWriter, r *http.Request, view ChallengeView) error {
	return f(w, r, view)
}

type HandlerOptions struct {
	// Session defaults to SessionFromContext.
	Session func(r *http.Request) (string, bool)
	// User defaults to UserFromContext.
	User     func(r *http.Request) any
	Renderer Renderer
	// QRSize is the QR image edge in pixels, defaults to 200.
	QRSize int
}

// Handler mounts a Gate on net/http.
type Handler struct {
	gate *Gate
	opts HandlerOptions
}

func NewHandler(g *Gate, opts HandlerOptions) *Handler {
	if opts.Session == nil {
		opts.Session = func(r *http.Request) (string, bool) {
			return SessionFromContext(r.Context())
		}
	}
	if opts.User == nil {
		opts.User = func(r *http.Request) any {
			return UserFromContext(r.Context())
		}
	}
	if opts.QRSize <= 0 {
		opts.QRSize = twofa.DEFAULT_QR_SIZE
	}
	return &Handler{gate: g, opts: opts}
}

// Routes registers the challenge and verify endpoints on r and guards every
// route that protect registers.
//
// Gate paths and redirect targets are relative to where r is mounted: with
// r mounted at /app the challenge is served at /app/tfa and a success
// redirect of / sends the client to /app/.
func (h *Handler) Routes(r chi.Router, protect func(r chi.Router)) {
	r.Group(func(r chi.Router) {
		r.Use(h.Middleware)
		// Only reached when the gate passes the request through, i.e. before login.
		r.Get(h.gate.ChallengePath(), h.leave)
		r.Post(h.gate.VerifyPath(), h.leave)
		if protect != nil {
			protect(r)
		}
	})
}

// Middleware evaluates the gate for every request and either answers it or
// hands it to next.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := h.buildRequest(r)
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		out, err := h.gate.Evaluate(r.Context(), req)
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		switch out.Action {
		case ActionPassThrough:
			next.ServeHTTP(w, r)
		case ActionRedirect:
			h.redirect(w, r, out.RedirectTarget)
		case ActionChallenge:
			h.challenge(w, r, out)
		default:
			h.handleError(w, r, gkerrors.Newf(gkerrors.ErrCodeInternal, "unknown gate action %s", out.Action))
		}
	})
}

func (h *Handler) buildRequest(r *http.Request) (Request, error) {
	sessionID, hasSession := h.opts.Session(r)
	req := Request{
		Method:     r.Method,
		Path:       routePath(r),
		HasSession: hasSession,
		SessionID:  sessionID,
		User:       h.opts.User(r),
	}
	if r.Method == http.MethodPost && req.Path == h.gate.VerifyPath() {
		code, err := readCode(r)
		if err != nil {
			return req, err
		}
		req.Code = code
	}
	return req, nil
}

type verifyRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// readCode accepts the passcode as form field or JSON body, under "token" or "code".
func readCode(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body verifyRequest
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			return "", gkerrors.Wrap(err, gkerrors.ErrCodeInvalidInput, "unable to parse body")
		}
		if body.Token != "" {
			return body.Token, nil
		}
		return body.Code, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", gkerrors.Wrap(err, gkerrors.ErrCodeInvalidInput, "unable to parse form")
	}
	if token := r.PostFormValue("token"); token != "" {
		return token, nil
	}
	return r.PostFormValue("code"), nil
}

// PrefersStructured reports whether the client asked for JSON instead of
// redirects and HTML.
func PrefersStructured(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	if render.GetAcceptedContentType(r) == render.ContentTypeJSON {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// routePath is the request path below the router's mount point.
func routePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		return rctx.RoutePath
	}
	return r.URL.Path
}

// mounted prefixes a local path with the part of the URL consumed by parent
// routers. Absolute URLs are returned unchanged.
func mounted(r *http.Request, target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return target
	}
	rp := routePath(r)
	if !strings.HasSuffix(r.URL.Path, rp) {
		return target
	}
	base := strings.TrimSuffix(r.URL.Path, rp)
	return strings.TrimSuffix(base, "/") + target
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, target string) {
	target = mounted(r, target)
	if PrefersStructured(r) {
		render.JSON(w, r, RedirectView{Redirect: target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) challenge(w http.ResponseWriter, r *http.Request, out Outcome) {
	view := ChallengeView{
		ProvisioningURI: out.ProvisioningURI,
		VerifyURL:       mounted(r, out.VerifyURL),
	}
	if out.ProvisioningURI != "" {
		qr, err := twofa.QRCodeDataURI(out.ProvisioningURI, h.opts.QRSize)
		if err != nil {
			h.handleError(w, r, gkerrors.InternalWrap(err, "failed to render qr code"))
			return
		}
		view.QRImage = qr
	}

	if PrefersStructured(r) || h.opts.Renderer == nil {
		render.JSON(w, r, view)
		return
	}
	if err := h.opts.Renderer.RenderChallenge(w, r, view); err != nil {
		h.gate.cfg.Logger.Error("Failed to render challenge", "identity", out.Identity, "error", err)
		h.handleError(w, r, gkerrors.InternalWrap(err, "failed to render challenge"))
	}
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	h.redirect(w, r, h.gate.SuccessRedirect())
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := gkerrors.GetCode(err)
	status := gkerrors.MapErrorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.gate.cfg.Logger.Error("Two-factor gate failed", "path", r.URL.Path, "code", code, "error", err)
	} else {
		h.gate.cfg.Logger.Warn("Two-factor gate rejected request", "path", r.URL.Path, "code", code, "error", err)
	}

	message := http.StatusText(status)
	var gerr *gkerrors.Error
	if errors.As(err, &gerr) {
		message = gerr.Message
	}

	if PrefersStructured(r) {
		render.Status(r, status)
		render.JSON(w, r, ErrorView{Error: message, Code: code})
		return
	}
	http.Error(w, message, status)
}
