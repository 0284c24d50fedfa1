package main

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/tendant/gatekeeper/pkg/gate"
	"github.com/tendant/gatekeeper/pkg/sessionflag"
)

// jwtauth.TokenFromCookie reads this cookie.
const ACCESS_TOKEN_COOKIE = "jwt"

type Services struct {
	gate      *gate.Gate
	flag      sessionflag.Flag
	tokenAuth *jwtauth.JWTAuth
	config    *Config
}

func setupRoutes(r chi.Router, services *Services) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(services.sessionMiddleware)
		r.Use(jwtauth.Verifier(services.tokenAuth))
		r.Use(userMiddleware)

		r.Get("/login", services.loginPage)
		r.Post("/login", services.login)
		r.Post("/logout", services.logout)

		tfa := gate.NewHandler(services.gate, gate.HandlerOptions{
			Renderer: challengeRenderer{},
		})
		tfa.Routes(r, func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(requireLogin)
				r.Get("/", home)
			})
		})
	})
}

// sessionMiddleware gives every browser an opaque session id in a cookie.
func (s *Services) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if cookie, err := r.Cookie(s.config.SessionCookie); err == nil && cookie.Value != "" {
			sessionID = cookie.Value
		} else {
			sessionID = s.newSession(w)
		}
		next.ServeHTTP(w, r.WithContext(gate.WithSession(r.Context(), sessionID)))
	})
}

func (s *Services) newSession(w http.ResponseWriter) string {
	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

// endSession drops the verified flag of the current session, if any.
func (s *Services) endSession(r *http.Request) {
	if sessionID, ok := gate.SessionFromContext(r.Context()); ok {
		if err := s.flag.Clear(r.Context(), sessionID); err != nil {
			slog.Warn("Failed to clear session flag", "error", err)
		}
	}
}

// userMiddleware exposes the claims of a valid token as the gate user.
// Requests without one stay anonymous.
func userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(gate.WithUser(r.Context(), claims)))
	})
}

func requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gate.UserFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Services) loginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginTemplate.Execute(w, nil); err != nil {
		slog.Error("Failed to render login page", "error", err)
	}
}

// login accepts any email. It stands in for a real first factor.
func (s *Services) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	// A verified flag belongs to the identity that earned it.
	s.endSession(r)
	s.newSession(w)

	claims := map[string]interface{}{
		"sub":   uuid.NewString(),
		"email": email,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, s.config.TokenExpiry)
	_, tokenString, err := s.tokenAuth.Encode(claims)
	if err != nil {
		slog.Error("Failed to issue token", "email", email, "error", err)
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     ACCESS_TOKEN_COOKIE,
		Value:    tokenString,
		Path:     "/",
		HttpOnly: s.config.CookieHttpOnly,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.TokenExpiry.Seconds()),
	})
	slog.Info("User logged in", "email", email)
	http.Redirect(w, r, s.gate.ChallengePath(), http.StatusFound)
}

func (s *Services) logout(w http.ResponseWriter, r *http.Request) {
	s.endSession(r)
	for _, name := range []string{ACCESS_TOKEN_COOKIE, s.config.SessionCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func home(w http.ResponseWriter, r *http.Request) {
	claims, _ := gate.UserFromContext(r.Context()).(map[string]interface{})
	email, _ := claims["email"].(string)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTemplate.Execute(w, email); err != nil {
		slog.Error("Failed to render home page", "error", err)
	}
}

type challengeRenderer struct{}

type challengePage struct {
	QRImage         template.URL
	ProvisioningURI string
	VerifyURL       string
}

func (challengeRenderer) RenderChallenge(w http.ResponseWriter, r *http.Request, view gate.ChallengeView) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return challengeTemplate.Execute(w, challengePage{
		// Produced by twofa.QRCodeDataURI, always a PNG data URI.
		QRImage:         template.URL(view.QRImage),
		ProvisioningURI: view.ProvisioningURI,
		VerifyURL:       view.VerifyURL,
	})
}

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html><head><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
<form method="post" action="/login">
  <input type="email" name="email" placeholder="you@example.com" required autofocus>
  <button type="submit">Continue</button>
</form>
</body></html>`))

var challengeTemplate = template.Must(template.New("challenge").Parse(`<!DOCTYPE html>
<html><head><title>Two-factor authentication</title></head>
<body>
<h1>Two-factor authentication</h1>
{{if .QRImage}}
<p>Scan this code with your authenticator app, then enter the code it shows.</p>
<img src="{{.QRImage}}" alt="QR code">
<p><small>Can't scan? Use this link: <code>{{.ProvisioningURI}}</code></small></p>
{{else}}
<p>Enter the code from your authenticator app.</p>
{{end}}
<form method="post" action="{{.VerifyURL}}">
  <input type="text" name="token" inputmode="numeric" autocomplete="one-time-code" pattern="[0-9]{6}" required autofocus>
  <button type="submit">Verify</button>
</form>
</body></html>`))

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html><head><title>Home</title></head>
<body>
<h1>Welcome, {{.}}</h1>
<p>Your session passed the second factor.</p>
<form method="post" action="/logout"><button type="submit">Log out</button></form>
</body></html>`))
