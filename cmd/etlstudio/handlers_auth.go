package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/DukeAche/Etl-studio/pkg/accounts"
	"github.com/DukeAche/Etl-studio/pkg/audit"
)

// ─────────────────────────────────────────────────────────────────────────────
// Login / logout
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if a.sessions.Get(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	var b strings.Builder
	writePageHead(&b, "Login — "+a.cfg.Server.Name)
	a.writeNavbar(&b, nil, "")
	writeFlash(&b, r)

	b.WriteString(`<div class="card" style="max-width:520px;margin:40px auto;">`)
	b.WriteString(`<div class="card-header">Sign in</div>`)
	b.WriteString(`<div class="card-body">`)
	b.WriteString(`<form method="POST" action="/login" class="form-grid">`)
	b.WriteString(`<div class="form-row"><label class="form-label">Username</label>` +
		`<input class="form-input" name="username" autofocus required></div>`)
	b.WriteString(`<div class="form-row"><label class="form-label">Password</label>` +
		`<input class="form-input" name="password" type="password" required></div>`)
	b.WriteString(`<div><button class="btn btn-primary" type="submit">Sign in</button> ` +
		`<a class="btn btn-ghost" href="/signup">Create account</a></div>`)
	b.WriteString(`</form>`)
	b.WriteString(`</div></div>`)

	writePageFoot(&b)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, b.String())
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, err := a.store.Authenticate(ctx, username, password)
	if err != nil {
		a.recordAudit(ctx, audit.NewEntry(audit.OpLogin, audit.StatusFailure).
			WithUser(username).WithError(err).WithIPAddress(clientIP(r)))
		redirectErr(w, r, "/login", "Invalid username or password")
		return
	}

	sess := a.sessions.Create(w, user)
	fmt.Printf("etlstudio: login %s (session %s)\n", user.Username, sess.ID)

	a.recordAudit(ctx, audit.NewEntry(audit.OpLogin, audit.StatusSuccess).
		WithUser(user.Username).WithIPAddress(clientIP(r)).WithSessionID(sess.ID))

	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := a.sessions.Destroy(w, r)
	if sess != nil {
		if err := a.store.LogLogout(ctx, sess.User.ID, sess.User.Username); err != nil {
			fmt.Printf("etlstudio: logout log error: %v\n", err)
		}
		a.recordAudit(ctx, audit.NewEntry(audit.OpLogout, audit.StatusSuccess).
			WithUser(sess.User.Username).WithSessionID(sess.ID))
		fmt.Printf("etlstudio: logout %s\n", sess.User.Username)
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// Signup
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	writePageHead(&b, "Sign up — "+a.cfg.Server.Name)
	a.writeNavbar(&b, nil, "")
	writeFlash(&b, r)

	b.WriteString(`<div class="card" style="max-width:520px;margin:40px auto;">`)
	b.WriteString(`<div class="card-header">Create account</div>`)
	b.WriteString(`<div class="card-body">`)
	b.WriteString(`<form method="POST" action="/signup" class="form-grid">`)
	b.WriteString(`<div class="form-row"><label class="form-label">Username</label>` +
		`<input class="form-input" name="username" autofocus required></div>`)
	b.WriteString(`<div class="form-row"><label class="form-label">Email</label>` +
		`<input class="form-input" name="email" type="email" required></div>`)
	b.WriteString(`<div class="form-row"><label class="form-label">Password (min 6 characters)</label>` +
		`<input class="form-input" name="password" type="password" required></div>`)
	b.WriteString(`<div><button class="btn btn-primary" type="submit">Sign up</button> ` +
		`<a class="btn btn-ghost" href="/login">Back to login</a></div>`)
	b.WriteString(`</form>`)
	b.WriteString(`</div></div>`)

	writePageFoot(&b)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, b.String())
}

func (a *App) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	user, err := a.store.CreateUser(ctx, username, email, password, false)
	if err != nil {
		a.recordAudit(ctx, audit.NewEntry(audit.OpSignup, audit.StatusFailure).
			WithUser(username).WithError(err).WithIPAddress(clientIP(r)))
		redirectErr(w, r, "/signup", err.Error())
		return
	}

	a.recordAudit(ctx, audit.NewEntry(audit.OpSignup, audit.StatusSuccess).
		WithUser(user.Username).WithIPAddress(clientIP(r)))
	fmt.Printf("etlstudio: new account %s\n", user.Username)

	redirectMsg(w, r, "/login", "Account created, sign in to continue")
}

// ─────────────────────────────────────────────────────────────────────────────
// Password change
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) handlePasswordForm(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var b strings.Builder
	writePageHead(&b, "Change password — "+a.cfg.Server.Name)
	a.writeNavbar(&b, sess, "")
	writeFlash(&b, r)

	b.WriteString(`<div class="card" style="max-width:520px;margin:40px auto;">`)
	b.WriteString(`<div class="card-header">Change password</div>`)
	b.WriteString(`<div class="card-body">`)
	b.WriteString(`<form method="POST" action="/password" class="form-grid">`)
	b.WriteString(`<div class="form-row"><label class="form-label">Current password</label>` +
		`<input class="form-input" name="old_password" type="password" required></div>`)
	b.WriteString(`<div class="form-row"><label class="form-label">New password (min 6 characters)</label>` +
		`<input class="form-input" name="new_password" type="password" required></div>`)
	b.WriteString(`<div><button class="btn btn-primary" type="submit">Change</button></div>`)
	b.WriteString(`</form>`)
	b.WriteString(`</div></div>`)

	writePageFoot(&b)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, b.String())
}

func (a *App) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)

	err := a.store.ChangePassword(ctx, sess.User.ID, r.FormValue("old_password"), r.FormValue("new_password"))
	if err != nil {
		a.recordAudit(ctx, audit.NewEntry(audit.OpPasswordChange, audit.StatusFailure).
			WithUser(sess.User.Username).WithError(err).WithSessionID(sess.ID))
		redirectErr(w, r, "/password", err.Error())
		return
	}

	a.recordAudit(ctx, audit.NewEntry(audit.OpPasswordChange, audit.StatusSuccess).
		WithUser(sess.User.Username).WithSessionID(sess.ID))
	redirectMsg(w, r, "/password", "Password changed")
}

// ─────────────────────────────────────────────────────────────────────────────
// Contact / newsletter
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) handleContactForm(w http.ResponseWriter, r *http.Request) {
	sess := a.sessions.Get(r)

	var b strings.Builder
	writePageHead(&b, "Contact — "+a.cfg.Server.Name)
	a.writeNavbar(&b, sess, "")
	writeFlash(&b, r)

	b.WriteString(`<div class="card" style="max-width:620px;margin:40px auto;">`)
	b.WriteString(`<div class="card-header">Contact us</div>`)
	b.WriteString(`<div class="card-body">`)
	b.WriteString(`<form method="POST" action="/contact" class="form-grid" style="max-width:none;">`)
	b.WriteString(`<div class="form-row"><label class="form-label">Name</label>` +
		`<input class="form-input" name="name" required></div>`)
	b.WriteString(`<div class="form-row"><label class="form-label">Email</label>` +
		`<input class="form-input" name="email" type="email" required></div>`)
	b.WriteString(`<div class="form-row"><label class="form-label">Message</label>` +
		`<textarea class="form-area" name="message" required></textarea></div>`)
	b.WriteString(`<div><button class="btn btn-primary" type="submit">Send</button></div>`)
	b.WriteString(`</form>`)

	b.WriteString(`<form method="POST" action="/newsletter" style="margin-top:24px;display:flex;gap:8px;">`)
	b.WriteString(`<input class="form-input" name="email" type="email" placeholder="you@example.com" style="flex:1;">`)
	b.WriteString(`<button class="btn btn-ghost" type="submit">Subscribe to newsletter</button>`)
	b.WriteString(`</form>`)
	b.WriteString(`</div></div>`)

	writePageFoot(&b)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, b.String())
}

func (a *App) handleContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	message := strings.TrimSpace(r.FormValue("message"))

	if err := a.store.CreateContact(ctx, name, email, message); err != nil {
		a.recordAudit(ctx, audit.NewEntry(audit.OpContact, audit.StatusFailure).WithError(err))
		redirectErr(w, r, "/contact", err.Error())
		return
	}

	a.recordAudit(ctx, audit.NewEntry(audit.OpContact, audit.StatusSuccess).
		WithMetadata("email", email))
	redirectMsg(w, r, "/contact", "Message sent, thank you")
}

func (a *App) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := strings.TrimSpace(r.FormValue("email"))

	if err := a.store.CreateSignup(ctx, email); err != nil {
		var dup *accounts.DuplicateError
		if !errors.As(err, &dup) {
			a.recordAudit(ctx, audit.NewEntry(audit.OpNewsletter, audit.StatusFailure).WithError(err))
			redirectErr(w, r, "/contact", err.Error())
			return
		}
		// Повторная подписка не ошибка для пользователя
	}

	a.recordAudit(ctx, audit.NewEntry(audit.OpNewsletter, audit.StatusSuccess).
		WithMetadata("email", email))
	redirectMsg(w, r, "/contact", "Subscribed")
}
