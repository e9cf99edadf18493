package web

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resume-tailor/internal/access"
	"resume-tailor/internal/common/config"
	"resume-tailor/internal/common/errors"
)

// maxGrantHours caps the duration an operator can request through the API.
const maxGrantHours = 24 * 31

type grantRequest struct {
	Hours int `json:"hours"`
}

type grantResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Link      string    `json:"link"`
}

// handleSuccess is the payment confirmation landing page. It mints a grant
// and sends the buyer back to the form with it.
func (h *Handler) handleSuccess(w http.ResponseWriter, r *http.Request) {
	key := h.cfg.Payment.SuccessKey
	if key == "" {
		http.NotFound(w, r)
		return
	}
	if !secretEqual(r.URL.Query().Get("key"), key) {
		h.responder.WriteError(w, r, errors.NewAdminForbiddenError())
		return
	}

	g, err := access.Issue(r.Context(), h.store, h.cfg.Access.Backend, "success", h.cfg.Access.GrantDuration())
	if err != nil {
		h.responder.WriteError(w, r, errors.NewStoreUnavailableError(h.cfg.Access.Backend, err))
		return
	}

	h.setAccessCookie(w, r, g)
	target := "/"
	if h.cfg.Access.Backend != config.BackendCookie {
		target = "/?token=" + url.QueryEscape(g.Token)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleAdminGrant lets an operator mint a grant after confirming a payment
// out of band. The body is optional: {"hours": n}.
func (h *Handler) handleAdminGrant(w http.ResponseWriter, r *http.Request) {
	adminKey := h.cfg.Access.AdminKey
	if adminKey == "" || !secretEqual(r.Header.Get("X-Admin-Key"), adminKey) {
		h.responder.WriteError(w, r, errors.NewAdminForbiddenError())
		return
	}

	d := h.cfg.Access.GrantDuration()
	var req grantRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && err != io.EOF {
		h.responder.WriteError(w, r, errors.NewBadRequestError("body must be JSON: "+err.Error()))
		return
	}
	if req.Hours < 0 || req.Hours > maxGrantHours {
		h.responder.WriteError(w, r, errors.NewBadRequestError("hours out of range"))
		return
	}
	if req.Hours > 0 {
		d = time.Duration(req.Hours) * time.Hour
	}

	g, err := access.Issue(r.Context(), h.store, h.cfg.Access.Backend, "admin", d)
	if err != nil {
		h.responder.WriteError(w, r, errors.NewStoreUnavailableError(h.cfg.Access.Backend, err))
		return
	}

	writeJSON(w, http.StatusCreated, grantResponse{
		Token:     g.Token,
		ExpiresAt: g.ExpiresAt,
		Link:      AccessLink(h.baseURL(r), g.Token),
	})
}

// AccessLink is the shareable URL that carries a grant token.
func AccessLink(base, token string) string {
	return strings.TrimRight(base, "/") + "/?token=" + url.QueryEscape(token)
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.cfg.App.PublicURL != "" {
		return h.cfg.App.PublicURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (h *Handler) setAccessCookie(w http.ResponseWriter, r *http.Request, g *access.AccessGrant) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Access.CookieName,
		Value:    g.Token,
		Path:     "/",
		Expires:  g.ExpiresAt,
		MaxAge:   int(time.Until(g.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.baseURL(r), "https://"),
		SameSite: http.SameSiteLaxMode,
	})
}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
