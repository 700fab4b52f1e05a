package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/integrations/canva"
	"github.com/siete/assetforge/pkg/session"
	"github.com/siete/assetforge/pkg/store"
)

// canvaAuthorize redirects to the Canva consent screen for ?org_id=.
// An optional ?redirect= is followed after the callback succeeds.
func (s *Server) canvaAuthorize(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil || !s.oauth.Configured() {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "canva integration is not configured"))
		return
	}
	q := r.URL.Query()
	orgID := q.Get("org_id")
	if err := errors.ValidateID(orgID); err != nil {
		s.writeError(w, r, err)
		return
	}
	redirect := q.Get("redirect")
	if redirect != "" && !localRedirect(redirect) {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "redirect must be a relative path"))
		return
	}

	verifier, challenge, err := canva.GeneratePKCE()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := session.NewToken()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state := session.State{OrgID: orgID, Verifier: verifier, Redirect: redirect, CreatedAt: time.Now()}
	if err := s.states.Put(r.Context(), token, state, session.StateTTL); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, s.oauth.AuthorizationURL(token, challenge), http.StatusFound)
}

type connectedResponse struct {
	Connected   bool   `json:"connected"`
	OrgID       string `json:"org_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// canvaCallback exchanges the authorization code and stores the
// credentials under the org's canva_config.
func (s *Server) canvaCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil || !s.oauth.Configured() {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "canva integration is not configured"))
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.writeError(w, r, errors.New(errors.ErrCodeUnauthorized, "canva authorization denied: %s", e))
		return
	}
	code, token := q.Get("code"), q.Get("state")
	if code == "" || token == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "code and state are required"))
		return
	}
	state, err := s.states.Take(r.Context(), token)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "unknown or expired state"))
		return
	}

	tok, err := s.oauth.ExchangeCode(r.Context(), code, state.Verifier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	creds := s.oauth.Credentials(tok, canva.Credentials{})
	if me, err := s.canvaClient(creds.AccessToken).Me(r.Context()); err == nil {
		creds.UserID, creds.DisplayName = me.UserID, me.DisplayName
	} else {
		s.logger.Warn("canva profile lookup failed", "org", state.OrgID, "error", err)
	}
	if err := s.svc.Store().SetOrgConfig(r.Context(), state.OrgID, store.ConfigCanva, creds); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("canva connected", "org", state.OrgID, "user", creds.DisplayName)

	if state.Redirect != "" {
		u, _ := url.Parse(state.Redirect)
		v := u.Query()
		v.Set("canva", "connected")
		u.RawQuery = v.Encode()
		http.Redirect(w, r, u.String(), http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, connectedResponse{Connected: true, OrgID: state.OrgID, DisplayName: creds.DisplayName})
}

// localRedirect accepts same-site paths only. Backslashes are refused since
// browsers read "/\host" as "//host".
func localRedirect(raw string) bool {
	if strings.ContainsRune(raw, '\\') {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && len(raw) > 0 && raw[0] == '/' && (len(raw) == 1 || raw[1] != '/')
}
