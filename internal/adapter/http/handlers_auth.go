// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"petmatch/internal/adapter/backend"
	"petmatch/internal/app"
	"petmatch/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the single sign-on settings. RoleClaim and UserIDClaim
// name the ID token claims that carry the account kind and backend user id.
type OIDCConfig struct {
	Enabled      bool
	OAuth2Config oauth2.Config
	Verifier     *oidc.IDTokenVerifier
	RoleClaim    string
	UserIDClaim  string
}

var errMissingClaim = errors.New("missing claim")

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.sessions.Snapshot().IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, loginView, s.newView("Entrar"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	d := s.newView("Entrar")
	if !s.loginLimiter.Allow() {
		d.Error = "Muitas tentativas. Aguarde um instante."
		s.render(w, http.StatusTooManyRequests, loginView, d)
		return
	}
	if err := r.ParseForm(); err != nil {
		d.Error = "Formulário inválido."
		s.render(w, http.StatusBadRequest, loginView, d)
		return
	}
	d.Email = strings.TrimSpace(r.PostFormValue("email"))

	_, err := s.auth.SignIn(r.Context(), d.Email, r.PostFormValue("senha"))
	if err != nil {
		status, msg := loginFailure(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("sign in", zap.Error(err))
		}
		d.Error = msg
		s.render(w, status, loginView, d)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// loginFailure maps a sign-in error to a status and a message for the visitor.
func loginFailure(err error) (int, string) {
	var acct *backend.AccountError
	switch {
	case errors.Is(err, app.ErrCredentialsRequired):
		return http.StatusBadRequest, "Informe email e senha."
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Email ou senha inválidos."
	case errors.As(err, &acct):
		if acct.Message != "" {
			return http.StatusForbidden, acct.Message
		}
		return http.StatusForbidden, "Conta inativa ou aguardando aprovação."
	default:
		return http.StatusBadGateway, "Não foi possível entrar. Tente novamente."
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.SignOut(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, registerView, s.newView("Cadastrar"))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	d := s.newView("Cadastrar")
	if err := r.ParseForm(); err != nil {
		d.Error = "Formulário inválido."
		s.render(w, http.StatusBadRequest, registerView, d)
		return
	}
	reg := backend.Registration{
		Shelter:      r.PostFormValue("ong_protetor") != "",
		Name:         r.PostFormValue("nome"),
		Email:        r.PostFormValue("email"),
		Password:     r.PostFormValue("senha"),
		Phone:        r.PostFormValue("telefone"),
		Address:      r.PostFormValue("endereco"),
		Organization: r.PostFormValue("nome_organizacao"),
		Document:     r.PostFormValue("cnpj_cpf"),
	}
	d.Email = strings.TrimSpace(reg.Email)

	if reg.Email == "" || len(reg.Password) < 6 {
		d.Error = "Informe email e uma senha com pelo menos 6 caracteres."
		s.render(w, http.StatusBadRequest, registerView, d)
		return
	}
	if reg.Shelter && (strings.TrimSpace(reg.Organization) == "" || reg.Document == "") {
		d.Error = "ONGs precisam informar nome da organização e CNPJ/CPF."
		s.render(w, http.StatusBadRequest, registerView, d)
		return
	}

	msg, err := s.api.Register(r.Context(), reg)
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) && se.Status < http.StatusInternalServerError {
			d.Error = se.Message
			s.render(w, se.Status, registerView, d)
			return
		}
		s.log.Error("register", zap.Error(err))
		d.Error = "Não foi possível concluir o cadastro."
		s.render(w, http.StatusBadGateway, registerView, d)
		return
	}

	d = s.newView("Entrar")
	d.Notice = msg
	if d.Notice == "" {
		d.Notice = "Cadastro realizado. Faça login."
	}
	d.Email = strings.TrimSpace(reg.Email)
	s.render(w, http.StatusCreated, loginView, d)
}

func (s *Server) ssoEnabled() bool {
	return s.oidc != nil && s.oidc.Enabled
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if !s.ssoEnabled() {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode, // Lax required for cross-site redirect returns
		MaxAge:   300,
	})
	http.Redirect(w, r, s.oidc.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if !s.ssoEnabled() {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}

	state, err := r.Cookie("oauth_state")
	if err != nil || r.URL.Query().Get("state") != state.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", MaxAge: -1, Path: "/"})

	token, err := s.oidc.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.log.Warn("sso exchange", zap.Error(err))
		http.Error(w, "failed to exchange token", http.StatusBadGateway)
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token", http.StatusBadGateway)
		return
	}
	idToken, err := s.oidc.Verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		s.log.Warn("sso verify", zap.Error(err))
		http.Error(w, "failed to verify token", http.StatusUnauthorized)
		return
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, "failed to parse claims", http.StatusBadGateway)
		return
	}

	grant, err := grantFromClaims(rawIDToken, claims, s.oidc.RoleClaim, s.oidc.UserIDClaim)
	if err == nil {
		err = s.auth.Accept(r.Context(), grant)
	}
	if err != nil {
		s.log.Warn("sso sign in refused", zap.Error(err))
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// grantFromClaims builds a session grant from verified ID token claims. The
// user id claim may be a JSON number or a decimal string.
func grantFromClaims(rawIDToken string, claims map[string]any, roleClaim, idClaim string) (domain.Grant, error) {
	tag, _ := claims[roleClaim].(string)
	if tag == "" {
		return domain.Grant{}, fmt.Errorf("%w: %s", errMissingClaim, roleClaim)
	}
	role, err := domain.ParseRole(tag)
	if err != nil {
		return domain.Grant{}, err
	}

	grant := domain.Grant{Token: rawIDToken, Role: role}
	switch v := claims[idClaim].(type) {
	case float64:
		if v != float64(int64(v)) {
			return domain.Grant{}, fmt.Errorf("%w: %s is not an integer", errMissingClaim, idClaim)
		}
		grant.UserID, grant.HasUserID = int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.Grant{}, fmt.Errorf("%w: %s is not an integer", errMissingClaim, idClaim)
		}
		grant.UserID, grant.HasUserID = id, true
	default:
		return domain.Grant{}, fmt.Errorf("%w: %s", errMissingClaim, idClaim)
	}
	return grant, nil
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
