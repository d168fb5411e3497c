// Package backend is the HTTP client for the marketplace REST API: login,
// registration and the adoption chat assistant.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"petmatch/internal/domain"

	"go.uber.org/zap"
)

// AccountError is returned when the backend refuses a known account, e.g. an
// inactive user or a shelter that is still awaiting approval.
type AccountError struct {
	Message string
}

func (e *AccountError) Error() string {
	return "account refused: " + e.Message
}

// StatusError is any other non-success response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend status %d", e.Status)
	}
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
}

// Client talks to the marketplace API rooted at baseURL (e.g. http://127.0.0.1:5000/api).
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

var _ domain.Authenticator = (*Client)(nil)

// NewClient creates a new backend API client.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	UserID      *int64 `json:"user_id"`
	Message     string `json:"message"`
}

// Authenticate exchanges credentials for an access token, role and user id.
func (c *Client) Authenticate(ctx context.Context, creds domain.Credentials) (domain.Grant, error) {
	var resp loginResponse
	err := c.postJSON(ctx, "/login/usuario", map[string]string{
		"email": creds.Email,
		"senha": creds.Password,
	}, &resp)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			switch se.Status {
			case http.StatusBadRequest:
				return domain.Grant{}, domain.ErrCredentialsRequired
			case http.StatusUnauthorized:
				return domain.Grant{}, domain.ErrInvalidCredentials
			case http.StatusForbidden:
				return domain.Grant{}, &AccountError{Message: se.Message}
			}
		}
		return domain.Grant{}, err
	}
	if resp.AccessToken == "" {
		return domain.Grant{}, errors.New("login response without access_token")
	}

	grant := domain.Grant{Token: resp.AccessToken, Message: resp.Message}
	roleTag := resp.Role
	if resp.UserID != nil {
		grant.UserID, grant.HasUserID = *resp.UserID, true
	}

	// Older backends omit role or user_id from the body; the token identity carries both.
	if roleTag == "" || !grant.HasUserID {
		if id, ok := TokenIdentity(resp.AccessToken); ok {
			if roleTag == "" {
				roleTag = id.Role
			}
			if !grant.HasUserID && id.HasID {
				grant.UserID, grant.HasUserID = id.ID, true
			}
		}
	}

	role, err := domain.ParseRole(roleTag)
	if err != nil {
		return domain.Grant{}, err
	}
	grant.Role = role
	return grant, nil
}

// Registration is a sign-up request. Shelter registrations need
// Organization and Document and must be approved before they can log in.
type Registration struct {
	Shelter      bool
	Name         string
	Email        string
	Password     string
	Phone        string
	Address      string
	Organization string
	Document     string
}

// Register creates an account and returns the backend's confirmation message.
func (c *Client) Register(ctx context.Context, reg Registration) (string, error) {
	body := map[string]string{
		"email":    strings.TrimSpace(reg.Email),
		"senha":    reg.Password,
		"telefone": reg.Phone,
		"endereco": strings.TrimSpace(reg.Address),
	}
	if reg.Shelter {
		body["role"] = domain.RoleShelter.String()
		body["nome_organizacao"] = strings.TrimSpace(reg.Organization)
		body["cnpj_cpf"] = reg.Document
	} else {
		body["role"] = domain.RoleUser.String()
		body["nome"] = strings.TrimSpace(reg.Name)
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := c.postJSON(ctx, "/register/usuario", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ChatMessage is one line sent to the adoption assistant.
type ChatMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	UserID    *int64 `json:"userId"`
}

// Chat forwards a message to the recommendation service and returns its reply.
func (c *Client) Chat(ctx context.Context, msg ChatMessage) (string, error) {
	var resp struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/chat", msg, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("backend request %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.log.Debug("backend response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	if resp.StatusCode == http.StatusNoContent || out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
