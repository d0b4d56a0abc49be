// Package client talks to the /users API of the registration server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/atinyakov/GateKeeper/internal/models"
	"github.com/pkg/errors"
)

// ErrPasswordLeaked is returned by Register when the pre-flight breach
// check reports the password as leaked. The server is not contacted.
var ErrPasswordLeaked = errors.New("password has been leaked in a data breach")

// APIError is a non-2xx answer from the server. Message is the response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Client is a /users API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New returns a Client for the server at baseURL. A nil httpClient
// selects http.DefaultClient.
func New(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// List returns every registered user.
func (c *Client) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// IsPasswordLeaked asks the server whether password is known to be breached.
func (c *Client) IsPasswordLeaked(ctx context.Context, password string) (bool, error) {
	var leaked bool
	hdr := http.Header{"Content-Type": []string{"text/plain"}}
	if err := c.do(ctx, http.MethodPost, "/users/is-pw-leaked", strings.NewReader(password), hdr, &leaked); err != nil {
		return false, err
	}
	return leaked, nil
}

// Register checks the password first and then registers user, telling the
// server the breach check was already done.
func (c *Client) Register(ctx context.Context, user models.User) error {
	leaked, err := c.IsPasswordLeaked(ctx, user.Password)
	if err != nil {
		return errors.Wrap(err, "breach check")
	}
	if leaked {
		return ErrPasswordLeaked
	}

	body, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "could not marshal user")
	}
	hdr := http.Header{
		"Content-Type":          []string{"application/json"},
		"Password-Leak-Checked": []string{"true"},
	}
	return c.do(ctx, http.MethodPost, "/users/register", bytes.NewReader(body), hdr, nil)
}

// Authenticate returns the stored user if the credentials match.
func (c *Client) Authenticate(ctx context.Context, user models.User) (*models.User, error) {
	body, err := json.Marshal(user)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal user")
	}
	var out models.User
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	if err := c.do(ctx, http.MethodPost, "/users/authenticate", bytes.NewReader(body), hdr, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes username from the server.
func (c *Client) Delete(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(username), nil, nil, nil)
}

// do sends the request and decodes a JSON answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, hdr http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "could not create request")
	}
	for k, v := range hdr {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "could not read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrap(err, "could not decode response")
	}
	return nil
}
