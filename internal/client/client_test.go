package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atinyakov/GateKeeper/internal/breach"
	"github.com/atinyakov/GateKeeper/internal/models"
	"github.com/atinyakov/GateKeeper/internal/repository"
	userhttp "github.com/atinyakov/GateKeeper/internal/server/handler/http"
	"github.com/atinyakov/GateKeeper/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, leaked ...string) *Client {
	t.Helper()
	svc := service.NewUserService(repository.NewMemoryUserRepository(), breach.NewStatic(leaked...), nil, nil)
	router := userhttp.NewRouter(&userhttp.UserHandler{UserService: svc}, prometheus.NewRegistry(), zap.NewNop())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return New(srv.Client(), srv.URL+"/")
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestServer(t, "123456")

	users, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, c.Register(ctx, models.User{Username: "alice", Password: "S3cr3t!"}))

	err = c.Register(ctx, models.User{Username: "alice", Password: "other-pass"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, userhttp.MsgUserExists, apiErr.Message)

	err = c.Register(ctx, models.User{Username: "bob", Password: "123456"})
	assert.ErrorIs(t, err, ErrPasswordLeaked)

	u, err := c.Authenticate(ctx, models.User{Username: "alice", Password: "S3cr3t!"})
	require.NoError(t, err)
	assert.Equal(t, &models.User{Username: "alice", Password: "S3cr3t!"}, u)

	_, err = c.Authenticate(ctx, models.User{Username: "alice", Password: "nope"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	users, err = c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{{Username: "alice"}}, users)

	require.NoError(t, c.Delete(ctx, "alice"))
	_, err = c.Authenticate(ctx, models.User{Username: "alice", Password: "S3cr3t!"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, userhttp.MsgUserNotFound, apiErr.Message)
}

func TestClient_DeleteDecodesUsernameOnce(t *testing.T) {
	ctx := context.Background()
	c := newTestServer(t)

	for _, name := range []string{"x%41", "xA", "a/b", "a", "a/b%41"} {
		require.NoError(t, c.Register(ctx, models.User{Username: name, Password: "pw-" + name}))
	}

	require.NoError(t, c.Delete(ctx, "x%41"))
	require.NoError(t, c.Delete(ctx, "a/b"))
	require.NoError(t, c.Delete(ctx, "a/b%41"))

	users, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{{Username: "xA"}, {Username: "a"}}, users)

	u, err := c.Authenticate(ctx, models.User{Username: "xA", Password: "pw-xA"})
	require.NoError(t, err)
	assert.Equal(t, "xA", u.Username)
}

func TestClient_EmptyPasswordRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestServer(t)

	require.NoError(t, c.Register(ctx, models.User{Username: "u", Password: ""}))
	u, err := c.Authenticate(ctx, models.User{Username: "u", Password: ""})
	require.NoError(t, err)
	assert.Equal(t, &models.User{Username: "u", Password: ""}, u)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(nil, base)
	_, err := c.List(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestShell(t *testing.T) {
	c := newTestServer(t, "123456")
	in := strings.NewReader(strings.Join([]string{
		"help",
		"list",
		"register alice S3cr3t!",
		"register bob 123456",
		"leaked 123456",
		"login alice S3cr3t!",
		"login alice",
		"delete alice",
		"list",
		"bogus",
		"exit",
		"list",
	}, "\n"))
	var out bytes.Buffer

	Shell(context.Background(), c, in, &out)

	got := out.String()
	assert.Contains(t, got, shellHelp)
	assert.Equal(t, 2, strings.Count(got, "No users registered"))
	assert.Contains(t, got, "Registration successful")
	assert.Contains(t, got, ErrPasswordLeaked.Error())
	assert.Contains(t, got, "true")
	assert.Contains(t, got, `"username": "alice"`)
	assert.Contains(t, got, "Usage: login <user> <password>")
	assert.Contains(t, got, "User deleted")
	assert.Contains(t, got, "Unknown command")
	assert.True(t, strings.HasSuffix(got, "Bye\n"))
}
