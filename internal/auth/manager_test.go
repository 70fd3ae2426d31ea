package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buzzrunner/internal/platform"
	"buzzrunner/internal/sessionstore"
	"buzzrunner/pkg/models"
)

type stubClient struct {
	loginErr   error
	refreshErr error
	importErr  error
	exportErr  error
	proxyErr   error

	loginCalls int
	twofas     []string
	imported   bool
	proxies    []string
}

func (c *stubClient) SetProxy(proxy string) error {
	c.proxies = append(c.proxies, proxy)
	return c.proxyErr
}

func (c *stubClient) Login(_ context.Context, _, _, twofa string) error {
	c.loginCalls++
	c.twofas = append(c.twofas, twofa)
	if c.imported {
		return c.refreshErr
	}
	return c.loginErr
}

func (c *stubClient) ExportSession() ([]byte, error) {
	if c.exportErr != nil {
		return nil, c.exportErr
	}
	return []byte(`{"session":"blob"}`), nil
}

func (c *stubClient) ImportSession(_ []byte) error {
	if c.importErr != nil {
		return c.importErr
	}
	c.imported = true
	return nil
}

func (c *stubClient) ResolveMediaID(_ context.Context, _ string) (string, error) { return "1", nil }
func (c *stubClient) Like(_ context.Context, _ string) error                     { return nil }
func (c *stubClient) Comment(_ context.Context, _, _ string) error               { return nil }
func (c *stubClient) RawRequest(_ context.Context, _ string, _ map[string]string) (map[string]any, error) {
	return map[string]any{"status": "ok"}, nil
}

func setup(t *testing.T, cl *stubClient) (*Manager, *sessionstore.Store) {
	t.Helper()
	store, err := sessionstore.New(t.TempDir())
	require.NoError(t, err)
	factory := func() platform.Client { return cl }
	return NewManager(factory, store, zerolog.Nop()), store
}

var acc = models.Account{Username: "alice", Password: "pw1"}

func TestAuthenticateFreshLoginPersistsSession(t *testing.T) {
	t.Parallel()
	cl := &stubClient{}
	m, store := setup(t, cl)

	got, err := m.Authenticate(context.Background(), acc, "")
	require.NoError(t, err)
	assert.Same(t, cl, got.(*stubClient))
	assert.Equal(t, 1, cl.loginCalls)
	assert.True(t, store.Exists("alice"))
}

func TestAuthenticatePassesTwoFactorCode(t *testing.T) {
	t.Parallel()
	cl := &stubClient{}
	m, _ := setup(t, cl)

	_, err := m.Authenticate(context.Background(), models.Account{Username: "bob", Password: "pw", TwoFA: "123456"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"123456"}, cl.twofas)
}

func TestAuthenticateFailureKinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		kind platform.Kind
		want string
	}{
		{name: "two factor", kind: platform.KindTwoFactorRequired, want: "two-factor code required"},
		{name: "challenge", kind: platform.KindChallengeRequired, want: "manual verification"},
		{name: "other", kind: platform.KindOther, want: "login failed"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cl := &stubClient{loginErr: &platform.Error{Kind: tt.kind, Op: "login"}}
			m, store := setup(t, cl)

			_, err := m.Authenticate(context.Background(), acc, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "[alice]")
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, tt.kind, platform.KindOf(err))
			assert.False(t, store.Exists("alice"))
		})
	}
}

func TestAuthenticateReusesStoredSession(t *testing.T) {
	t.Parallel()
	cl := &stubClient{}
	m, store := setup(t, cl)
	require.NoError(t, store.Save("alice", []byte(`{"session":"old"}`)))

	got, err := m.Authenticate(context.Background(), acc, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, cl.imported)
	// One refresh login on top of the restored session, no 2fa.
	assert.Equal(t, 1, cl.loginCalls)
	assert.Equal(t, []string{""}, cl.twofas)
}

func TestAuthenticateToleratesRefreshFailure(t *testing.T) {
	t.Parallel()
	cl := &stubClient{refreshErr: errors.New("token refresh rejected")}
	m, store := setup(t, cl)
	require.NoError(t, store.Save("alice", []byte(`{"session":"old"}`)))

	got, err := m.Authenticate(context.Background(), acc, "")
	require.NoError(t, err, "refresh failure must not invalidate a loadable session")
	require.NotNil(t, got)
	assert.True(t, store.Exists("alice"))
}

func TestAuthenticateDiscardsUnreadableBlob(t *testing.T) {
	t.Parallel()
	cl := &stubClient{importErr: errors.New("corrupt blob")}
	m, store := setup(t, cl)
	require.NoError(t, store.Save("alice", []byte("not json")))

	_, err := m.Authenticate(context.Background(), acc, "")
	require.NoError(t, err)
	// Full login happened and a fresh blob replaced the corrupt one.
	assert.Equal(t, 1, cl.loginCalls)
	assert.True(t, store.Exists("alice"))
	blob, err := store.Load("alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"session":"blob"}`, string(blob))
}

func TestAuthenticateProxyFailureIsNonFatal(t *testing.T) {
	t.Parallel()
	cl := &stubClient{proxyErr: errors.New("bad proxy")}
	m, _ := setup(t, cl)

	_, err := m.Authenticate(context.Background(), acc, "http://127.0.0.1:9999")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://127.0.0.1:9999"}, cl.proxies)
}

func TestSaveSessionSwallowsExportFailure(t *testing.T) {
	t.Parallel()
	cl := &stubClient{exportErr: errors.New("cannot serialize")}
	m, store := setup(t, cl)

	m.SaveSession("alice", cl)
	assert.False(t, store.Exists("alice"))
}
