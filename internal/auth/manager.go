// Package auth establishes authenticated platform clients, reusing
// persisted sessions when possible.
package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"buzzrunner/internal/platform"
	"buzzrunner/internal/sessionstore"
	"buzzrunner/pkg/models"
)

// Manager logs accounts in. Failures are account-scoped; one account's
// login problem never aborts anything beyond that account.
type Manager struct {
	factory platform.Factory
	store   *sessionstore.Store
	log     zerolog.Logger
}

func NewManager(factory platform.Factory, store *sessionstore.Store, log zerolog.Logger) *Manager {
	return &Manager{factory: factory, store: store, log: log}
}

// Authenticate returns a ready-to-use client for the account.
//
// A persisted session blob is preferred over a credential login: the
// blob is imported and a token refresh is attempted, but refresh
// failure is tolerated — only a blob that cannot be loaded is discarded
// (and the flow falls through to a full login).
func (m *Manager) Authenticate(ctx context.Context, acc models.Account, proxy string) (platform.Client, error) {
	log := m.log.With().Str("user", acc.Username).Logger()
	cl := m.factory()

	if proxy != "" {
		if err := cl.SetProxy(proxy); err != nil {
			log.Warn().Err(err).Str("proxy", proxy).Msg("failed to set proxy")
		} else {
			log.Info().Str("proxy", proxy).Msg("proxy set")
		}
	}

	if m.store.Exists(acc.Username) {
		if cl, ok := m.restoreSession(ctx, cl, acc, log); ok {
			return cl, nil
		}
	}

	if err := cl.Login(ctx, acc.Username, acc.Password, acc.TwoFA); err != nil {
		return nil, loginError(acc.Username, err)
	}

	if err := m.persist(acc.Username, cl); err != nil {
		log.Warn().Err(err).Msg("failed to persist session")
	} else {
		log.Info().Msg("login succeeded, session persisted")
	}
	return cl, nil
}

// restoreSession tries to reuse the persisted blob. It reports false
// when the blob is unusable and a full login should happen instead.
func (m *Manager) restoreSession(ctx context.Context, cl platform.Client, acc models.Account, log zerolog.Logger) (platform.Client, bool) {
	blob, err := m.store.Load(acc.Username)
	if err == nil {
		err = cl.ImportSession(blob)
	}
	if err != nil {
		log.Warn().Err(err).Msg("discarding unreadable session blob")
		if rmErr := m.store.Remove(acc.Username); rmErr != nil {
			log.Warn().Err(rmErr).Msg("failed to remove session blob")
		}
		return nil, false
	}

	// Refresh tokens on top of the restored session. A failed refresh
	// is tolerated; the stored session is still considered usable.
	if err := cl.Login(ctx, acc.Username, acc.Password, ""); err != nil {
		log.Debug().Err(err).Msg("session refresh failed, continuing with stored session")
	}
	log.Info().Msg("session restored from store")
	return cl, true
}

// SaveSession persists the client's current session state. Best-effort;
// failures are logged and swallowed.
func (m *Manager) SaveSession(username string, cl platform.Client) {
	if err := m.persist(username, cl); err != nil {
		m.log.Warn().Err(err).Str("user", username).Msg("failed to persist session")
	}
}

func (m *Manager) persist(username string, cl platform.Client) error {
	blob, err := cl.ExportSession()
	if err != nil {
		return fmt.Errorf("export session: %w", err)
	}
	return m.store.Save(username, blob)
}

// loginError maps the platform failure kind to a distinct, readable
// account-scoped error.
func loginError(username string, err error) error {
	switch platform.KindOf(err) {
	case platform.KindTwoFactorRequired:
		return fmt.Errorf("[%s] two-factor code required; add it to the account line as username,password,2fa: %w", username, err)
	case platform.KindChallengeRequired:
		return fmt.Errorf("[%s] manual verification (challenge) required before this account can be used: %w", username, err)
	default:
		return fmt.Errorf("[%s] login failed: %w", username, err)
	}
}
