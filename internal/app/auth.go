package app

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/db"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/models"
	"github.com/google/uuid"
)

// The app has a single local user with a fixed credential pair.
const (
	Username = "admin"
	Password = "admin123"
)

// AuthService owns the session.
type AuthService struct {
	state *State
	store db.Store
	log   *slog.Logger
}

func NewAuthService(state *State, store db.Store, log *slog.Logger) *AuthService {
	return &AuthService{state: state, store: store, log: log}
}

// Login checks the credentials (exact, case-sensitive) and issues a fresh
// token. A failed store write still leaves the user logged in for this
// process; it is returned as a *StorageError next to the session.
func (a *AuthService) Login(ctx context.Context, username, password string) (models.Session, error) {
	if username != Username || password != Password {
		mtxLogins.WithLabelValues("rejected").Inc()
		a.log.Info("login rejected", slog.String("username", username))
		return models.Session{}, ErrInvalidCredentials
	}

	// UUIDv7 embeds a millisecond timestamp plus random bits.
	id, err := uuid.NewV7()
	if err != nil {
		return models.Session{}, fmt.Errorf("generate session token: %w", err)
	}
	sess := models.Session{Token: id.String(), IsAuthenticated: true}
	a.state.setSession(sess)
	mtxLogins.WithLabelValues("ok").Inc()
	a.log.Info("user logged in")

	if err := a.store.Set(ctx, db.KeyAuthToken, sess.Token); err != nil {
		mtxStorageErrors.WithLabelValues("set").Inc()
		return sess, &StorageError{Op: "set", Key: db.KeyAuthToken, Err: err}
	}
	return sess, nil
}

// RestoreSession picks up a token persisted by an earlier process. It never
// fails: an unreadable store means "not logged in".
func (a *AuthService) RestoreSession(ctx context.Context) models.Session {
	token, ok, err := a.store.Get(ctx, db.KeyAuthToken)
	if err != nil {
		mtxStorageErrors.WithLabelValues("get").Inc()
		a.log.Warn("could not read session token", slog.Any("error", err))
	}

	var sess models.Session
	if err == nil && ok && token != "" {
		sess = models.Session{Token: token, IsAuthenticated: true}
	}
	a.state.setSession(sess)
	return sess
}

// Logout drops the session. Calling it while logged out is a no-op.
func (a *AuthService) Logout(ctx context.Context) {
	if a.state.Session().IsAuthenticated {
		a.log.Info("user logged out")
	}
	a.state.setSession(models.Session{})

	if err := a.store.Remove(ctx, db.KeyAuthToken); err != nil {
		mtxStorageErrors.WithLabelValues("remove").Inc()
		a.log.Warn("could not delete session token", slog.Any("error", err))
	}
}

// Validate reports whether token belongs to the current session.
func (a *AuthService) Validate(token string) bool {
	sess := a.state.Session()
	if !sess.IsAuthenticated || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(sess.Token)) == 1
}
