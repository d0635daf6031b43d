package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/pairlink/pairlink-backend/internal/models"
)

func TestRegistrySupersedesPriorLogin(t *testing.T) {
	// A repeat sign-in for the same user must leave exactly one registry
	// entry; the superseded session is detached so its engines do not keep
	// running under a dead token.
	reg := NewRegistry()
	s1, _ := signedInSession(t)
	s2, _ := signedInSession(t)

	reg.Put("u1", "tok1", s1)
	reg.Put("u1", "tok2", s2)

	require.Equal(t, 1, reg.Active())
	_, ok := reg.Get("tok1")
	require.False(t, ok)
	got, ok := reg.Get("tok2")
	require.True(t, ok)
	require.Same(t, s2, got)

	require.Equal(t, models.LoggedOut, s1.UserState().Get())
	require.Empty(t, s1.SelfID())
	require.Equal(t, models.LoggedIn, s2.UserState().Get())
}

func TestRegistryDeleteClearsUserIndex(t *testing.T) {
	reg := NewRegistry()
	s1, _ := signedInSession(t)
	reg.Put("u1", "tok1", s1)

	reg.Delete("tok1")
	require.Zero(t, reg.Active())

	// A later login for the same user must not detach the fresh session
	// through a stale user index entry.
	s2, _ := signedInSession(t)
	reg.Put("u1", "tok2", s2)
	require.Equal(t, models.LoggedIn, s2.UserState().Get())
	require.Equal(t, 1, reg.Active())
}

func TestDetachClosesEnginesWithoutRemoteWrites(t *testing.T) {
	sess, store := signedInSession(t)
	id := sess.SelfID()
	require.NoError(t, store.SaveUser(context.Background(), models.User{ID: id, Username: "alice", Status: models.StatusOnline}))

	sess.Detach()
	require.Equal(t, models.LoggedOut, sess.UserState().Get())
	require.Empty(t, sess.SelfID())

	// Unlike SignOut, the remote status record is untouched.
	saved, _, _ := store.GetUser(context.Background(), id)
	require.Equal(t, models.StatusOnline, saved.Status)
}
