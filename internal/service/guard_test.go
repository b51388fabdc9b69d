package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
)

func TestBearer(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := bearer(c.in)
		require.Equal(t, c.ok, ok, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestGuard_Authenticate(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u := e.user(t, "g1@example.com")
	res, err := e.auth.Login(ctx, model.PrincipalUser, "g1@example.com", testPassword, meta)
	require.NoError(t, err)
	header := "Bearer " + res.Tokens.AccessToken

	p, err := e.guard.Authenticate(ctx, header, model.PrincipalUser)
	require.NoError(t, err)
	require.Equal(t, model.Principal{ID: u.ID, Type: model.PrincipalUser}, p)

	id, err := e.guard.Resolve(ctx, header, model.PrincipalUser)
	require.NoError(t, err)
	claims, err := e.tokens.Verify(res.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, claims.SessionID, id.SessionID)

	_, err = e.guard.Authenticate(ctx, "", model.PrincipalUser)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = e.guard.Authenticate(ctx, "Bearer garbage", model.PrincipalUser)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	// wrong kind is an authorization failure, not a token failure
	_, err = e.guard.Authenticate(ctx, header, model.PrincipalAdmin)
	require.ErrorIs(t, err, errs.ErrForbidden)

	// refresh tokens are not access tokens
	_, err = e.guard.Authenticate(ctx, "Bearer "+res.Tokens.RefreshToken, model.PrincipalUser)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	e.clock.Advance(time.Hour)
	_, err = e.guard.Authenticate(ctx, header, model.PrincipalUser)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestGuard_NotEnrolled(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u := e.user(t, "g2@example.com")
	res, err := e.auth.Login(ctx, model.PrincipalUser, "g2@example.com", testPassword, meta)
	require.NoError(t, err)
	header := "Bearer " + res.Tokens.AccessToken

	require.NoError(t, e.admins.SetUserStatus(ctx, u.ID, model.StatusDisabled))
	_, err = e.guard.Authenticate(ctx, header, model.PrincipalUser)
	require.ErrorIs(t, err, errs.ErrForbidden)

	// a token for a principal that no longer exists
	tokens, err := e.tokens.Issue(newID(), model.PrincipalUser, newID())
	require.NoError(t, err)
	_, err = e.guard.Authenticate(ctx, "Bearer "+tokens.AccessToken, model.PrincipalUser)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestGuard_AuthorizeOwnership(t *testing.T) {
	t.Parallel()
	g := NewGuard(nil, nil)
	owner := newID()

	require.NoError(t, g.AuthorizeOwnership(model.Principal{ID: owner, Type: model.PrincipalUser}, owner))
	require.ErrorIs(t, g.AuthorizeOwnership(model.Principal{ID: newID(), Type: model.PrincipalUser}, owner), errs.ErrForbidden)
	require.NoError(t, g.AuthorizeOwnership(model.Principal{ID: newID(), Type: model.PrincipalAdmin}, owner))
}
