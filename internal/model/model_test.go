package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSession_Active(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now.Add(time.Minute)}
	require.True(t, s.Active(now))
	require.False(t, s.Active(now.Add(time.Minute)), "expiresAt must be strictly after now")

	revoked := now.Add(-time.Second)
	s.RevokedAt = &revoked
	require.False(t, s.Active(now))
}

func TestAccount_Enrolled(t *testing.T) {
	t.Parallel()

	var nilAcc *Account
	require.False(t, nilAcc.Enrolled())

	a := &Account{Status: StatusActive}
	require.True(t, a.Enrolled())

	a.Status = StatusDisabled
	require.False(t, a.Enrolled())

	del := time.Now()
	a = &Account{Status: StatusActive, DeletedAt: &del}
	require.False(t, a.Enrolled())
}

func TestDeletedTodoLog_Readable(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := &DeletedTodoLog{}
	require.True(t, l.Readable(now.AddDate(50, 0, 0)))

	exp := now.Add(24 * time.Hour)
	l.RetentionExpiresAt = &exp
	require.True(t, l.Readable(now))
	require.False(t, l.Readable(exp))
}

func TestPrincipalType(t *testing.T) {
	t.Parallel()

	require.True(t, PrincipalUser.Valid())
	require.True(t, PrincipalAdmin.Valid())
	require.False(t, PrincipalType("root").Valid())
	require.True(t, Principal{Type: PrincipalAdmin}.IsAdmin())
	require.False(t, Principal{Type: PrincipalUser}.IsAdmin())
}

func TestOptional_UnmarshalDistinguishesNullFromOmitted(t *testing.T) {
	var p struct {
		Title       Optional[string] `json:"title"`
		Description Optional[string] `json:"description"`
		Done        Optional[bool]   `json:"done"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","description":null}`), &p))

	require.True(t, p.Title.Set)
	require.Equal(t, "x", *p.Title.Value)
	require.True(t, p.Description.Set)
	require.Nil(t, p.Description.Value)
	require.False(t, p.Done.Set)

	require.Equal(t, Optional[int]{Set: true}, Null[int]())
	require.Equal(t, 3, *Some(3).Value)
}
