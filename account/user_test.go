package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	locked := time.Now().Add(time.Minute)
	token := "reset-token"
	u := &User{ID: "u1", AccountLockedUntil: &locked, PasswordResetToken: &token}

	c := u.Clone()
	require.NotNil(t, c)
	*c.AccountLockedUntil = locked.Add(time.Hour)
	*c.PasswordResetToken = "changed"

	assert.Equal(t, locked, *u.AccountLockedUntil)
	assert.Equal(t, "reset-token", *u.PasswordResetToken)
	assert.Nil(t, (*User)(nil).Clone())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "yogi@example.com", NormalizeEmail("  Yogi@Example.COM "))
}
