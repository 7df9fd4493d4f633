package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisdom-empire/internal/testutil"
)

func TestCreateAndAuthenticate(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	user, err := s.Create(ctx, " Admin@Wisdom.example ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "admin@wisdom.example", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	got, err := s.Authenticate(ctx, "admin@wisdom.example", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.Authenticate(ctx, "admin@wisdom.example", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody@wisdom.example", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Create(ctx, "admin@wisdom.example", "another password")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreate_Validates(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	_, err := s.Create(context.Background(), "not-an-email", "long enough")
	assert.Error(t, err)
	_, err = s.Create(context.Background(), "a@b.example", "short")
	assert.Error(t, err)
}
