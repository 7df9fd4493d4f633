package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisdom-empire/internal/migrations"
	"wisdom-empire/internal/testutil"
)

func TestRun_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, migrations.Run(context.Background(), db))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM donations`))
	assert.Zero(t, n)
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	inserted, err := migrations.Seed(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 5, inserted)

	inserted, err = migrations.Seed(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM content_items WHERE category = 'proverbs'`))
	assert.Equal(t, 2, n)
}
