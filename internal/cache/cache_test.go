package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadonfilm/enrich/internal/model"
)

func TestKey_NormalizesQuery(t *testing.T) {
	a := Key(model.SourceTypeWikipedia, "Humphrey Bogart obituary", "")
	b := Key(model.SourceTypeWikipedia, "  humphrey   BOGART obituary ", "")
	assert.Equal(t, a, b)

	c := Key(model.SourceTypeWikipedia, "Humphrey Bogart death", "")
	assert.NotEqual(t, a, c)
}

func TestKey_DistinguishesSourceAndDomain(t *testing.T) {
	base := Key(model.SourceTypeWikipedia, "james dean", "")
	otherSource := Key(model.SourceTypeObituary, "james dean", "")
	withDomain := Key(model.SourceTypeWikipedia, "james dean", "variety.com")

	assert.NotEqual(t, base, otherSource)
	assert.NotEqual(t, base, withDomain)
	assert.Equal(t, withDomain, Key(model.SourceTypeWikipedia, "james dean", "Variety.com"))
}

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	key := Key(model.SourceTypeWikipedia, "buster keaton", "")
	require.NoError(t, m.Set(ctx, key, []byte(`{"ok":true}`), time.Hour))

	e, err := m.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, []byte(`{"ok":true}`), e.Value)
}

func TestMemory_MissReturnsNil(t *testing.T) {
	e, err := NewMemory().Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestMemory_ExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory().WithNow(func() time.Time { return now })

	require.NoError(t, m.Set(ctx, "k1", []byte("v1"), time.Minute))
	require.NoError(t, m.Set(ctx, "k2", []byte("v2"), time.Hour))

	now = now.Add(10 * time.Minute)

	e, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, e, "expired entry should behave as a miss")

	e, err = m.Get(ctx, "k2")
	require.NoError(t, err)
	require.NotNil(t, e)

	purged, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(t.TempDir() + "/cache.db")
	require.NoError(t, err)
	defer s.Close()

	key := Key(model.SourceTypeIBDB, "gwen verdon", "ibdb.com")
	require.NoError(t, s.Set(ctx, key, []byte("payload"), time.Hour))

	e, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, []byte("payload"), e.Value)

	// Overwrite keeps a single row per key.
	require.NoError(t, s.Set(ctx, key, []byte("newer"), time.Hour))
	e, err = s.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, []byte("newer"), e.Value)
}

func TestSQLite_ExpiredIsMiss(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(t.TempDir() + "/cache.db")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "stale", []byte("old"), -time.Minute))

	e, err := s.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, e)

	purged, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_GetMiss(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT key, value, cached_at, expires_at FROM query_cache`).
		WithArgs("absent").
		WillReturnRows(pgxmock.NewRows([]string{"key", "value", "cached_at", "expires_at"}))

	e, err := p.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetUpserts(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO query_cache`).
		WithArgs("k", []byte("v"), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, p.Set(context.Background(), "k", []byte("v"), time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PurgeExpired(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM query_cache WHERE expires_at`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := p.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
