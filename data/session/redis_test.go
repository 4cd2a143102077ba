package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/internal/model"
)

func TestRedisSession(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisSession(client, &config.Config{SessionExpiration: time.Hour})

	_, err := s.GetSession(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	want := model.Session{
		State:  model.ExpectingTransactionForm,
		Filter: model.Filter{Owner: "Alice", StartDate: &start, Search: "app"},
		Page:   2,
	}
	require.NoError(t, s.SetSession(ctx, "42", want))

	got, err := s.GetSession(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, want.State, got.State)
	assert.Equal(t, want.Page, got.Page)
	assert.Equal(t, "Alice", got.Filter.Owner)
	require.NotNil(t, got.Filter.StartDate)
	assert.True(t, start.Equal(*got.Filter.StartDate))
	assert.Nil(t, got.Filter.EndDate)

	assert.Equal(t, time.Hour, mr.TTL("session:42"))

	require.NoError(t, s.DeleteSession(ctx, "42"))
	_, err = s.GetSession(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)
}
