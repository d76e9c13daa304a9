package history_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/domain"
	"jarvis/internal/infra/history"
)

func exchange(i int) domain.Exchange {
	return domain.Exchange{ID: fmt.Sprintf("req-%d", i), Query: fmt.Sprintf("q%d", i)}
}

func TestMemory_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := history.NewMemory(10)

	for i := 1; i <= 3; i++ {
		require.NoError(t, m.Append(ctx, exchange(i)))
	}

	got, err := m.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "req-3", got[0].ID)
	assert.Equal(t, "req-2", got[1].ID)
}

func TestMemory_DropsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	m := history.NewMemory(3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Append(ctx, exchange(i)))
	}

	got, err := m.Recent(ctx, 10)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"req-5", "req-4", "req-3"}, ids)
}

func TestMemory_Empty(t *testing.T) {
	m := history.NewMemory(0)

	got, err := m.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
