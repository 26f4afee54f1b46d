package dummy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupProfile(t *testing.T) {
	for _, name := range []string{"instant", "fast", "medium", "slow", "spike", "error"} {
		_, err := LookupProfile(name)
		assert.NoError(t, err, name)
	}

	_, err := LookupProfile("glacial")
	assert.ErrorIs(t, err, ErrUnknownProfile)
	assert.Len(t, Profiles(), 6)
}

func TestDatabase_FastProfileLatency(t *testing.T) {
	p, err := LookupProfile("fast")
	require.NoError(t, err)
	db := New(p, WithSeed(7))

	ctx := context.Background()
	conn, err := db.Connect(ctx)
	require.NoError(t, err)

	res := db.Execute(ctx, conn, 3)
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.GreaterOrEqual(t, res.Latency, 10*time.Millisecond)
}

func TestDatabase_ErrorProfileIsDeterministicPerQuery(t *testing.T) {
	p, err := LookupProfile("error")
	require.NoError(t, err)
	db := New(p, WithSeed(42))
	ctx := context.Background()

	failed := 0
	for id := 0; id < 200; id++ {
		first := db.Execute(ctx, nil, id)
		second := db.Execute(ctx, nil, id)
		assert.Equal(t, first.Success, second.Success, "query id %d", id)
		if !first.Success {
			failed++
		}
	}
	assert.Greater(t, failed, 20)
	assert.Less(t, failed, 140)
}

func TestDatabase_QueryTimeout(t *testing.T) {
	p, err := LookupProfile("slow")
	require.NoError(t, err)
	db := New(p)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := db.Execute(ctx, nil, 1)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, res.Latency, time.Second)
}

func TestDatabase_Down(t *testing.T) {
	p, err := LookupProfile("instant")
	require.NoError(t, err)

	_, err = New(p, Down()).Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnRefused)
}
