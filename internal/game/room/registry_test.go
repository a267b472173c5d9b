package room

import (
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/muuzika/internal/apperrors"
)

func TestRegistry_CreateGetRemove(t *testing.T) {
	t.Parallel()

	rg := NewRegistry(NewCodeGenerator(6), 10, clockwork.NewFakeClock())

	r, err := rg.Create(testOptions(4), nil)
	require.NoError(t, err)
	assert.Len(t, r.Code, 6)
	assert.Equal(t, StatusInLobby, r.Status())
	assert.Zero(t, r.Len())

	assert.Same(t, r, rg.Get(r.Code))
	assert.Equal(t, 1, rg.Len())

	rg.Remove(r.Code)
	rg.Remove(r.Code)
	assert.Nil(t, rg.Get(r.Code))
	assert.Zero(t, rg.Len())
}

func TestRegistry_CreateRunsInitBeforePublish(t *testing.T) {
	t.Parallel()

	rg := NewRegistry(NewSequenceCodes("000001"), 10, clockwork.NewFakeClock())
	r, err := rg.Create(testOptions(4), func(r *Room) {
		_ = r.AddPlayer(&Player{Username: "alice", Connected: true})
	})
	require.NoError(t, err)
	assert.Equal(t, "000001", r.Code)
	assert.Equal(t, "alice", r.Leader())
}

func TestRegistry_RetriesOnCollision(t *testing.T) {
	t.Parallel()

	codes := NewSequenceCodes("111111", "111111", "222222")
	rg := NewRegistry(codes, 10, clockwork.NewFakeClock())

	first, err := rg.Create(testOptions(4), nil)
	require.NoError(t, err)
	second, err := rg.Create(testOptions(4), nil)
	require.NoError(t, err)

	assert.Equal(t, "111111", first.Code)
	assert.Equal(t, "222222", second.Code)
	assert.Equal(t, 3, codes.Calls())
}

func TestRegistry_CodeSpaceExhausted(t *testing.T) {
	t.Parallel()

	codes := NewSequenceCodes("111111")
	rg := NewRegistry(codes, 5, clockwork.NewFakeClock())

	_, err := rg.Create(testOptions(4), nil)
	require.NoError(t, err)

	_, err = rg.Create(testOptions(4), nil)
	assert.ErrorIs(t, err, apperrors.ErrCodeSpaceExhausted)
	assert.Equal(t, 6, codes.Calls())
	assert.Equal(t, 1, rg.Len())
}

func TestRegistry_ConcurrentCreateUniqueCodes(t *testing.T) {
	t.Parallel()

	rg := NewRegistry(NewCodeGenerator(6), 100, clockwork.NewFakeClock())

	const n = 200
	var wg sync.WaitGroup
	rooms := make([]*Room, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := rg.Create(testOptions(4), nil)
			if err == nil {
				rooms[i] = r
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, r := range rooms {
		require.NotNil(t, r)
		assert.False(t, seen[r.Code], "duplicate code %s", r.Code)
		seen[r.Code] = true
	}
	assert.Equal(t, n, rg.Len())
	assert.Len(t, rg.Rooms(), n)
}

func TestCodeGenerator(t *testing.T) {
	t.Parallel()

	code := NewCodeGenerator(8).Generate()
	assert.Len(t, code, 8)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
	assert.Len(t, NewCodeGenerator(0).Generate(), defaultCodeLength)
}
