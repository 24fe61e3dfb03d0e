package ranking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_TiedFirstSkipsSecond(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	entries := []Entry{
		{UserID: a, TotalMinutes: 100, DaysLogged: 2},
		{UserID: b, TotalMinutes: 100, DaysLogged: 2},
		{UserID: c, TotalMinutes: 140, DaysLogged: 2},
	}

	ranked := Rank(entries, Options{})
	require.Len(t, ranked, 3)

	assert.Equal(t, a, ranked[0].UserID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.True(t, ranked[0].IsWinner)
	assert.InDelta(t, 50.0, ranked[0].Average, 0.001)

	assert.Equal(t, b, ranked[1].UserID)
	assert.Equal(t, 1, ranked[1].Rank)
	assert.True(t, ranked[1].IsWinner)

	assert.Equal(t, c, ranked[2].UserID)
	assert.Equal(t, 3, ranked[2].Rank)
	assert.False(t, ranked[2].IsWinner)
	assert.InDelta(t, 70.0, ranked[2].Average, 0.001)
}

func TestRank_UnloggedEntriesAverageZero(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	entries := []Entry{
		{UserID: a, TotalMinutes: 0, DaysLogged: 0},
		{UserID: b, TotalMinutes: 0, DaysLogged: 0},
		{UserID: c, TotalMinutes: 45, DaysLogged: 3},
	}

	ranked := Rank(entries, Options{})
	require.Len(t, ranked, 3)

	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 1, ranked[1].Rank)
	assert.Zero(t, ranked[0].Average)
	assert.Zero(t, ranked[1].Average)
	assert.True(t, ranked[0].IsWinner)
	assert.True(t, ranked[1].IsWinner)

	assert.Equal(t, c, ranked[2].UserID)
	assert.Equal(t, 3, ranked[2].Rank)
	assert.False(t, ranked[2].IsWinner)
}

func TestRank_DropUnlogged(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	entries := []Entry{
		{UserID: a, TotalMinutes: 0, DaysLogged: 0},
		{UserID: b, TotalMinutes: 90, DaysLogged: 3},
	}

	ranked := Rank(entries, Options{DropUnlogged: true})
	require.Len(t, ranked, 1)
	assert.Equal(t, b, ranked[0].UserID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.True(t, ranked[0].IsWinner)
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	entries := []Entry{
		{UserID: a, TotalMinutes: 60, DaysLogged: 2},
		{UserID: b, TotalMinutes: 30, DaysLogged: 1},
		{UserID: c, TotalMinutes: 90, DaysLogged: 3},
	}

	ranked := Rank(entries, Options{})
	require.Len(t, ranked, 3)
	assert.Equal(t, a, ranked[0].UserID)
	assert.Equal(t, b, ranked[1].UserID)
	assert.Equal(t, c, ranked[2].UserID)
	for _, r := range ranked {
		assert.Equal(t, 1, r.Rank)
		assert.True(t, r.IsWinner)
	}
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil, Options{}))
}

func TestRank_SingleEntry(t *testing.T) {
	ranked := Rank([]Entry{{UserID: uuid.New(), TotalMinutes: 500, DaysLogged: 5}}, Options{})
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.True(t, ranked[0].IsWinner)
	assert.InDelta(t, 100.0, ranked[0].Average, 0.001)
}

func TestBoardLess_StreakDominates(t *testing.T) {
	high := BoardKey{Streak: 3, Average: 300}
	low := BoardKey{Streak: 2, Average: 10}

	assert.True(t, BoardLess(high, low))
	assert.False(t, BoardLess(low, high))
}

func TestBoardLess_AverageBreaksStreakTie(t *testing.T) {
	light := BoardKey{Streak: 2, Average: 90}
	heavy := BoardKey{Streak: 2, Average: 150}

	assert.True(t, BoardLess(light, heavy))
	assert.False(t, BoardLess(heavy, light))
}

func TestBoardLess_UsernameThenIDBreakRemainingTies(t *testing.T) {
	a := BoardKey{Streak: 1, Average: 50, Username: "alice"}
	b := BoardKey{Streak: 1, Average: 50, Username: "bob"}
	assert.True(t, BoardLess(a, b))

	id1 := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	id2 := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	x := BoardKey{Streak: 1, Average: 50, Username: "same", UserID: id1}
	y := BoardKey{Streak: 1, Average: 50, Username: "same", UserID: id2}
	assert.True(t, BoardLess(x, y))
	assert.False(t, BoardLess(y, x))
}
