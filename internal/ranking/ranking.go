package ranking

import (
	"sort"

	"github.com/google/uuid"
)

// Entry is one competitor's raw totals going into a challenge ranking.
type Entry struct {
	ParticipantID int64
	UserID        uuid.UUID
	TotalMinutes  int
	DaysLogged    int
}

// Ranked is an Entry with its computed average, competition rank and
// winner flag.
type Ranked struct {
	Entry
	Average  float64
	Rank     int
	IsWinner bool
}

type Options struct {
	// DropUnlogged removes entries with zero logged days instead of ranking
	// them at an average of zero. Finalization keeps them (a participant who
	// never logged is indistinguishable from one who used zero minutes,
	// which is what a full-abstinence challenge wants); live challenge
	// boards drop them.
	DropUnlogged bool
}

// Rank orders entries by ascending average minutes and assigns competition
// ranks: tied averages share a rank and the next distinct average takes
// 1 + the number of strictly better entries, so a two-way tie for first is
// followed by rank 3. Every entry at the minimum average is a winner.
// Sorting is stable, equal averages keep their input order. An empty input
// returns an empty slice.
func Rank(entries []Entry, opts Options) []Ranked {
	ranked := make([]Ranked, 0, len(entries))
	for _, e := range entries {
		if opts.DropUnlogged && e.DaysLogged == 0 {
			continue
		}
		avg := 0.0
		if e.DaysLogged > 0 {
			avg = float64(e.TotalMinutes) / float64(e.DaysLogged)
		}
		ranked = append(ranked, Ranked{Entry: e, Average: avg})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Average < ranked[j].Average })

	for i := range ranked {
		if i > 0 && ranked[i].Average == ranked[i-1].Average {
			ranked[i].Rank = ranked[i-1].Rank
		} else {
			ranked[i].Rank = i + 1
		}
		ranked[i].IsWinner = ranked[i].Rank == 1
	}
	return ranked
}

// BoardKey is the ordering key for the global monthly leaderboard, which
// ranks differently from challenges: streak first, usage second.
type BoardKey struct {
	Streak   int
	Average  float64
	Username string
	UserID   uuid.UUID
}

// BoardLess orders global-board entries: streak descending, then average
// minutes ascending, then username ascending, with the user id as a final
// deterministic key. The board assigns sequential ranks 1..N in this order;
// ties never share a rank there.
func BoardLess(a, b BoardKey) bool {
	if a.Streak != b.Streak {
		return a.Streak > b.Streak
	}
	if a.Average != b.Average {
		return a.Average < b.Average
	}
	if a.Username != b.Username {
		return a.Username < b.Username
	}
	return a.UserID.String() < b.UserID.String()
}
