package engine

import "log/slog"

// Stats holds per-session counters.
type Stats struct {
	Tokens         int // tokens fed
	RootsCreated   int // pattern and exception roots, clones included
	RootsRejected  int
	Matches        int // reported matches after duplicate suppression
	MaxLiveRoots   int // peak of unresolved roots after a token
	MaxLiveWaiters int // peak of registered waiting candidates after a token
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tokens", s.Tokens),
		slog.Int("roots_created", s.RootsCreated),
		slog.Int("roots_rejected", s.RootsRejected),
		slog.Int("matches", s.Matches),
		slog.Int("max_live_roots", s.MaxLiveRoots),
		slog.Int("max_live_waiters", s.MaxLiveWaiters),
	)
}
