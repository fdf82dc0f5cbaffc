package strategies

import "github.com/rustyeddy/barsim/market"

// Noop emits nothing; a run with it is flat from start to end.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Generate(*market.Series) ([]market.Signal, error) { return nil, nil }
