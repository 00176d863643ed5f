package scoring

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ItemError records a single neighborhood that failed to score.
type ItemError struct {
	NeighborhoodID string `json:"neighborhood_id"`
	Error          string `json:"error"`
}

// Distribution buckets scored neighborhoods by overall score.
type Distribution struct {
	High     int `json:"high"`     // >= 80
	Moderate int `json:"moderate"` // 60-79
	Low      int `json:"low"`      // 40-59
	Poor     int `json:"poor"`     // < 40
}

// BatchResult summarizes a batch scoring run.
type BatchResult struct {
	Processed    int          `json:"processed"`
	Updated      int          `json:"updated"`
	Errors       []ItemError  `json:"errors,omitempty"`
	Distribution Distribution `json:"distribution"`
}

// ScoreAll scores every listed neighborhood concurrently. A failure on one
// neighborhood is recorded and does not stop the rest of the batch.
func (e *Engine) ScoreAll(ctx context.Context, ids []string) (*BatchResult, error) {
	if len(ids) == 0 {
		all, err := e.store.ListNeighborhoods(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "scoring: list neighborhoods")
		}
		for _, n := range all {
			ids = append(ids, n.ID)
		}
	}

	var (
		mu     sync.Mutex
		result = BatchResult{Processed: len(ids)}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			m, err := e.ScoreNeighborhood(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, ItemError{
					NeighborhoodID: id,
					Error:          eris.ToString(err, false),
				})
				return nil
			}
			result.Updated++
			bucket(&result.Distribution, m.Overall)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scoring: batch")
	}

	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].NeighborhoodID < result.Errors[j].NeighborhoodID
	})
	zap.L().Info("batch scoring complete",
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("errors", len(result.Errors)))
	return &result, nil
}

func bucket(d *Distribution, overall float64) {
	switch {
	case overall >= 80:
		d.High++
	case overall >= 60:
		d.Moderate++
	case overall >= 40:
		d.Low++
	default:
		d.Poor++
	}
}
