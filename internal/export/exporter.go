package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SinkResult is the outcome of one sink in an export run.
type SinkResult struct {
	Sink     string        `json:"sink"`
	Detail   string        `json:"detail,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Exporter fans a snapshot out to its sinks.
type Exporter struct {
	sinks []Sink
	log   zerolog.Logger
}

// NewExporter creates an exporter. Sinks run concurrently.
func NewExporter(log zerolog.Logger, sinks ...Sink) *Exporter {
	return &Exporter{sinks: sinks, log: log}
}

// Sinks returns the names of the configured sinks.
func (e *Exporter) Sinks() []string {
	names := make([]string, len(e.sinks))
	for i, s := range e.sinks {
		names[i] = s.Name()
	}
	return names
}

// Run writes snap to every sink concurrently. Results are returned in sink
// order for every sink that finished; the error is the first sink failure,
// which cancels the remaining sinks.
func (e *Exporter) Run(ctx context.Context, snap *Snapshot) ([]SinkResult, error) {
	if len(e.sinks) == 0 {
		return nil, fmt.Errorf("Exporter.Run: no export sinks configured")
	}

	results := make([]SinkResult, len(e.sinks))
	g, gctx := errgroup.WithContext(ctx)
	for i, sink := range e.sinks {
		g.Go(func() error {
			start := time.Now()
			detail, err := sink.Write(gctx, snap)

			res := SinkResult{Sink: sink.Name(), Detail: detail, Duration: time.Since(start)}
			log := e.log.With().Str("sink", sink.Name()).Str("user_id", snap.UserID).Logger()
			if err != nil {
				res.Error = err.Error()
				log.Error().Err(err).Msg("Export sink failed")
			} else {
				log.Info().Str("detail", detail).Dur("duration", res.Duration).Msg("Export sink completed")
			}

			results[i] = res
			return err
		})
	}

	err := g.Wait()
	if err != nil {
		return results, fmt.Errorf("Exporter.Run: %w", err)
	}
	return results, nil
}
