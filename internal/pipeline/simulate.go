package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/windfield"
)

// ScenarioSimulator implements Simulator with a windfield.Builder.
type ScenarioSimulator struct {
	builder *windfield.Builder
	logger  *slog.Logger
}

// NewSimulator creates a ScenarioSimulator.
func NewSimulator(builder *windfield.Builder, logger *slog.Logger) *ScenarioSimulator {
	return &ScenarioSimulator{builder: builder, logger: logger}
}

func (s *ScenarioSimulator) Simulate(ctx context.Context, raw domain.RawScenario) ([]domain.OutputMessage, error) {
	sc, err := domain.ParseScenario(raw)
	if err != nil {
		return nil, err
	}

	res, err := s.builder.Run(ctx, sc)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OutputMessage, 0, len(res.Records))
	for _, rec := range res.Records {
		msg, err := domain.SerializeStationRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("serialize record %s/%s: %w", rec.ScenarioID, rec.StationID, err)
		}
		out = append(out, msg)
	}
	s.logger.Debug("scenario simulated",
		"scenario_id", sc.ID,
		"records", len(out),
		"warnings", len(res.Warnings),
	)
	return out, nil
}
