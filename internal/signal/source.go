// Package signal turns a bar series into per-bar entry decisions.
package signal

import (
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"go.uber.org/zap"
)

// Source produces a SignalSeries aligned with the bars it was given.
// Implementations are pure: the same bars always yield the same series.
type Source interface {
	Name() string
	Generate(bars []types.Bar) (types.SignalSeries, error)
}

// NewSource builds the source selected by cfg.Source.
func NewSource(cfg Config, log *logger.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	switch cfg.Source {
	case SourceTypePriority, "":
		return NewPrioritySource(cfg, log), nil
	case SourceTypeWeighted:
		return NewWeightedSource(cfg, log), nil
	case SourceTypeConsensus:
		return NewConsensusSource(cfg, log), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedSignalSource, "unsupported signal source: %s", cfg.Source)
	}
}

// crosses returns the oscillator cross-up and cross-down flags for every bar.
// Bar 0 never crosses.
func crosses(bars []types.Bar) (up, down []bool) {
	up = make([]bool, len(bars))
	down = make([]bool, len(bars))

	for i := 1; i < len(bars); i++ {
		up[i] = types.CrossUp(bars[i-1], bars[i])
		down[i] = types.CrossDown(bars[i-1], bars[i])
	}

	return up, down
}

func logConflicts(log *logger.Logger, source string, series types.SignalSeries) {
	buys, sells, conflicts := series.Counts()
	log.Debug("signals generated",
		zap.String("source", source),
		zap.Int("buys", buys),
		zap.Int("sells", sells),
	)

	if conflicts > 0 {
		log.Warn("buy and sell fired on the same bar",
			zap.String("source", source),
			zap.Int("bars", conflicts),
		)
	}
}
