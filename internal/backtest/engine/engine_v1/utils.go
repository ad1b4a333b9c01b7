package engine

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/moznion/go-optional"
)

// resultFolder is <results>/<mode>[/<start>_<end>]/<data file stem>. The
// window segment only appears when the config bounds the run in time.
func (b *BacktestEngineV1) resultFolder(dataPath string) string {
	parts := []string{b.resultsFolder, string(b.config.Mode)}

	if b.config.StartTime.IsSome() || b.config.EndTime.IsSome() {
		parts = append(parts, windowLabel(b.config.StartTime)+"_"+windowLabel(b.config.EndTime))
	}

	stem := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))

	return filepath.Join(append(parts, stem)...)
}

func windowLabel(bound optional.Option[time.Time]) string {
	if bound.IsNone() {
		return "all"
	}

	return bound.Unwrap().Format("20060102")
}
