package backtest

import (
	"fmt"
	"strings"
)

// ErrAllAssetsFailed means no constituent of the model produced usable
// history, so there is nothing to simulate.
type ErrAllAssetsFailed struct {
	Model  string
	Failed []string
}

func (e *ErrAllAssetsFailed) Error() string {
	if len(e.Failed) == 0 {
		return fmt.Sprintf("backtest %q: model has no constituents", e.Model)
	}
	return fmt.Sprintf("backtest %q: history unavailable for every constituent (%s)",
		e.Model, strings.Join(e.Failed, ", "))
}

// ErrReferenceDataMissing means no series could anchor the master
// timeline.
type ErrReferenceDataMissing struct{}

func (e *ErrReferenceDataMissing) Error() string {
	return "backtest: no reference series available to build a timeline"
}
