package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/logger"
)

// BaselineMonitorTool re-reads the cycle's observation for the target table
// and reports every metric against its baseline. It is the cheap first step
// of most plans because it needs no external system.
type BaselineMonitorTool struct {
	logger logger.Logger
}

// NewBaselineMonitorTool creates the baseline monitor investigation tool.
func NewBaselineMonitorTool(log logger.Logger) *BaselineMonitorTool {
	return &BaselineMonitorTool{logger: log}
}

var _ service.InvestigationTool = (*BaselineMonitorTool)(nil)

// Name is the action string plans refer to.
func (t *BaselineMonitorTool) Name() string {
	return "check_baseline_metrics"
}

// Invoke compares the observed metrics for the target table to the rolling
// baseline captured in the observation package.
func (t *BaselineMonitorTool) Invoke(ctx context.Context, tc service.ToolContext) (string, error) {
	target := tc.Step.Target
	// Targets may name a column as table.column; the table part selects the
	// metrics slice.
	table := target
	if idx := strings.IndexByte(target, '.'); idx > 0 {
		table = target[:idx]
	}

	for _, m := range tc.Observation.Tables {
		if m.Table != table {
			continue
		}
		if m.SkipError != "" {
			return "", fmt.Errorf("table %q was skipped this cycle: %s", table, m.SkipError)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "baseline check for %q:\n", table)
		fmt.Fprintf(&b, "  row_count: observed=%d baseline=%d\n", m.RowCount, m.BaselineRowCount)
		fmt.Fprintf(&b, "  freshness_minutes: %d\n", m.FreshnessMinutes)
		for _, col := range m.Columns {
			baseline := m.BaselineNullRates[col.Name]
			marker := ""
			if col.NullRate > baseline {
				marker = "  <-- above baseline"
			}
			fmt.Fprintf(&b, "  null_rate %s.%s: observed=%.3f baseline=%.3f%s\n",
				table, col.Name, col.NullRate, baseline, marker)
		}

		t.logger.Debug(ctx, "Baseline check completed",
			logger.String("step_id", tc.Step.StepID),
			logger.String("table", table),
		)
		return b.String(), nil
	}

	return "", fmt.Errorf("table %q not present in this cycle's observation", table)
}
