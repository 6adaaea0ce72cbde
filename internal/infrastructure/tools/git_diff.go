package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/logger"
)

// GitDiffTool inspects recent repository changes for the target service. The
// simulated variant replays a canned field-mapping regression; a production
// deployment would shell out to the forge API instead.
type GitDiffTool struct {
	logger logger.Logger
}

// NewGitDiffTool creates the git diff investigation tool.
func NewGitDiffTool(log logger.Logger) *GitDiffTool {
	return &GitDiffTool{logger: log}
}

var _ service.InvestigationTool = (*GitDiffTool)(nil)

// Name is the action string plans refer to.
func (t *GitDiffTool) Name() string {
	return "query_git_diff"
}

// Invoke returns the recent diff for the target repository. A target without
// a recent deploy yields empty evidence, which the investigator records as a
// failed step.
func (t *GitDiffTool) Invoke(ctx context.Context, tc service.ToolContext) (string, error) {
	var deploySource string
	for _, ev := range tc.Observation.RecentEvents {
		if ev.Kind == "deploy" {
			deploySource = ev.Source
			break
		}
	}
	if deploySource == "" {
		return "", fmt.Errorf("no recent deploy recorded for target %q", tc.Step.Target)
	}

	t.logger.Debug(ctx, "Fetching git diff",
		logger.String("step_id", tc.Step.StepID),
		logger.String("repo", deploySource),
	)

	// The orders ingestion regression: the upstream payload key was renamed
	// and the mapping silently started producing NULL user_id values.
	if strings.Contains(deploySource, "orders") || strings.Contains(tc.Step.Target, "orders") {
		return fmt.Sprintf(`repo: %s
commit 4f2c91a (35 minutes ago) "migrate to payload schema v2"

--- a/mappings/orders.yaml
+++ b/mappings/orders.yaml
@@ -12,7 +12,7 @@ fields:
   order_id: payload.orderId
-  user_id: payload.userId
+  user_id: payload.user_identifier
   total_cents: payload.total.cents
`, deploySource), nil
	}

	return fmt.Sprintf("repo: %s\nno changes in the last 24 hours", deploySource), nil
}
