package classify

import (
	"strings"

	"bidsify/internal/textutil"
)

const (
	taskMarker   = "task"
	fallbackTask = "task"
)

func foldID(id string) string {
	return textutil.Fold(id)
}

// detectTask extracts the task name from folded tokens. An explicit task
// marker wins ("task_rest" or "task-rest"); otherwise the token before the
// first token containing the functional marker is used.
func detectTask(tokens []string) string {
	for i, token := range tokens {
		if token == taskMarker && i+1 < len(tokens) {
			if label := textutil.SanitizeLabel(tokens[i+1]); label != "" {
				return label
			}
		}
		if name, ok := strings.CutPrefix(token, taskMarker+"-"); ok {
			if label := textutil.SanitizeLabel(name); label != "" {
				return label
			}
		}
	}
	for i, token := range tokens {
		if !strings.Contains(token, functionalMarker) {
			continue
		}
		if i == 0 {
			break
		}
		if label := textutil.SanitizeLabel(tokens[i-1]); label != "" {
			return label
		}
		break
	}
	return fallbackTask
}

// task resolves the task key for one series: the forced task when set,
// otherwise the detected one. Renames apply later to the whole task.
func (o *resolvedOptions) task(m Match) string {
	if o.forceTask != "" {
		return o.forceTask
	}
	return detectTask(m.Tokens)
}
