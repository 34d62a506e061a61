// internal/workers/catalog/write-item/envelope.go
package writeitem

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/chezona/chorom/internal/common/catalogindex"
)

var (
	ErrTaskIDExtraction = errors.New("TASK_ID_EXTRACTION_FAILED")
)

// TaskIDFromEnvelope reads the task id from a write response. Current
// servers answer with a task object; older ones with a map keyed by
// taskUid or updateId.
func TaskIDFromEnvelope(envelope interface{}) (string, error) {
	switch env := envelope.(type) {
	case *catalogindex.TaskInfo:
		if env != nil && env.TaskUID != "" {
			return env.TaskUID, nil
		}
	case catalogindex.TaskInfo:
		if env.TaskUID != "" {
			return env.TaskUID, nil
		}
	case map[string]interface{}:
		for _, key := range []string{"taskUid", "updateId"} {
			if id, ok := idString(env[key]); ok {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("%w: unrecognised envelope %T", ErrTaskIDExtraction, envelope)
}

func idString(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatInt(int64(id), 10), true
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	}
	return "", false
}
