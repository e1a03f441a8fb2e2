package progress

import "lecturehub/internal/shared"

// AllComplete is the bulk toggle predicate: the scope is non-empty and every
// video in it has a completed record.
func AllComplete(videoIDs []string, records map[string]shared.Progress) bool {
	if len(videoIDs) == 0 {
		return false
	}
	for _, id := range videoIDs {
		if r, ok := records[id]; !ok || !r.Completed {
			return false
		}
	}
	return true
}

// BulkTarget decides the state a week or course toggle drives every video to.
// A fully complete scope is reset; anything else is marked complete.
func BulkTarget(videoIDs []string, records map[string]shared.Progress) bool {
	return !AllComplete(videoIDs, records)
}

// ItemError records one failed video in a bulk toggle.
type ItemError struct {
	VideoID string `json:"video_id"`
	Err     string `json:"error"`
}

// BulkResult is the outcome of a week or course toggle. Successful items are
// never rolled back when others fail.
type BulkResult struct {
	Completed bool        `json:"completed"`
	Marked    int         `json:"marked_count"`
	Failed    int         `json:"failed_count"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// Record adds one item outcome. A nil error with changed=false is a skipped item.
func (r *BulkResult) Record(videoID string, changed bool, err error) {
	switch {
	case err != nil:
		r.Failed++
		r.Errors = append(r.Errors, ItemError{VideoID: videoID, Err: err.Error()})
	case changed:
		r.Marked++
	}
}
