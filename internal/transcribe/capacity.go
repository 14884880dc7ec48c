package transcribe

import (
	"errors"
	"strings"
)

// capacityMarkers are the messages local backends print when the model does
// not fit in memory.
var capacityMarkers = []string{
	"metal::malloc",
	"maximum allowed buffer size",
	"out of memory",
}

// IsCapacityError reports whether err means the input was too large for the
// backend to process in one pass. It is the only place that decides whether
// the segmented fallback runs.
func IsCapacityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCapacity) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range capacityMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
