package databases

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// reportNumber formats the human-readable number of a call
func reportNumber(id int64, receivedAt time.Time) string {
	return fmt.Sprintf("CFS-%d-%06d", receivedAt.UTC().Year(), id)
}

// newTrackingCode returns a short public code that does not reveal the call id
func newTrackingCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
