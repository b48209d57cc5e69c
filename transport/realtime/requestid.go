package realtime

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRequestID returns a correlation id of the form req_<unix ms>_<suffix>.
// The suffix is random; ids are unique with overwhelming probability.
func NewRequestID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), suffix)
}
