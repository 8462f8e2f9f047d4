package syncengine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/okui/taskdeck/internal/domain"
)

// contentHash fingerprints the remote copy of a task. The hash is stored per
// external ID after each pull so an unchanged remote record can be skipped on
// the next pass without touching the store.
func contentHash(t domain.ExternalTask) string {
	content, err := json.Marshal(t)
	if err != nil {
		// ExternalTask contains only marshalable fields.
		return ""
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
