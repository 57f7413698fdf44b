package helper

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// chunkNamespace scopes deterministic chunk ids to this application.
var chunkNamespace = uuid.MustParse("7b7e6f3a-9c41-4efb-a1d2-5f0c8d9e2b10")

// DeterministicID derives a stable UUID from owner, source and position,
// so re-uploading the same document upserts the same rows.
func DeterministicID(ownerID, source string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s/%s/%d", ownerID, source, position))).String()
}

// Truncate cuts s to at most max bytes, replacing the tail with marker
// when a cut happens. The returned string never exceeds max.
func Truncate(s string, max int, marker string) string {
	if len(s) <= max {
		return s
	}
	if max <= len(marker) {
		return s[:max]
	}
	return s[:max-len(marker)] + marker
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}
