package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeDecisionID computes a deterministic decision_id using SHA256.
// Formula: SHA256(user_id|event_type|timestamp|sequence)
// Returns hex-encoded hash (64 characters). Replaying the same event
// stream yields byte-identical audit rows.
func ComputeDecisionID(
	userID string,
	eventType string,
	timestamp int64,
	sequence uint64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		userID,
		eventType,
		timestamp,
		sequence,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
