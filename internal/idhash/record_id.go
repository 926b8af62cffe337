// Package idhash computes deterministic record identifiers.
// Records re-derived from identical inputs get identical IDs, which lets
// append-only stores reject duplicates instead of silently double-writing.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeActionID computes a deterministic action_id using SHA256.
// Formula: SHA256(subject_key|action_type|executed_at)
// Returns hex-encoded hash (64 characters).
func ComputeActionID(subjectKey, actionType string, executedAt int64) string {
	return hash(fmt.Sprintf("%s|%s|%d", subjectKey, actionType, executedAt))
}

// ComputeDetectionID computes a deterministic detection_id using SHA256.
// Formula: SHA256(subject_key|RUG|detected_at)
func ComputeDetectionID(subjectKey string, detectedAt int64) string {
	return hash(fmt.Sprintf("%s|RUG|%d", subjectKey, detectedAt))
}

// ComputeTransitionID computes a deterministic transition_id using SHA256.
// Formula: SHA256(subject_key|from|to|occurred_at)
func ComputeTransitionID(subjectKey, from, to string, occurredAt int64) string {
	return hash(fmt.Sprintf("%s|%s|%s|%d", subjectKey, from, to, occurredAt))
}

func hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
