// Package ids produces SparkQ's short prefixed identifiers and
// human-friendly task codes (spec §4.5). Generation is purely local and
// never queries the database for uniqueness — collisions are
// astronomically unlikely at this system's scale. An id collision is not
// reported as a store.Conflict: the failed insert surfaces as the store's
// internal storage error.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// Prefix identifies the entity kind an id was minted for.
type Prefix string

const (
	Project   Prefix = "prj"
	Session   Prefix = "ses"
	Queue     Prefix = "que"
	Task      Prefix = "tsk"
	Prompt    Prefix = "prm"
	AuditEntr Prefix = "adt"
)

// New mints "<prefix>_<12 hex chars>" using google/uuid as the entropy
// source, stripped of dashes and truncated rather than hand-rolled
// crypto/rand formatting.
func New(p Prefix) string {
	return string(p) + "_" + entropy(12)
}

func entropy(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(hex) {
		n = len(hex)
	}
	return hex[:n]
}

// FriendlyCode derives a human-readable task code from the queue name
// plus a short random uppercase suffix, e.g. "BUILD-7A3F" (spec §4.2).
// Stable for the task's lifetime; callers retry with a fresh code on a
// uniqueness conflict within the queue.
func FriendlyCode(queueName string) string {
	base := strings.ToUpper(strings.TrimSpace(queueName))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, base)
	if base == "" {
		base = "TASK"
	}
	return base + "-" + strings.ToUpper(entropy(4))
}
