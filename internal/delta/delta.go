// Package delta computes which scraped codes are new relative to the known set.
package delta

import (
	"time"

	"github.com/pauljones0/shift-code-watcher/internal/models"
)

// Result is the outcome of Diff.
type Result struct {
	// New holds records whose code was not in the known set, one per code,
	// in order of first appearance on the page.
	New []models.CodeRecord
	// Updated is the known set with every extracted code merged in.
	Updated models.KnownSet
}

// Diff merges extracted into a copy of known and reports the new codes.
// known is never modified. When a code appears more than once on the page
// its first occurrence provides the stored metadata. FirstSeen is preserved
// for codes that were already known; LastSeen and UpdatedAt are set to now.
func Diff(extracted []models.CodeRecord, known models.KnownSet, now time.Time) Result {
	updated := known.Clone()
	if updated.Codes == nil {
		updated.Codes = make(map[string]models.KnownCode)
	}
	updated.UpdatedAt = now

	var newRecords []models.CodeRecord
	seen := make(map[string]struct{}, len(extracted))

	for _, rec := range extracted {
		code := models.NormalizeCode(rec.Code)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		rec.Code = code

		meta := models.KnownCode{
			Reward:    rec.Reward,
			Added:     rec.Added,
			Expiry:    rec.Expiry,
			FirstSeen: now,
			LastSeen:  now,
		}
		if prev, ok := known.Codes[code]; ok {
			if !prev.FirstSeen.IsZero() {
				meta.FirstSeen = prev.FirstSeen
			}
		} else {
			newRecords = append(newRecords, rec)
		}
		updated.Codes[code] = meta
	}

	return Result{New: newRecords, Updated: updated}
}
