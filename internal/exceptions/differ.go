package exceptions

import (
	"sort"
	"strconv"

	"github.com/privacytools/ucx/internal/remotesettings"
)

// Plan is the minimal set of store mutations that makes the remote state
// match a bug's desired entry set.
type Plan struct {
	Create []Entry
	Remove []remotesettings.Record
}

// Empty reports whether the remote state already matches exactly.
func (p *Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Remove) == 0
}

// Conflict records a desired identity key that is already held by a
// record traceable only to other bugs. Without force the owning bug's
// records are never touched.
type Conflict struct {
	Key      string
	RecordID string
	BugIDs   []string
}

// Diff compares the desired entries for a bug against the store's current
// records and returns the mutation plan plus any ownership conflicts.
//
// An entry is created only when no record holds its key. A record is
// removed only when it is traceable to this bug and none of its keys is
// still desired; multi-feature records that partially match are left
// alone rather than partially rewritten. With force, conflicting records
// owned by other bugs are removed and replaced.
func Diff(desired []Entry, remote []remotesettings.Record, bugID int64, force bool) (*Plan, []Conflict) {
	owner := strconv.FormatInt(bugID, 10)

	byKey := make(map[string][]*remotesettings.Record)
	for i := range remote {
		for _, key := range RecordKeys(remote[i]) {
			byKey[key] = append(byKey[key], &remote[i])
		}
	}

	desiredKeys := make(map[string]bool, len(desired))
	for _, entry := range desired {
		desiredKeys[entry.Key()] = true
	}

	plan := &Plan{}
	var conflicts []Conflict
	removing := make(map[string]bool)

	for _, entry := range desired {
		key := entry.Key()
		holders := byKey[key]

		owned := false
		for _, rec := range holders {
			if rec.Owns(owner) {
				owned = true
				break
			}
		}
		if owned {
			continue
		}

		if len(holders) > 0 {
			for _, rec := range holders {
				conflicts = append(conflicts, Conflict{Key: key, RecordID: rec.ID, BugIDs: rec.BugIDs})
				if force && !removing[rec.ID] {
					removing[rec.ID] = true
					plan.Remove = append(plan.Remove, *rec)
				}
			}
			if !force {
				continue
			}
		}
		plan.Create = append(plan.Create, entry)
	}

	for i := range remote {
		rec := &remote[i]
		if !rec.Owns(owner) || removing[rec.ID] {
			continue
		}
		stale := true
		for _, key := range RecordKeys(*rec) {
			if desiredKeys[key] {
				stale = false
				break
			}
		}
		if stale {
			removing[rec.ID] = true
			plan.Remove = append(plan.Remove, *rec)
		}
	}

	sort.Slice(plan.Create, func(i, j int) bool { return plan.Create[i].Key() < plan.Create[j].Key() })
	sort.Slice(plan.Remove, func(i, j int) bool { return plan.Remove[i].ID < plan.Remove[j].ID })
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Key != conflicts[j].Key {
			return conflicts[i].Key < conflicts[j].Key
		}
		return conflicts[i].RecordID < conflicts[j].RecordID
	})
	return plan, conflicts
}
