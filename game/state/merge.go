package state

import "time"

// Merge applies a partial update to a snapshot and returns the result. It is
// the only merge function in the client: the local action-result path and
// the remote broadcast path both go through it.
//
// Semantics: fields present in the delta replace the previous value
// wholesale, except Flags (merged key by key) and TriggeredEvents (unioned,
// order of first appearance preserved). LastUpdatedAt advances to now unless
// the previous stamp is already later; it never regresses.
func Merge(prev GameState, delta StateDelta, now time.Time) GameState {
	next := prev.Clone()

	if delta.Chapter != nil {
		next.Chapter = *delta.Chapter
	}
	if delta.Level != nil {
		next.Level = *delta.Level
	}
	if delta.Players != nil {
		next.Players = make([]PlayerState, len(delta.Players))
		copy(next.Players, delta.Players)
	}
	if delta.Inventory != nil {
		next.Inventory = append([]string(nil), delta.Inventory...)
	}
	if delta.CollectedLetters != nil {
		next.CollectedLetters = append([]string(nil), delta.CollectedLetters...)
	}
	if delta.Flags != nil {
		if next.Flags == nil {
			next.Flags = make(map[string]bool, len(delta.Flags))
		}
		for k, v := range delta.Flags {
			next.Flags[k] = v
		}
	}
	for _, ev := range delta.TriggeredEvents {
		if !containsString(next.TriggeredEvents, ev) {
			next.TriggeredEvents = append(next.TriggeredEvents, ev)
		}
	}

	if now.After(prev.LastUpdatedAt) {
		next.LastUpdatedAt = now
	}

	return next
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
