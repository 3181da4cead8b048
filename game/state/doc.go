// Package state defines the shared data model for the LetterQuest client.
//
// The state package contains:
//   - Room and Player types mirroring the server's room model
//   - GameState snapshots and StateDelta partial updates
//   - Typed payloads for every server event the client consumes
//   - The pure Merge function used to apply deltas to snapshots
//
// Core Types:
//
// Room is the client's cached view of a game room, including the ordered
// player roster. GameState is the authoritative game snapshot the server
// pushes and patches. StateDelta carries the subset of fields an action
// result changed; absent fields leave the snapshot untouched.
//
// Merging:
//
// Merge is the single merge function for the whole client. Both the local
// action-result path and the remote broadcast path call it, so the two can
// never diverge. Merge is pure: it never mutates its inputs and always
// returns a new snapshot whose LastUpdatedAt has advanced.
//
// Events:
//
// Every broadcast the server sends has a dedicated payload type and an
// event name constant in this package. Consumers decode the raw payload
// into the matching type instead of working with loose maps.
package state
