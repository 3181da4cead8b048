// Package room keeps the client's view of game rooms consistent with the
// server.
//
// The room package implements:
//   - The cached joinable-room list (refreshed wholesale via the HTTP
//     collaborator)
//   - The single "current room" the local player occupies
//   - Room lifecycle intents: create, join, leave, select character,
//     toggle ready, start game
//   - Roster reconciliation from server broadcasts
//
// Request/Broadcast Duality:
//
// Every intent is one correlated request whose reply settles that call.
// Roster changes caused by other players arrive as broadcasts through the
// same channel and mutate the current room independently of any pending
// request. Broadcasts are applied in delivery order.
//
// Reconciliation Policies:
//
//   - player_joined is idempotent: a duplicate delivery for an identity
//     already in the roster changes nothing.
//   - player_left removes by identity; occupancy tracks roster length and
//     never goes negative.
//   - character_selected and player_ready_changed replace the current room
//     wholesale when the payload carries a full room snapshot, and patch
//     the one affected player's field when it does not. The policy is the
//     same for both event types.
//   - When the room creator leaves, the earliest-joined remaining player
//     is promoted to creator locally; a later authoritative snapshot
//     overrides the promotion.
//
// Errors:
//
// Operation failures reject the call and populate a shared last-error
// field readable via LastError. The field is never cleared automatically;
// consumers call ClearError before the next operation. Character-selection
// conflicts detected locally fail with a ValidationError before any
// network round trip; the server stays the final arbiter for races the
// client cannot see.
package room
