// Package session drives the live game session for the LetterQuest client.
//
// The session package implements:
//   - The authoritative game-state snapshot and its delta merging
//   - The accumulated story narration text
//   - Bounded action-history and event-log buffers
//   - The action request pipeline correlated to server results
//   - Start/stop control of the periodic full-state resync subscription
//
// Action Pipeline:
//
// PerformAction issues one correlated request per call; the server's reply
// settles that call and ApplyActionResult folds the result into local
// state. Results of other players' actions arrive as broadcasts and go
// through the same ApplyActionResult, so the local and remote codepaths
// share one set of merge semantics. The server only broadcasts an action
// result to the players who did not issue it.
//
// Concurrency:
//
// Overlapping PerformAction calls are rejected with ErrActionInFlight
// rather than queued or raced; callers retry after the pending call
// settles. Broadcast handlers run on the connection's read goroutine and
// apply in delivery order.
//
// Bounded Buffers:
//
// The action history holds at most 100 entries and the event log at most
// 200; both evict oldest-first once full. Consumers read copies and never
// mutate the buffers directly.
//
// Lifecycle:
//
// The phase moves NotStarted -> AwaitingInitialState -> Synced, entered by
// the game:started broadcast or a completed explicit state request. Reset
// discards all session state when the player leaves the game.
package session
