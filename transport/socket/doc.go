// Package socket provides the shared realtime channel for the LetterQuest
// client.
//
// The socket package implements:
//   - A single authenticated WebSocket connection per client process
//   - Connect, disconnect, and reconnect-with-backoff lifecycle handling
//   - Correlated request/reply over the channel (Request)
//   - Fire-and-forget emits (Emit)
//   - A named-event registry with handle-scoped subscriptions
//
// Wire Protocol:
//
// Frames are JSON-encoded text messages with a type discriminator:
//   - {type: "hello", session: "..."}                    server accepts the handshake
//   - {type: "error", code: "...", message: "..."}       server rejects the handshake
//   - {type: "request", id: "...", event: "...", data: {...}}  client request
//   - {type: "ack", id: "...", data: {...}}              server reply, matched by id
//   - {type: "event", event: "...", data: {...}}         broadcast or emit
//   - {type: "disconnect", reason: "..."}                server-forced disconnect
//
// Authentication happens once, at connect time: the bearer token travels in
// the Authorization header of the upgrade request and the server answers
// with either a hello or an error frame.
//
// Connection Lifecycle:
//
// Idle -> Connecting -> Connected, with Connecting -> Failed on an
// unrecoverable error. A server-forced disconnect triggers an immediate
// redial; a transport-level drop redials after the reconnect delay. An
// explicit Disconnect returns the connection to Idle and suppresses
// automatic redials until the next Connect call.
//
// Delivery Model:
//
// All broadcast handlers and ack resolutions run on the connection's read
// goroutine, so state mutations driven by the server are applied in
// delivery order. Handlers must not block.
//
// Subscriptions survive disconnects: the registry is independent of any
// particular connection, so handlers registered before a connection exists
// receive events once one forms.
package socket
