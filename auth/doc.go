// Package auth holds the client's credentials between operations.
//
// A TokenStore keeps the bearer token and the player identity it belongs
// to. The store never validates the token's signature; ExpiresAt reads
// the expiry claim without verification so callers can re-authenticate
// before dialing with a token the server would reject anyway.
package auth
