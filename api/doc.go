// Package api defines the contract between the realtime client and the
// game platform's HTTP API.
//
// The package carries only the wire types and the Client interface. The
// realtime layer never performs HTTP itself; callers inject whatever
// implementation fits their process (a real HTTP client, a fixture in
// tests) wherever a Client or one of its narrower slices is accepted.
//
// Response Format:
//
// Every endpoint wraps its payload in a common envelope:
//
//	{
//	  "success": true|false,
//	  "data": { ... },          // present on success
//	  "error": "error message"  // present on failure
//	}
//
// Authentication:
//
// Login and register return a bearer token that also authenticates the
// realtime connection. Any endpoint answering 401 means the token is no
// longer valid; implementations must discard the stored credentials so
// the next operation forces a fresh login rather than retrying with a
// dead token.
package api
