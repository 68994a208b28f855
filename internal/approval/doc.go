// Package approval manages the short-lived credentials required by the
// upstream provider: the websocket approval key and the REST access token.
//
// Credentials live in an external key-value store with a TTL, shared with
// any other process pointed at the same store. A cache miss or an explicit
// invalidation triggers a synchronous issuance over HTTP; concurrent misses
// for the same store key coalesce into a single issuer call.
package approval
