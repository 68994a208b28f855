// Package upstream owns the single websocket connection to the quote
// provider: lazy connection with the cached approval credential, the
// control-message state machine, reconnect-and-resubscribe after a
// credential rejection, and teardown when the last client session leaves.
package upstream
