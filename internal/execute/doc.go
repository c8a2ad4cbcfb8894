// Package execute applies planned actions against the media server and
// drives the verify-and-retry loop.
//
// Actions are grouped by item and applied sequentially; every touched item
// gets a metadata refresh on the way out, success or failure, so a partial
// application never leaves an item un-refreshed. After all items are
// processed the executor blocks until the notification listener has been
// quiet for the quiescence window, then reloads the touched items and checks
// each action's goal against the observed hidden state. Unsatisfied actions
// are reapplied for up to three retry rounds; whatever remains is
// neutralized (cleared and unlocked) and reported as failed.
//
// Nothing here is concurrent: the server's write/refresh semantics are not
// safe under concurrent writes to the same item, and sequential execution
// keeps the retry logic deterministic.
package execute
