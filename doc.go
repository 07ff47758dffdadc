// Package frummy is the client glue for a managed backend: session state,
// route guards, auth screens, and opaque CRUD scaffolding. It deliberately
// carries no business logic; domain processing happens in an external
// workflow engine, and the backend enforces all authorization server side.
//
// Session lifecycle:
//   - Provider is the single source of truth for "who is signed in". It asks
//     the identity service for the current session exactly once on Start,
//     stays in StateUnknown while that request is outstanding, and resolves
//     to signed-out if the request fails. Every later push from the identity
//     service (sign-in, sign-out, token refresh) updates the cached session.
//   - Guard gates handlers on the (session, state) pair: placeholder while
//     unknown, a single redirect to the login route when signed out, the
//     protected handler otherwise.
//
// Backend clients:
//   - IdentityClient talks to the identity service (sign-in, sign-up,
//     sign-out, recovery, token refresh) and fans session changes out to
//     registered listeners.
//   - StoreClient moves opaque row payloads to and from named collections.
//     Records are never inspected; row-level security lives in the backend.
//   - realtime.Client subscribes to named topics over a websocket. Channels
//     open on mount and close on unmount; reconnection is the transport's
//     problem, not ours.
package frummy
