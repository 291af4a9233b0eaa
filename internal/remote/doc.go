// Package remote provides the HTTP gateway to the IndustrIA server.
//
// # Overview
//
// Gateway wraps every call the bridge makes: login, license status, pending
// jobs, job acknowledgement, device configuration, version metadata and the
// update download. It is the single place where an authentication failure is
// detected.
//
// # Errors
//
// Calls fail with one of three shapes:
//
//   - ErrUnauthenticated: no credential stored, or the server answered 401.
//     On 401 the gateway calls Session.Invalidate with the rejected token
//     before returning.
//   - *HTTPError: any other non-2xx status. Message carries the server's
//     "message", "mensaje" or "error" field when present.
//   - *NetworkError: transport failure, or a call refused while the circuit
//     breaker is open.
//
// The gateway never retries. IsTransient identifies the failures callers
// leave to the next scheduled tick.
//
// # Circuit breaker
//
// When Options.BreakerFailures is non-zero the transport is wrapped in a
// gobreaker circuit breaker that opens after that many consecutive network
// or 5xx failures. 4xx responses count as successes for the breaker.
//
// # Headers
//
// Every request carries JSON Content-Type and Accept headers, the configured
// User-Agent and a fresh X-Request-Id. Authenticated calls add a bearer token.
// Login and FetchVersion are public.
package remote
