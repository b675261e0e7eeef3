// Package services implements the Spotify Web API client used by the sync and album tools.
//
// # Spotify Client
//
// [SpotifyService] uses OAuth2 for authentication. The [oauth2.Client] refreshes expired tokens on its own;
// a 401 answer additionally forces one refresh through [SpotifyService.Refresh] and a single retry.
// Requests are paced by a [rate.Limiter] and wrapped in a circuit breaker so a failing API is not hammered.
//
// # Paging
//
// Listing endpoints return a [Page]. [Aggregate] follows next cursors until exhausted and returns every item
// in order, failing as a whole if any page fails.
//
// # Batched Lookups
//
// Multi-get endpoints cap the number of ids per request. [Lookup] splits a list of ids into chunks,
// concatenates what comes back and records the ids of failed chunks in [Batch.Skipped] instead of failing.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token rejected and no refresh token available
//   - [shared.ErrRateLimited] : 429 persisted after waiting for Retry-After
//   - [shared.ErrServiceUnavailable] : 5xx, transport failure or open breaker
//   - [shared.ErrNotFound] : unknown resource id
//   - [shared.ErrAPIRequest] : any other non-2xx answer
package services
