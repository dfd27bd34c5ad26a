// Package droneapi provides the HTTP client for the drone telemetry API.
//
// # Overview
//
// The client performs authenticated, paginated GET requests and returns the
// decoded JSON envelope. It knows nothing about entity types; decoding records
// into drones, types and telemetry is the job of the drone and repository
// packages.
//
// # Client Usage
//
//	client, err := droneapi.NewClient(droneapi.Options{
//		BaseURL: "http://dronesim.example/api/",
//		Token:   token,
//	})
//	if err != nil {
//		return err
//	}
//	page, err := client.FetchPage(ctx, "drones", 20, 0)
//
// Requests take the form
//
//	GET {base_url}{endpoint}/?format=json&limit=L&offset=O
//	Authorization: Token {token}
//
// # Retry Policy
//
// Transport failures (connection errors, timeouts) are retried up to
// MaxAttempts total attempts with a constant RetryDelay between them. The
// delay does not grow. Non-200 responses are terminal and never retried:
//
//   - 404: ErrEndpointNotFound
//   - 401: ErrAuthFailed
//   - anything else: ErrUnexpectedStatus
//
// A 200 response whose body is not a JSON object yields ErrMalformedResponse.
// Exhausting all attempts yields ErrRetriesExhausted wrapping the last cause.
//
// # Cancellation
//
// Cancelling the context aborts an in-flight request or the sleep between
// attempts immediately. The returned *APIError reports Interrupted() and
// matches context.Canceled or context.DeadlineExceeded with errors.Is.
//
// # Error Handling
//
// Every failure is an *APIError so callers can react uniformly:
//
//	var apiErr *droneapi.APIError
//	if errors.As(err, &apiErr) && apiErr.Retryable() {
//		// offer a retry
//	}
//
// UserMessage turns an error into a short status-line string.
//
// # Thread Safety
//
// A Client is immutable after NewClient and safe for concurrent use. Build one
// per process and pass it to the repository and scheduler explicitly.
package droneapi
