// Package httputil provides retry and polling helpers for the external
// design-tool clients.
//
// # Retry
//
// [Retry] wraps a request with automatic retry for transient failures.
// Only errors wrapped in [RetryableError] are retried, so a 404 or a 401
// fails fast while a connection reset or a 5xx is attempted again:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.Get(ctx, url, &out)
//	})
//
// # Polling
//
// Canva autofill and export jobs are asynchronous. [Poll] calls a check
// function with a growing delay until it reports completion, fails, or the
// overall deadline passes:
//
//	err := httputil.Poll(ctx, httputil.DefaultPoll, func(ctx context.Context) (bool, error) {
//	    job, err := c.Export(ctx, id)
//	    return job.Status == "success", err
//	})
//
// # Limits
//
// [ReadLimited] reads a response body but refuses payloads larger than the
// caller's limit.
package httputil
