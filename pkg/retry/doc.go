// Package retry runs operations under an explicit retry policy.
//
// A Config names the attempt budget (0 for unlimited), the backoff and the
// context that bounds the loop. The scrape engine uses a ConstantBackoff
// with unlimited attempts so a dead listing page stalls until the context
// is cancelled; the native dispatcher uses ExponentialBackoff with a small
// budget per file.
//
//	err := retry.Do(func() error {
//	    return fetch(page)
//	}, &retry.Config{
//	    MaxAttempts: 0,
//	    Backoff:     &retry.ConstantBackoff{Delay: 5 * time.Second},
//	    Context:     ctx,
//	})
//
// Exhaustion is reported by wrapping ErrMaxAttempts together with the last
// error, so callers can test for both with errors.Is and errors.As.
package retry
