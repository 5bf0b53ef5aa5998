// Package ratelimit throttles document transfers in the native dispatcher.
//
// The listing scrape does not use it: page requests are paced by a fixed
// delay between pages. Transfers run concurrently, so they share one token
// bucket sized from download.requests_per_minute.
package ratelimit
