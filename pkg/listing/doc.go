// Package listing fetches paginated listing pages and extracts the document
// links on them.
//
// Fetcher performs exactly one GET per call and never retries; the scrape
// engine owns the retry policy. Extractor is pure: the same body always
// yields the same ordered links.
package listing
