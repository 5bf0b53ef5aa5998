// Package scraper drives the paginated listing walk for one dataset.
//
// Pages are fetched strictly in order. A run stops when EmptyPageLimit
// consecutive pages carry no documents, when a page opens with a filename
// that already opened an earlier page of the same run (the listing wrapped
// around, which also marks the index complete), when the page budget is
// spent, when fetch attempts run out, or when the context is cancelled.
//
// Whatever the stop reason, the index is saved once more and the newly
// discovered URLs are written as the dataset's work list. Only one run per
// dataset should be active at a time; index writes are last-writer-wins.
package scraper
