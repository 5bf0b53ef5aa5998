// Package logger provides structured logging for epsteindl.
//
// It wraps zerolog behind a small Logger interface so components can attach
// fields (dataset, page, run id) without depending on zerolog directly.
// Console output is human readable unless logging.format is "json"; a
// configured log file always receives JSON lines.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("dataset", 9).InfoWithFields("Page scraped", map[string]interface{}{
//	    "page": 12,
//	    "new":  50,
//	})
//
// Tests use NewNopLogger, or NewTestLogger to assert on captured messages.
package logger
