// Package logger builds *slog.Logger values with a consistent shape for the
// webhook server and its tools.
//
// New takes functional options (format, level, output, static attributes and
// context extractors); NewFromConfig does the same from a Config that is
// usually loaded from the environment. Extractors run on every record, so
// request-scoped values such as the request id are attached automatically:
//
//	log := logger.New(
//		logger.WithFormat(logger.FormatText),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(r.Context(), "update handled",
//		logger.Path(r.URL.Path),
//		logger.Status(http.StatusOK),
//		logger.Duration(time.Since(start)),
//	)
//
// Attribute helpers keep key names uniform. Error returns an empty attribute
// for a nil error, so it can be passed unconditionally.
//
// Noop returns a logger that discards everything; library packages fall back
// to it when no logger is injected.
package logger
