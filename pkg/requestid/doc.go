// Package requestid tags every inbound request with a correlation id.
//
// The middleware reuses a well-formed "X-Request-ID" header from the caller or
// generates a UUIDv4, stores the id in the request context and echoes it back
// in the response header. LoggerExtractor plugs the id into pkg/logger so
// every record written with the request context carries "request_id".
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
package requestid
