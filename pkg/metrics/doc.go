// Package metrics exports Prometheus metrics for a tgwebhook.Application.
//
// The collector is fed by application hooks, so it needs no access to the
// request pipeline:
//
//	reg := prometheus.NewRegistry()
//	m, err := metrics.New(metrics.WithRegistry(reg))
//	if err != nil {
//		return err
//	}
//	app, err := tgwebhook.New(opts, m.Options()...)
//
// Requests to unregistered paths are reported under the route "unmatched" to
// keep label cardinality bounded.
package metrics
