// Package health serves liveness and readiness probes for long-running
// commands such as cerebral watch.
//
// # Endpoints
//
//   - /healthz: liveness, 200 while the process runs
//   - /readyz: readiness, 200 when every registered check passes, else 503
//   - /version: build information
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.Register("rulesets", health.RulesetsLoaded(reg))
//	checker.Register("audit", health.AuditStorage(store))
//
//	mux := http.NewServeMux()
//	health.Mount(mux, checker, version, commit, buildDate)
//
// Checks run concurrently, each bounded by the checker timeout. A check
// that times out is reported as failing with ErrCheckTimeout.
package health
