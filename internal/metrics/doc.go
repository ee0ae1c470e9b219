/*
Package metrics records command and notification counters with Prometheus.

Metrics wraps a backend.Invoker to count runs by outcome and time them, and
subscribes to the notification bus to count progress events. Server exposes
the registry on /metrics through a chi router when an address is configured.
*/
package metrics
