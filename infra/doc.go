// Package infra groups the adapters behind the core interfaces: the MILP
// solver, run sinks for Prometheus and InfluxDB, the Sentry monitor, the MQTT
// event publisher and the zerolog logger. Core packages never import infra.
package infra
