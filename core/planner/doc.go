// Package planner runs the full annual plan: it validates the request,
// schedules shipments, simulates the 365 days and summarises the outcome.
// Every run is reported to the configured metric sink, run history and
// error monitor, whether it succeeds or not.
package planner
