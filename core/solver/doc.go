// Package solver defines the mixed-integer programming contract used by the
// shipment scheduler. Implementations live in infra packages and are injected
// by the caller, which owns their lifecycle.
package solver
