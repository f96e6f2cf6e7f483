// Package shipment chooses the start day of every recurring demand source so
// that the peak daily shipped quantity over the horizon is minimised.
//
// The choice is modelled as a 0/1 assignment problem handed to an injected
// solver.Solver. When the solver is missing, fails or returns an unusable
// status, a deterministic linear spread is applied instead.
package shipment
