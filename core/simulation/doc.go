// Package simulation runs the day-by-day production and inventory simulation
// of the planning horizon.
//
// Pass 1 walks the days forward and resolves shortfalls in tier order:
// standard production, same-day flex, then overtime borrowed from earlier
// days. Two corrective passes then zero out standard production that is not
// needed, and a finalizer recomputes holding costs and working-day flags.
//
// The engine owns the day slice for the duration of Run and is strictly
// sequential: Tier 3 re-opens days that were already finalized.
package simulation
