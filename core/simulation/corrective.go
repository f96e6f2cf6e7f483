package simulation

// minSafeInventory is the lowest opening inventory observed on a day that
// actually ships, or 0 when nothing ships.
func (e *Engine) minSafeInventory() float64 {
	found := false
	var minSafe float64
	for _, d := range e.days {
		if d.ActualShipmentQty <= Tolerance {
			continue
		}
		if !found || d.InventoryStart < minSafe {
			minSafe = d.InventoryStart
			found = true
		}
	}
	return minSafe
}

// feasibleWithout re-simulates the horizon from day t assuming its production
// is zero. Shipping days must keep their opening inventory at or above floor
// and every day must still cover its booked shipment.
func (e *Engine) feasibleWithout(t int, floor float64) bool {
	inv := e.days[t].InventoryStart
	for j := t; j < len(e.days); j++ {
		d := &e.days[j]
		if d.ActualShipmentQty > Tolerance && inv < floor-Tolerance {
			return false
		}
		prod := d.Production
		if j == t {
			prod = 0
		}
		avail := inv + prod
		if avail < d.ActualShipmentQty-Tolerance {
			return false
		}
		inv = avail - d.ActualShipmentQty
	}
	return true
}

// reduce turns day t into a reduction day and propagates inventory to the end
// of the horizon. It returns the standard hours saved.
func (e *Engine) reduce(t int, note string) float64 {
	d := &e.days[t]
	saved := d.OperatingHours
	d.IsReductionDay = true
	d.Production = 0
	d.OperatingHours = 0
	d.AppendNote(note)
	for j := t; j < len(e.days); j++ {
		e.refreshInventory(j)
	}
	return saved
}

// removeSlack is Pass A: forward removal of standard days that are not needed
// to keep shipping days above minSafe.
func (e *Engine) removeSlack(minSafe float64) int {
	n := 0
	for t := range e.days {
		if !e.isDefaultDay(t) || !e.feasibleWithout(t, minSafe) {
			continue
		}
		e.reduce(t, "slack removed")
		n++
	}
	e.log.Debugw("slack removal done", map[string]any{"reductions": n, "min_safe": minSafe})
	return n
}

// offsetOvertime is Pass B: from the end of the horizon backward, zero out
// standard days until the overtime hours of Pass 1 are compensated. Inventory
// may deplete to zero.
func (e *Engine) offsetOvertime() (int, float64) {
	toOffset := e.report.OvertimeHours
	n := 0
	for t := len(e.days) - 1; t >= 0 && toOffset > Tolerance; t-- {
		if !e.isDefaultDay(t) || !e.feasibleWithout(t, 0) {
			continue
		}
		toOffset -= e.reduce(t, "overtime offset")
		n++
	}
	if toOffset < 0 {
		toOffset = 0
	}
	e.log.Debugw("overtime offset done", map[string]any{"reductions": n, "remaining_hours": toOffset})
	return n, toOffset
}
