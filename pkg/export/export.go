package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/prodplan/core/calendar"
	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/core/planner"
)

var csvHeader = []string{
	"day_index", "date", "is_working_day", "production", "operating_hours",
	"inventory_start", "inventory_available", "inventory_end",
	"scheduled_shipment_qty", "actual_shipment_qty", "demand_met",
	"holding_cost", "exception_cost", "is_exception_day", "is_reduction_day",
	"shipment_deferred", "scheduled_details", "actual_details", "exception_note",
}

// WriteJSON writes the full plan result to w in JSON format.
func WriteJSON(w io.Writer, res *planner.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteSummaryYAML writes the run summary to w in YAML format.
func WriteSummaryYAML(w io.Writer, s planner.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// WriteCSV writes one row per simulated day.
func WriteCSV(w io.Writer, days []model.DayRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range days {
		rec := []string{
			strconv.Itoa(d.DayIndex),
			calendar.Key(d.Date),
			strconv.FormatBool(d.IsWorkingDay),
			formatFloat(d.Production),
			formatFloat(d.OperatingHours),
			formatFloat(d.InventoryStart),
			formatFloat(d.InventoryAvailable),
			formatFloat(d.InventoryEnd),
			formatFloat(d.ScheduledShipmentQty),
			formatFloat(d.ActualShipmentQty),
			strconv.FormatBool(d.DemandMet),
			strconv.FormatFloat(d.HoldingCost, 'f', 2, 64),
			strconv.FormatFloat(d.ExceptionCost, 'f', 2, 64),
			strconv.FormatBool(d.IsExceptionDay),
			strconv.FormatBool(d.IsReductionDay),
			strconv.FormatBool(d.ShipmentDeferred),
			formatDetails(d.ScheduledShipmentDetails),
			formatDetails(d.ActualShipmentDetails),
			d.ExceptionNote,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatDetails renders details as city:qty pairs separated by '|'.
func formatDetails(details []model.ShipmentDetail) string {
	parts := make([]string, len(details))
	for i, d := range details {
		parts[i] = d.City + ":" + formatFloat(d.Quantity)
	}
	return strings.Join(parts, "|")
}
