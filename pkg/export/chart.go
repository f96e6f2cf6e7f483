package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/prodplan/core/calendar"
	"github.com/kilianp07/prodplan/core/planner"
)

// WriteHTMLChart renders production, inventory and shipments of the plan as
// an interactive HTML line chart.
func WriteHTMLChart(w io.Writer, res *planner.Result) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Production plan",
			Subtitle: fmt.Sprintf("schedule %s, total cost %s", res.Summary.ScheduleStatus, res.Summary.TotalCost.StringFixed(2)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Top: "30"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Units"}),
	)

	xAxis := make([]string, len(res.Records))
	production := make([]opts.LineData, len(res.Records))
	inventory := make([]opts.LineData, len(res.Records))
	shipped := make([]opts.LineData, len(res.Records))
	for i, d := range res.Records {
		xAxis[i] = calendar.Key(d.Date)
		production[i] = opts.LineData{Value: d.Production}
		inventory[i] = opts.LineData{Value: d.InventoryEnd}
		shipped[i] = opts.LineData{Value: d.ActualShipmentQty}
	}
	line.SetXAxis(xAxis).
		AddSeries("Production", production).
		AddSeries("Inventory", inventory).
		AddSeries("Shipped", shipped)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %v", err)
	}
	return nil
}
