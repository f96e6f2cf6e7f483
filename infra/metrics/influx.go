package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/prodplan/core/metrics"
	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/infra/logger"
)

// InfluxConfig holds the connection settings of the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes run summaries and daily trajectories to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.RunSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes the run summary as a single point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_run").
		AddTag("run_id", ev.RunID).
		AddTag("status", ev.Status).
		AddTag("schedule_status", ev.ScheduleStatus).
		AddField("peak_demand", round3(ev.PeakDemand)).
		AddField("production", round3(ev.TotalProduction)).
		AddField("shipped", round3(ev.TotalShipped)).
		AddField("overtime_hours", round3(ev.OvertimeHours)).
		AddField("holding_cost", round3(ev.HoldingCost)).
		AddField("exception_cost", round3(ev.ExceptionCost)).
		AddField("exception_days", ev.ExceptionDays).
		AddField("reduction_days", ev.ReductionDays).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDays writes one point per simulated day, timestamped with its date.
func (s *InfluxSink) RecordDays(runID string, days []model.DayRecord) error {
	if len(days) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(days))
	for _, d := range days {
		points = append(points, write.NewPointWithMeasurement("plan_day").
			AddTag("run_id", runID).
			AddField("production", round3(d.Production)).
			AddField("operating_hours", round3(d.OperatingHours)).
			AddField("inventory_end", round3(d.InventoryEnd)).
			AddField("shipped", round3(d.ActualShipmentQty)).
			AddField("scheduled", round3(d.ScheduledShipmentQty)).
			AddField("exception", d.IsExceptionDay).
			AddField("reduction", d.IsReductionDay).
			SetTime(d.Date))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
