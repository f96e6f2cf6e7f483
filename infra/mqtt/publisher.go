package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/prodplan/core/logger"
	coremon "github.com/kilianp07/prodplan/core/monitoring"
	"github.com/kilianp07/prodplan/core/planner"
	infralog "github.com/kilianp07/prodplan/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Message is the JSON payload published for a run event.
type Message struct {
	RunID     string           `json:"run_id"`
	Kind      string           `json:"kind"`
	Timestamp int64            `json:"timestamp"`
	Error     string           `json:"error,omitempty"`
	Summary   *planner.Summary `json:"summary,omitempty"`
}

// Publisher forwards planner run events to an MQTT broker.
type Publisher struct {
	cli     pahoClient
	cfg     Config
	log     logger.Logger
	monitor coremon.Monitor
}

// NewPublisher connects to the broker described by cfg.
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = infralog.New("mqtt_publisher")
	}
	p := &Publisher{cfg: cfg, log: log, monitor: coremon.Current()}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		if cfg.LWTTopic != "" {
			c.Publish(cfg.LWTTopic, cfg.QoS, true, "online")
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// Topic returns the topic of events of the given kind.
func (p *Publisher) Topic(kind planner.EventKind) string {
	return fmt.Sprintf("%s/%s", p.cfg.TopicPrefix, kind)
}

// Publish sends ev, retrying with exponential backoff.
func (p *Publisher) Publish(ev planner.Event) error {
	msg := Message{RunID: ev.RunID, Kind: string(ev.Kind), Timestamp: ev.Time.UnixMilli()}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	if ev.Result != nil && ev.Result.Summary.Status != "" {
		s := ev.Result.Summary
		msg.Summary = &s
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	topic := p.Topic(ev.Kind)
	backoff := time.Duration(p.cfg.BackoffMS) * time.Millisecond
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			p.log.Debugf("published %s for run %s", topic, ev.RunID)
			return nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(backoff * time.Duration(1<<attempt))
		}
	}
	p.monitor.CaptureException(publishErr, map[string]string{"module": "mqtt", "run_id": ev.RunID, "topic": topic})
	return publishErr
}

// Forward publishes every event received on events until the channel is
// closed or ctx is done.
func (p *Publisher) Forward(ctx context.Context, events <-chan planner.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = p.Publish(ev)
		}
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
