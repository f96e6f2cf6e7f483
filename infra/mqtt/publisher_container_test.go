//go:build !no_containers

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/prodplan/core/planner"
)

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte("listener 1883\nallow_anonymous true\npersistence false\n"), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestPublisherWithMosquitto(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()
	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	got := make(chan Message, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("observer"))
	if token := sub.Connect(); token.Wait() && token.Error() != nil {
		t.Skipf("broker not ready: %v", token.Error())
	}
	defer sub.Disconnect(100)
	if token := sub.Subscribe("prodplan/runs/#", 1, func(_ paho.Client, m paho.Message) {
		var msg Message
		if err := json.Unmarshal(m.Payload(), &msg); err == nil {
			got <- msg
		}
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}

	pub, err := NewPublisher(Config{Broker: broker, ClientID: "prodplan-test", QoS: 1}, nil)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer pub.Disconnect()
	if err := pub.Publish(planner.Event{RunID: "run-42", Kind: planner.EventStarted, Time: time.Now()}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-got:
		if msg.RunID != "run-42" || msg.Kind != "started" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}
