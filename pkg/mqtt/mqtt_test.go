package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	mqttclient "github.com/eclipse/paho.mqtt.golang"
	"github.com/simmurator/simmurator/pkg/hub"
	"github.com/simmurator/simmurator/pkg/requestlog"
	"github.com/simmurator/simmurator/pkg/sensor"
	"github.com/simmurator/simmurator/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher records publishes and fails once failAfter have succeeded.
type fakePublisher struct {
	mu        sync.Mutex
	topics    []string
	payloads  [][]byte
	failAfter int // < 0 never fails
}

func newFakePublisher() *fakePublisher { return &fakePublisher{failAfter: -1} }

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retain bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if qos != 0 || retain {
		return fmt.Errorf("unexpected qos=%d retain=%v", qos, retain)
	}
	if p.failAfter >= 0 && len(p.topics) >= p.failAfter {
		return ErrNotRunning
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

func getFreeMQTTPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func createMQTTClient(t *testing.T, port int, clientID string) mqttclient.Client {
	t.Helper()
	opts := mqttclient.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://127.0.0.1:%d", port))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(5 * time.Second)

	client := mqttclient.NewClient(opts)
	token := client.Connect()
	require.True(t, token.WaitTimeout(5*time.Second), "MQTT connect timeout")
	require.NoError(t, token.Error())
	t.Cleanup(func() { client.Disconnect(250) })
	return client
}

func subscribe(t *testing.T, c mqttclient.Client, filter string) <-chan mqttclient.Message {
	t.Helper()
	ch := make(chan mqttclient.Message, 256)
	token := c.Subscribe(filter, 0, func(_ mqttclient.Client, msg mqttclient.Message) {
		select {
		case ch <- msg:
		default:
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	return ch
}

func receive(t *testing.T, ch <-chan mqttclient.Message) mqttclient.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for MQTT message")
		return nil
	}
}

func TestConfig_Defaults(t *testing.T) {
	assert.Equal(t, DefaultConfig(), Config{}.withDefaults())

	custom := Config{Port: 1999, PublishInterval: time.Second, AccessTopic: "x/y"}.withDefaults()
	assert.Equal(t, 1999, custom.Port)
	assert.Equal(t, time.Second, custom.PublishInterval)
	assert.Equal(t, "x/y", custom.AccessTopic)
}

func TestBroker_StartStop(t *testing.T) {
	port := getFreeMQTTPort(t)
	b, err := NewBroker(port)
	require.NoError(t, err)
	assert.Equal(t, port, b.Port())
	assert.False(t, b.IsRunning())
	assert.ErrorIs(t, b.Publish("a/b", []byte("x"), 0, false), ErrNotRunning)

	require.NoError(t, b.Start(context.Background()))
	assert.True(t, b.IsRunning())
	assert.ErrorIs(t, b.Start(context.Background()), ErrAlreadyRunning)

	createMQTTClient(t, port, "probe")
	assert.Eventually(t, func() bool { return b.ClientCount() >= 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Stop(ctx))
	assert.False(t, b.IsRunning())
	assert.ErrorIs(t, b.Publish("a/b", []byte("x"), 0, false), ErrNotRunning)
	assert.NoError(t, b.Stop(ctx))
}

func TestBroker_StartCancelled(t *testing.T) {
	b, err := NewBroker(getFreeMQTTPort(t))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Start(ctx), context.Canceled)
	assert.False(t, b.IsRunning())
}

func TestReadingPublisher_PublishAll(t *testing.T) {
	pub := newFakePublisher()
	reg := sensor.NewRegistry(sensor.WithSeed(3))
	p := NewReadingPublisher(pub, reg, nil, 0, nil)

	assert.Equal(t, 14, p.PublishAll())
	require.Len(t, pub.topics, 14)
	assert.Equal(t, "spBv1.0/Plant-01/DDATA/Edge-Node-01/TEMP-001", pub.topics[0])
	assert.Equal(t, "spBv1.0/Plant-01/DDATA/Edge-Node-01/PRX-014", pub.topics[13])

	var reading map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[9], &reading))
	assert.Equal(t, "FLW-010", reading["sparkplugTopic"].(map[string]any)["deviceId"])
}

func TestReadingPublisher_FailureEndsBatch(t *testing.T) {
	pub := newFakePublisher()
	pub.failAfter = 4
	p := NewReadingPublisher(pub, sensor.NewRegistry(), nil, 0, nil)

	assert.Equal(t, 4, p.PublishAll())
	assert.Equal(t, 4, pub.count())
}

func TestReadingPublisher_Schedule(t *testing.T) {
	for _, kind := range []string{session.SchedulerTimer, session.SchedulerShared} {
		t.Run(kind, func(t *testing.T) {
			sched := session.NewScheduler(kind)
			if c, ok := sched.(interface{ Close() }); ok {
				t.Cleanup(c.Close)
			}
			pub := newFakePublisher()
			p := NewReadingPublisher(pub, sensor.NewRegistry(), sched, 20*time.Millisecond, nil)

			p.Start()
			p.Start()
			require.Eventually(t, func() bool { return pub.count() >= 28 }, 2*time.Second, 5*time.Millisecond)

			p.Stop()
			n := pub.count()
			time.Sleep(60 * time.Millisecond)
			assert.Equal(t, n, pub.count())
			assert.Zero(t, n%14)
		})
	}
}

func TestAccessSink(t *testing.T) {
	pub := newFakePublisher()
	sink := NewAccessSink(pub, "simmurator/access")
	require.NoError(t, sink.Send([]byte(`{"type":"access"}`)))
	assert.Equal(t, []string{"simmurator/access"}, pub.topics)

	pub.failAfter = 0
	assert.Error(t, sink.Send([]byte(`{}`)))
}

func TestBridge_EndToEnd(t *testing.T) {
	port := getFreeMQTTPort(t)
	h := hub.New()
	bridge, err := NewBridge(Config{Port: port, PublishInterval: 50 * time.Millisecond}, sensor.NewRegistry(), session.TimerScheduler{}, h, nil)
	require.NoError(t, err)

	require.NoError(t, bridge.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = bridge.Stop(ctx)
	})
	assert.Equal(t, 1, h.Count())

	client := createMQTTClient(t, port, "dashboard")
	readings := subscribe(t, client, "spBv1.0/Plant-01/DDATA/Edge-Node-01/+")
	access := subscribe(t, client, DefaultAccessTopic)

	msg := receive(t, readings)
	assert.True(t, strings.HasPrefix(msg.Topic(), "spBv1.0/Plant-01/DDATA/Edge-Node-01/"))
	var reading map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload(), &reading))
	deviceID := strings.TrimPrefix(msg.Topic(), "spBv1.0/Plant-01/DDATA/Edge-Node-01/")
	assert.Equal(t, deviceID, reading["sparkplugTopic"].(map[string]any)["deviceId"])

	h.Broadcast(requestlog.NewAccessEvent(requestlog.Entry{ID: 7, Endpoint: "/api/v1/sensors/amr", StatusCode: 200}))
	got := receive(t, access)
	var event struct {
		Type string           `json:"type"`
		Data requestlog.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(got.Payload(), &event))
	assert.Equal(t, "access", event.Type)
	assert.Equal(t, int64(7), event.Data.ID)
	assert.Equal(t, "/api/v1/sensors/amr", event.Data.Endpoint)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bridge.Stop(ctx))
	assert.Equal(t, 0, h.Count())
}

func TestBridge_StoppedBrokerIsPruned(t *testing.T) {
	h := hub.New()
	bridge, err := NewBridge(Config{Port: getFreeMQTTPort(t), PublishInterval: time.Hour}, sensor.NewRegistry(), nil, h, nil)
	require.NoError(t, err)
	require.NoError(t, bridge.Start(context.Background()))
	require.Equal(t, 1, h.Count())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bridge.Broker().Stop(ctx))

	h.Broadcast(requestlog.NewAccessEvent(requestlog.Entry{ID: 1}))
	assert.Equal(t, 0, h.Count())

	require.NoError(t, bridge.Stop(ctx))
}

func TestBridge_Run(t *testing.T) {
	bridge, err := NewBridge(Config{Port: getFreeMQTTPort(t)}, sensor.NewRegistry(), nil, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	require.Eventually(t, bridge.Broker().IsRunning, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.False(t, bridge.Broker().IsRunning())
}
