package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"climate-server/internal/config"
	"climate-server/internal/metrics"
	"climate-server/internal/modules/climate/types"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	qos            = byte(1)
	publishTimeout = 5 * time.Second
)

// Publisher announces service availability and a summary of the loaded
// dataset as retained messages under the configured topic prefix. The
// broker's last will marks the service offline if the connection drops.
type Publisher struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	announced bool
	dataset   []byte

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) (*Publisher, error) {
	p := newPublisher(cfg, logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	// Session settings
	opts.SetCleanSession(true)
	opts.SetWill(p.StatusTopic(), StatusOffline, qos, true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.onConnect()
		p.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p, nil
}

func newPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

func (p *Publisher) StatusTopic() string {
	return p.cfg.MQTTTopic + "/status"
}

func (p *Publisher) DatasetTopic() string {
	return p.cfg.MQTTTopic + "/dataset"
}

// Connect establishes the broker connection and marks the service online.
func (p *Publisher) Connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	// Wait in a ctx/stop-aware loop.
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			break
		}

		select {
		case <-ctx.Done():
			p.client.Disconnect(0)
			return ctx.Err()
		case <-p.stopCh:
			p.client.Disconnect(0)
			return fmt.Errorf("publisher stopped")
		default:
		}
	}

	p.setConnected(true)
	if err := p.publish(p.StatusTopic(), StatusOnline); err != nil {
		return err
	}

	p.mu.Lock()
	p.announced = true
	p.mu.Unlock()
	return nil
}

// AnnounceDataset publishes summary as retained JSON on the dataset topic.
// The payload is cached and republished after a reconnect.
func (p *Publisher) AnnounceDataset(summary types.DatasetSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode dataset summary: %w", err)
	}

	p.mu.Lock()
	p.dataset = payload
	p.mu.Unlock()

	if !p.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	if err := p.publish(p.DatasetTopic(), payload); err != nil {
		return err
	}
	p.logger.Info("dataset announced",
		"topic", p.DatasetTopic(),
		"stations", summary.Stations,
		"observations", summary.Observations,
	)
	return nil
}

// IsConnected returns whether the client is connected.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect marks the service offline and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil && p.IsConnected() {
		if err := p.publish(p.StatusTopic(), StatusOffline); err != nil {
			p.logger.Warn("mqtt offline announcement failed", "error", err)
		}
	}

	// Disconnect without holding p.mu to avoid lock contention/deadlocks.
	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

// onConnect runs on every (re)connect. After the first successful Connect
// the retained messages are restored, since a dropped connection fired
// the offline will.
func (p *Publisher) onConnect() {
	p.setConnected(true)

	p.mu.RLock()
	announced, dataset := p.announced, p.dataset
	p.mu.RUnlock()
	if !announced {
		return
	}

	if err := p.publish(p.StatusTopic(), StatusOnline); err != nil {
		p.logger.Warn("mqtt online announcement failed", "error", err)
	}
	if dataset != nil {
		if err := p.publish(p.DatasetTopic(), dataset); err != nil {
			p.logger.Warn("mqtt dataset announcement failed", "error", err)
		}
	}
}

func (p *Publisher) publish(topic string, payload any) error {
	token := p.client.Publish(topic, qos, true, payload)
	var err error
	if !token.WaitTimeout(publishTimeout) {
		err = fmt.Errorf("publish timeout for topic %s", topic)
	} else if token.Error() != nil {
		err = fmt.Errorf("publish to %s: %w", topic, token.Error())
	}
	metrics.RecordMQTTPublish(topicSuffix(p.cfg.MQTTTopic, topic), err)
	return err
}

func topicSuffix(prefix, topic string) string {
	if len(topic) > len(prefix)+1 && topic[:len(prefix)] == prefix {
		return topic[len(prefix)+1:]
	}
	return topic
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
