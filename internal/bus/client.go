// Package bus implements the Bus Client: the
// one component that owns the broker connection, last-will, subscription
// set, and outbound publishing. Every service embeds exactly one Client
// and registers exactly one inbound sink.
package bus

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"iot-fabric/internal/errs"
	"iot-fabric/internal/logging"
)

// Sink receives every inbound message matched by a subscription. It must
// not block — the paho callback goroutine that invokes it also drives
// the network loop, so a blocking sink stalls dispatch for every topic.
type Sink func(topic string, payload []byte)

// Identity is the immutable connection identity created once at process
// start.
type Identity struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	CADir     string // directory containing ca.crt; empty disables TLS
}

// Client owns the broker connection, subscription set, and last-will.
type Client struct {
	log      *logging.Logger
	identity Identity

	mu   sync.Mutex
	subs map[string]string // topic pattern -> dispatch tag (uuid)

	sinkMu sync.Mutex
	sink   Sink

	native mqtt.Client
}

const connectTimeout = 5 * time.Second
const publishTimeout = 10 * time.Second

// New constructs a Client and configures its last-will
// (home/services/<id>/status = "offline", QoS 1, not retained) before
// the first Connect, per the invariant that the will is never modified
// afterwards.
func New(log *logging.Logger, identity Identity) (*Client, error) {
	c := &Client{
		log:      log.With("component", "bus", "client_id", identity.ClientID),
		identity: identity,
		subs:     make(map[string]string),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(identity.BrokerURL)
	opts.SetClientID(identity.ClientID)
	opts.SetUsername(identity.Username)
	opts.SetPassword(identity.Password)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(20 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetWill(statusTopic(identity.ClientID), "offline", 1, false)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		c.log.Info("connected", "broker", identity.BrokerURL)
		c.resubscribeAll()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.log.Error("connection lost", "error", err)
	})
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		c.dispatch(msg.Topic(), msg.Payload())
	})

	if identity.CADir != "" {
		tlsCfg, err := loadTLSConfig(identity.CADir)
		if err != nil {
			return nil, errs.New(errs.TLS, "loading CA trust anchor", err)
		}
		opts.SetTLSConfig(tlsCfg)
	}

	c.native = mqtt.NewClient(opts)
	return c, nil
}

func statusTopic(clientID string) string {
	return fmt.Sprintf("home/services/%s/status", clientID)
}

// StatusTopic exposes the client's own status topic for the Runtime's
// heartbeat.
func (c *Client) StatusTopic() string { return statusTopic(c.identity.ClientID) }

func loadTLSConfig(caDir string) (*tls.Config, error) {
	pemBytes, err := os.ReadFile(filepath.Join(caDir, "ca.crt"))
	if err != nil {
		return nil, fmt.Errorf("reading ca.crt: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("no certificates parsed from %s/ca.crt", caDir)
	}
	return &tls.Config{RootCAs: pool}, nil
}

// Connect blocks up to 5s for session establishment.
func (c *Client) Connect() error {
	token := c.native.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errs.New(errs.Transport, "connect timed out", nil)
	}
	if err := token.Error(); err != nil {
		return classifyConnectError(err)
	}
	return nil
}

func classifyConnectError(err error) error {
	// paho surfaces auth failures as CONNACK reason codes embedded in
	// the error text; treat anything else as a transport failure.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not authorized") || strings.Contains(msg, "bad user name or password") || strings.Contains(msg, "not authorised") {
		return errs.New(errs.Auth, "broker rejected credentials", err)
	}
	return errs.New(errs.Transport, "connect failed", err)
}

// Disconnect initiates session termination. If the session was not
// clean the broker fires the last-will.
func (c *Client) Disconnect() {
	c.native.Disconnect(250)
}

// SetInboundSink registers the single handler for matched inbound
// messages. Calling it twice replaces the previous handler — the
// contract promises exactly one active sink at a time.
func (c *Client) SetInboundSink(sink Sink) {
	c.sinkMu.Lock()
	c.sink = sink
	c.sinkMu.Unlock()
}

func (c *Client) dispatch(topic string, payload []byte) {
	c.sinkMu.Lock()
	sink := c.sink
	c.sinkMu.Unlock()
	if sink != nil {
		sink(topic, payload)
	}
}

// Subscribe is idempotent: subscribing to an already-subscribed topic
// pattern reuses its dispatch tag and re-issues the SUBSCRIBE.
func (c *Client) Subscribe(topic string) error {
	c.mu.Lock()
	tag, exists := c.subs[topic]
	if !exists {
		tag = uuid.NewString()
		c.subs[topic] = tag
	}
	c.mu.Unlock()

	token := c.native.Subscribe(topic, 1, nil)
	if !token.WaitTimeout(connectTimeout) {
		return errs.New(errs.Transport, "subscribe timed out: "+topic, nil)
	}
	if err := token.Error(); err != nil {
		return errs.New(errs.Transport, "subscribe failed: "+topic+" (tag "+tag+")", err)
	}
	return nil
}

// resubscribeAll replays the subscription set after a reconnect, per
// the invariant that subscriptions survive a lost session.
func (c *Client) resubscribeAll() {
	c.mu.Lock()
	topics := make([]string, 0, len(c.subs))
	for t := range c.subs {
		topics = append(topics, t)
	}
	c.mu.Unlock()

	for _, t := range topics {
		token := c.native.Subscribe(t, 1, nil)
		if token.WaitTimeout(connectTimeout) && token.Error() != nil {
			c.log.Error("resubscribe failed", "topic", t, "error", token.Error())
		}
	}
}

// Publish sends payload at QoS 1, not retained, blocking until the
// broker acknowledges or ceiling elapses.
func (c *Client) Publish(topic string, payload []byte) error {
	return c.publishWithTimeout(topic, payload, publishTimeout)
}

// PublishForShutdown is Publish with a 10s abandonment ceiling for the
// final offline status publish during shutdown.
func (c *Client) PublishForShutdown(topic string, payload []byte) error {
	return c.publishWithTimeout(topic, payload, 10*time.Second)
}

func (c *Client) publishWithTimeout(topic string, payload []byte, timeout time.Duration) error {
	token := c.native.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(timeout) {
		return errs.New(errs.Transport, "publish timed out: "+topic, nil)
	}
	if err := token.Error(); err != nil {
		return errs.New(errs.Transport, "publish failed: "+topic, err)
	}
	return nil
}

// IsConnected reports the current transport state.
func (c *Client) IsConnected() bool {
	return c.native.IsConnected()
}
