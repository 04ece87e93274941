package mqtt

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultKeepAlive      = 60 * time.Second
	disconnectQuiesceMS   = 500
	maxQoS                = 2
)

var (
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrInvalidQoS       = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
)

// Config selects the broker and identity of the status publisher.
type Config struct {
	BrokerURL string // tcp://host:1883 or ssl://host:8883
	ClientID  string
	Username  string
	Password  string
	QoS       byte
}

func (c Config) validate() error {
	if c.QoS > maxQoS {
		return ErrInvalidQoS
	}
	u, err := url.Parse(c.BrokerURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("mqtt: bad broker url %q", c.BrokerURL)
	}
	return nil
}

// Client is a connected paho client that publishes with a bounded wait.
type Client struct {
	client pahomqtt.Client
	cfg    Config
	status string
}

// Connect dials the broker. The world's status topic carries a retained
// "online" message and an "offline" will.
func Connect(cfg Config, worldID string) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "voxelbuilder-" + worldID
	}
	status := Topics{WorldID: worldID}.WorldStatus()

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(status, `{"status":"offline"}`, cfg.QoS, true)

	c := &Client{client: pahomqtt.NewClient(opts), cfg: cfg, status: status}
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if err := c.Publish(status, []byte(`{"status":"online"}`), true); err != nil {
		c.client.Disconnect(disconnectQuiesceMS)
		return nil, err
	}
	return c, nil
}

// Publish sends payload and waits for the broker acknowledgment.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, c.cfg.QoS, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close publishes the graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.client.IsConnected() {
		_ = c.Publish(c.status, []byte(`{"status":"offline"}`), true)
	}
	c.client.Disconnect(disconnectQuiesceMS)
	return nil
}
