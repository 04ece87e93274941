// Package influx records builder telemetry as InfluxDB v2 points.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"
)

var (
	ErrDisabled         = errors.New("influx: disabled")
	ErrConnectionFailed = errors.New("influx: connection failed")
)

type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	BatchSize     uint // points per write
	FlushInterval time.Duration
}

// Client owns the InfluxDB connection and its non-blocking write API.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

func Connect(ctx context.Context, cfg Config, log *logrus.Entry) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrDisabled
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	c := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(cfg.BatchSize).
			SetFlushInterval(uint(cfg.FlushInterval/time.Millisecond)))

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ok, err := c.Ping(pingCtx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if !ok {
		c.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	w := c.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range w.Errors() {
			log.WithError(err).Warn("influx write failed")
		}
	}()
	return &Client{client: c, writeAPI: w}, nil
}

// Writer returns the batched write API points go to.
func (c *Client) Writer() api.WriteAPI { return c.writeAPI }

// Close flushes pending points and closes the connection.
func (c *Client) Close() {
	c.writeAPI.Flush()
	c.client.Close()
}
