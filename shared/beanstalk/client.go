package beanstalk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/beanstalkd/go-beanstalk"
)

const (
	// DefaultPriority matches the priority the producer and the worker put with
	DefaultPriority uint32 = 0
	// DefaultReserveTimeout bounds a single reserve-with-timeout round trip
	DefaultReserveTimeout = 5 * time.Second
	// deadlineSoonBackoff is the pause before reserving again after
	// DEADLINE_SOON, which beanstalkd answers at once while a job held on
	// this connection is inside its TTR safety margin
	deadlineSoonBackoff = 200 * time.Millisecond
)

// Config holds beanstalkd connection configuration
type Config struct {
	Host              string
	Port              int
	Tube              string
	ReserveTimeout    time.Duration
	ConnectionTimeout time.Duration
}

// Client is one beanstalkd connection bound to a single tube: the tube is
// watched for reservation and used for put. A Client is not safe for
// concurrent use; each worker dials its own.
type Client struct {
	config  *Config
	conn    *beanstalk.Conn
	tube    *beanstalk.Tube
	tubeSet *beanstalk.TubeSet
	logger  *slog.Logger
}

// NewClient dials beanstalkd and binds the connection to the configured tube
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))

	timeout := config.ConnectionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	conn, err := beanstalk.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to beanstalkd at %s: %w", addr, err)
	}

	c := &Client{
		config:  config,
		conn:    conn,
		tube:    beanstalk.NewTube(conn, config.Tube),
		tubeSet: beanstalk.NewTubeSet(conn, config.Tube),
		logger:  logger,
	}

	logger.Debug("Connected to beanstalkd",
		slog.String("address", addr),
		slog.String("tube", config.Tube),
	)

	return c, nil
}

// Reserve blocks until a job is visible on the tube or ctx is done
func (c *Client) Reserve(ctx context.Context) (uint64, []byte, error) {
	slice := c.config.ReserveTimeout
	if slice <= 0 {
		slice = DefaultReserveTimeout
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}

		id, body, err := c.tubeSet.Reserve(slice)
		if err == nil {
			return id, body, nil
		}
		if isTimeout(err) {
			continue
		}
		if isDeadlineSoon(err) {
			t := time.NewTimer(deadlineSoonBackoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return 0, nil, ctx.Err()
			case <-t.C:
			}
			continue
		}
		return 0, nil, fmt.Errorf("failed to reserve job from tube %s: %w", c.config.Tube, err)
	}
}

// Put enqueues body on the tube with the given delay and time-to-run
func (c *Client) Put(_ context.Context, body []byte, delay, ttr time.Duration) (uint64, error) {
	id, err := c.tube.Put(body, DefaultPriority, delay, ttr)
	if err != nil {
		return 0, fmt.Errorf("failed to put job on tube %s: %w", c.config.Tube, err)
	}
	return id, nil
}

// Delete removes a reserved job
func (c *Client) Delete(_ context.Context, id uint64) error {
	if err := c.conn.Delete(id); err != nil {
		return fmt.Errorf("failed to delete job %d: %w", id, err)
	}
	return nil
}

// Bury moves a reserved job out of rotation
func (c *Client) Bury(_ context.Context, id uint64) error {
	if err := c.conn.Bury(id, DefaultPriority); err != nil {
		return fmt.Errorf("failed to bury job %d: %w", id, err)
	}
	return nil
}

// Close closes the connection
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil {
		c.logger.Error("Failed to close beanstalkd connection",
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// isTimeout reports a reserve-with-timeout that expired with nothing ready
func isTimeout(err error) bool {
	var connErr beanstalk.ConnError
	return errors.As(err, &connErr) && connErr.Err == beanstalk.ErrTimeout
}

// isDeadlineSoon reports that a job reserved on this connection is about
// to hit its TTR
func isDeadlineSoon(err error) bool {
	var connErr beanstalk.ConnError
	return errors.As(err, &connErr) && connErr.Err == beanstalk.ErrDeadline
}
