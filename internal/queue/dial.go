package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/config"
	"github.com/cuongbtq/xe-rate-worker/shared/beanstalk"
	"github.com/cuongbtq/xe-rate-worker/shared/rabbitmq"
)

// Client is the work queue surface both drivers provide
type Client interface {
	Reserve(ctx context.Context) (uint64, []byte, error)
	Put(ctx context.Context, body []byte, delay, ttr time.Duration) (uint64, error)
	Delete(ctx context.Context, id uint64) error
	Bury(ctx context.Context, id uint64) error
	Close() error
}

// Dial opens one connection with the configured driver
func Dial(cfg *config.QueueConfig, logger *slog.Logger) (Client, error) {
	switch cfg.Driver {
	case config.QueueDriverBeanstalk, "":
		client, err := beanstalk.NewClient(&beanstalk.Config{
			Host:              cfg.Host,
			Port:              cfg.Port,
			Tube:              cfg.Tube,
			ReserveTimeout:    cfg.ReserveTimeout,
			ConnectionTimeout: cfg.Connection.ConnectionTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.QueueDriverRabbitMQ:
		client, err := rabbitmq.NewClient(&rabbitmq.Config{
			Host:              cfg.Host,
			Port:              cfg.Port,
			User:              cfg.User,
			Password:          cfg.Password,
			VHost:             cfg.VHost,
			ExchangeName:      cfg.Exchange,
			QueueName:         cfg.Tube,
			RetryAttempts:     cfg.Connection.RetryAttempts,
			RetryInterval:     cfg.Connection.RetryInterval,
			Heartbeat:         cfg.Connection.Heartbeat,
			ConnectionTimeout: cfg.Connection.ConnectionTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown queue driver: %q", cfg.Driver)
	}
}
