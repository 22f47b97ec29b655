package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"

	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

const (
	SummaryUpdatedQueue = "gitsync_summary_updated"
	TriggerQueue        = "gitsync_trigger"
)

var (
	dial = amqp.Dial

	connectBackOff = func() backoff.BackOff {
		return &backoff.ExponentialBackOff{
			InitialInterval:     500 * time.Millisecond,
			RandomizationFactor: 0.5,
			Multiplier:          2,
			MaxInterval:         10 * time.Second,
			MaxElapsedTime:      time.Minute,
			Clock:               backoff.SystemClock,
		}
	}
)

// TriggerRequest asks the worker for an out-of-schedule pass.
type TriggerRequest struct {
	RequestedBy string    `json:"requested_by"`
	Timestamp   time.Time `json:"timestamp"`
}

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQ dials with exponential backoff; the broker often comes up after
// the service in compose deployments.
func NewRabbitMQ(ctx context.Context, url string) (*RabbitMQ, error) {
	var conn *amqp.Connection
	op := func() error {
		c, err := dial(url)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("RabbitMQ not reachable (%v), retrying in %s", err, wait)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(connectBackOff(), ctx), notify); err != nil {
		return nil, errors.New(
			"QUEUE_CONNECTION_ERROR",
			"Failed to connect to RabbitMQ",
			"Broker did not accept a connection before the retry budget ran out",
			err,
			errors.LevelError,
		)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.New("QUEUE_CONNECTION_ERROR", "Failed to open RabbitMQ channel", "", err, errors.LevelError)
	}

	for _, name := range []string{SummaryUpdatedQueue, TriggerQueue} {
		if _, err := channel.QueueDeclare(name, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, errors.New("QUEUE_DECLARE_ERROR", "Failed to declare queue", name, err, errors.LevelError)
		}
	}

	logger.Info("connected to RabbitMQ 🐇")
	return &RabbitMQ{
		conn:    conn,
		channel: channel,
	}, nil
}

func (r *RabbitMQ) publish(queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return r.channel.Publish(
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (r *RabbitMQ) PublishSummaryUpdated(ctx context.Context, event models.SummaryEvent) error {
	return r.publish(SummaryUpdatedQueue, event)
}

func (r *RabbitMQ) PublishTriggerRequest(ctx context.Context, requestedBy string) error {
	return r.publish(TriggerQueue, TriggerRequest{RequestedBy: requestedBy, Timestamp: time.Now().UTC()})
}

func decodeTriggerRequest(body []byte) (TriggerRequest, error) {
	var req TriggerRequest
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("decode trigger request: %w", err)
	}
	return req, nil
}

// ConsumeTriggerRequests hands every trigger message to handler until ctx is
// done or the channel closes. Messages are acked whether or not the handler
// succeeds: a rejected trigger is not retried.
func (r *RabbitMQ) ConsumeTriggerRequests(ctx context.Context, handler func(ctx context.Context, req TriggerRequest) error) error {
	msgs, err := r.channel.Consume(
		TriggerQueue,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					logger.Warn("Trigger queue consumer closed")
					return
				}

				req, err := decodeTriggerRequest(d.Body)
				if err != nil {
					logger.Error("Error decoding message: %v", err)
					continue
				}

				if err := handler(ctx, req); err != nil {
					logger.Warn("Trigger from %q not run: %v", req.RequestedBy, err)
				}
			}
		}
	}()

	return nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}
