package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"agentic-rag/internal/pkg/logger"
	"agentic-rag/internal/platform/rabbitmq"
)

const defaultPrefetch = 8

// Handler processes one delivery body. A returned error drops the delivery
// unless the consumer is shutting down, in which case it is requeued.
type Handler func(ctx context.Context, body []byte) error

// Consumer runs a Handler for every delivery on one durable queue.
type Consumer struct {
	conn      *amqp.Connection
	queueName string
	handle    Handler
	prefetch  int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(conn *amqp.Connection, queueName string, handle Handler) *Consumer {
	return &Consumer{
		conn:      conn,
		queueName: queueName,
		handle:    handle,
		prefetch:  defaultPrefetch,
	}
}

// Start begins consuming in the background. ctx carries the base logger and
// bounds the consumer's lifetime.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(logger.AddFields(ctx, zap.String("queue", c.queueName)))
	c.cancel = cancel

	ch, err := c.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, c.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ch.Close()

		ctxzap.Info(workerCtx, "worker started")
		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					ctxzap.Extract(workerCtx).Warn("delivery channel closed")
					return
				}
				c.dispatch(workerCtx, d)
			}
		}
	}()

	return nil
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	ctx = logger.AddFields(ctx, zap.Uint64("delivery_tag", d.DeliveryTag))
	if err := c.handle(ctx, d.Body); err != nil {
		// interrupted by shutdown: hand the delivery back to the broker
		requeue := ctx.Err() != nil
		ctxzap.Extract(ctx).Error("handle delivery failed", zap.Bool("requeue", requeue), zap.Error(err))
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}
