package messaging

import (
	"context"
	"strings"
	"time"

	"example.com/stockflow/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Handler processes one message body. A non-nil error abandons the message so
// the broker redelivers it.
type Handler func(ctx context.Context, body []byte) error

// ServiceBusClient consumes status change events from an Azure Service Bus
// queue in peek-lock mode
type ServiceBusClient struct {
	client    *azservicebus.Client
	queueName string
}

// NewServiceBusClient creates a new Service Bus client
func NewServiceBusClient(cfg config.AzureConfig) (*ServiceBusClient, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("service bus connection string is required")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service bus client")
	}

	return &ServiceBusClient{
		client:    client,
		queueName: cfg.QueueName,
	}, nil
}

// ProcessMessages receives messages until the context is canceled, invoking
// handler for each. Handled messages are completed; failed ones are abandoned
// for redelivery.
func (c *ServiceBusClient) ProcessMessages(ctx context.Context, handler Handler) error {
	var receiver *azservicebus.Receiver

	err := retryWithBackoff(ctx, func() error {
		var err error
		receiver, err = c.client.NewReceiverForQueue(c.queueName, &azservicebus.ReceiverOptions{
			ReceiveMode: azservicebus.ReceiveModePeekLock,
		})
		return err
	}, 5)
	if err != nil {
		return errors.Wrapf(err, "failed to create receiver for queue %s", c.queueName)
	}
	defer receiver.Close(context.Background())

	log.Info().Str("queue", c.queueName).Msg("Listening for messages")

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Str("queue", c.queueName).Msg("Failed to receive messages")

			select {
			case <-time.After(5 * time.Second):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		for _, message := range messages {
			if err := handler(ctx, message.Body); err != nil {
				log.Error().
					Err(err).
					Str("message_id", message.MessageID).
					Msg("Failed to process message, abandoning for redelivery")
				if abandonErr := receiver.AbandonMessage(ctx, message, nil); abandonErr != nil {
					log.Error().Err(abandonErr).Str("message_id", message.MessageID).Msg("Failed to abandon message")
				}
				continue
			}

			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("Failed to complete message")
			}
		}
	}
}

// Close closes the underlying client
func (c *ServiceBusClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// isDisconnectionError checks if an error indicates a dropped AMQP link
func isDisconnectionError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "amqp: link detached") ||
		strings.Contains(msg, "awaiting send: context deadline exceeded")
}

// retryWithBackoff retries fn with exponential backoff, but only for
// disconnection errors; anything else fails immediately
func retryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var err error

	for retry := 0; retry < maxRetries; retry++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isDisconnectionError(err) {
			return err
		}

		backoff := time.Duration(1<<uint(retry)) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
