package queue

import (
	"github.com/OFFIS-RIT/ownernet/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// MaxDeliveryRetries is how often a message goes through the retry queue
// before it is parked in the dead-letter queue.
const MaxDeliveryRetries = 10

// Retries returns the x-retries header of a delivery.
func Retries(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// HandleProcessingError routes a failed delivery to the retry queue, or to
// the dead-letter queue once it is out of retries or permanent is set. The
// original delivery is acked after the copy is published and requeued if
// publishing fails.
func HandleProcessingError(ch Channel, msg amqp091.Delivery, queueName string, permanent bool) {
	retries := Retries(msg.Headers)

	if permanent || retries >= MaxDeliveryRetries {
		dlqName := queueName + "_dlq"
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName, "retries", retries)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp091.Publishing{
				ContentType: msg.ContentType,
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			_ = msg.Nack(false, true)
			return
		}
		_ = msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp091.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
