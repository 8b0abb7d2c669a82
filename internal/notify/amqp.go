package notify

import (
	"context"       // Publish deadlines
	"encoding/json" // Message body
	"sync"          // Channel guard

	amqp "github.com/rabbitmq/amqp091-go" // RabbitMQ client
	"github.com/sirupsen/logrus"          // Logging library
)

// AMQPNotifier publishes messages to a durable topic exchange, routed by
// message type
type AMQPNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPNotifier dials the broker and declares the exchange
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// Durable so messages survive broker restarts
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

// Notify implements Notifier
func (n *AMQPNotifier) Notify(ctx context.Context, msg Message) error {
	pub, err := publishing(msg)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ch.PublishWithContext(ctx,
		n.exchange, // exchange
		msg.Type,   // routing key
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		logrus.WithFields(logrus.Fields{
			"message_id": msg.ID,      // Message id
			"type":       msg.Type,    // Message type
			"error":      err.Error(), // Broker error
		}).Error("rabbitmq: publish failed")
		return err
	}
	return nil
}

// Close releases the channel and connection
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_ = n.ch.Close()
	return n.conn.Close()
}

func publishing(msg Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    msg.ID,
		Type:         msg.Type,
		Timestamp:    msg.CreatedAt,
		Body:         body,
	}, nil
}
