package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/assist-platform/internal/notify"
)

// Publisher hands confirmed escalations to cmd/worker, which runs the channel
// fan-out outside the request path.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := DeclareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

// DeclareTopology declares the main queue and its dead-letter queue. Publisher
// and worker both call it so either may start first.
func DeclareTopology(ch *amqp.Channel, queue string) error {
	dlq := queue + ".dlq"

	if _, err := ch.QueueDeclare(
		dlq,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		return err
	}

	// rejected (undecodable) messages go to the DLQ; notifications are never requeued
	_, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlq,
		},
	)
	return err
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Notify implements notify.Notifier by enqueuing n.
func (p *Publisher) Notify(ctx context.Context, n notify.Notification) error {
	body, err := Encode(n)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    n.EscalationID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

var ErrBadMessage = errors.New("rabbitmq: bad notification message")

func Encode(n notify.Notification) ([]byte, error) {
	return json.Marshal(n)
}

func Decode(body []byte) (notify.Notification, error) {
	var n notify.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return notify.Notification{}, errors.Join(ErrBadMessage, err)
	}
	if n.EscalationID == "" || n.TenantID == "" {
		return notify.Notification{}, ErrBadMessage
	}
	return n, nil
}
