package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/timex"
	"github.com/streadway/amqp"
)

const DefaultQueue = "budget_alerts"

// AlertMessage is the JSON body published for every alert.
type AlertMessage struct {
	AlertID       string `json:"alertId"`
	BudgetID      string `json:"budgetId"`
	OwnerID       string `json:"ownerId"`
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	CurrentAmount string `json:"currentAmount"`
	BudgetAmount  string `json:"budgetAmount"`
	Percentage    int    `json:"percentage"`
	Period        string `json:"period"`
	Category      string `json:"category,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func messageOf(a models.Alert) AlertMessage {
	return AlertMessage{
		AlertID:       a.ID,
		BudgetID:      a.BudgetID,
		OwnerID:       a.OwnerID,
		Kind:          string(a.Kind),
		Message:       a.Message,
		CurrentAmount: a.CurrentAmount.String(),
		BudgetAmount:  a.BudgetAmount.String(),
		Percentage:    a.Percentage,
		Period:        string(a.Period),
		Category:      a.Category,
		CreatedAt:     timex.FormatInstant(a.CreatedAt),
	}
}

type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes alerts to a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel channel
	queue   string
}

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, queue: q.Name}, nil
}

func (p *AMQPPublisher) Notify(_ context.Context, a models.Alert) error {
	body, err := json.Marshal(messageOf(a))
	if err != nil {
		return err
	}

	err = p.channel.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    a.ID,
		Timestamp:    a.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish alert %s: %w", a.ID, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
