// Package notify adapts the external push-notification collaborator.
// Delivery is best-effort and fire-and-forget: lifecycle operations never
// fail because a notification could not be dispatched.
package notify

import (
	"context"
	"encoding/json"
	"log"

	"booking-service/pkg/kafka"
)

// Notifier dispatches one notification to a recipient address (the device
// token stored on the passenger or driver document).
type Notifier interface {
	Notify(ctx context.Context, recipient, title, body string, data map[string]string)
}

// Message is the payload handed to the delivery service.
type Message struct {
	Recipient string            `json:"recipient"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}

// Dispatcher publishes notifications to the delivery service's Kafka topic.
type Dispatcher struct {
	kafka *kafka.Client
}

// NewDispatcher wires a dispatcher to the Kafka client.
func NewDispatcher(k *kafka.Client) *Dispatcher {
	return &Dispatcher{kafka: k}
}

// Notify publishes the message. Failures are logged only.
func (d *Dispatcher) Notify(ctx context.Context, recipient, title, body string, data map[string]string) {
	if recipient == "" {
		log.Printf("[notify] dropped %q: recipient has no device token", title)
		return
	}
	msg := Message{Recipient: recipient, Title: title, Body: body, Data: data}
	if err := d.kafka.Publish(ctx, kafka.TopicNotifications, recipient, msg); err != nil {
		log.Printf("[notify] failed to dispatch %q to %s: %v", title, recipient, err)
	}
}

// RunDelivery consumes queued notifications and delivers them to devices.
// Delivery is a log line until a push provider is plugged in; a payload
// that fails to decode is dropped, not retried.
func RunDelivery(ctx context.Context, k *kafka.Client) {
	k.Subscribe(ctx, kafka.TopicNotifications, "notify-delivery", func(raw []byte) error {
		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}
		log.Printf("[notify] push to %s: %s", m.Recipient, m.Title)
		return nil
	})
}
