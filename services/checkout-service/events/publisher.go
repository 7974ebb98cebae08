package events

import (
	"context"
	"encoding/json"

	aws_pkg "github.com/shopcart/storefront/pkg/aws"
	"github.com/shopcart/storefront/services/checkout-service/models"
)

// Publisher delivers a raw message to a named topic. aws_pkg.SNSClient
// (topic = ARN) and KafkaPublisher (topic = Kafka topic) both satisfy it.
type Publisher = aws_pkg.SNSPublisher

// EventTypeOf reads the "type" field of a serialized OrderEvent.
func EventTypeOf(message []byte) string {
	var evt struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &evt); err != nil {
		return ""
	}
	return evt.Type
}

// Encode serializes an order event.
func Encode(evt models.OrderEvent) ([]byte, error) {
	return json.Marshal(evt)
}

// Decode accepts a raw OrderEvent or one wrapped in an SNS notification envelope.
func Decode(body string) (models.OrderEvent, error) {
	var envelope struct {
		Type    string `json:"Type"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Type == "Notification" && envelope.Message != "" {
		body = envelope.Message
	}

	var evt models.OrderEvent
	err := json.Unmarshal([]byte(body), &evt)
	return evt, err
}

// NopPublisher drops every message. Used when no event bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }
