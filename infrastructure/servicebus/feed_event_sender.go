package servicebus

import (
	"context"
	"encoding/json"
	"time"

	"instagram-feed/domain/model"
	"instagram-feed/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

const sendTimeout = 5 * time.Second

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// FeedEventSender forwards feed events to a Service Bus queue.
type FeedEventSender struct {
	queue     string
	newSender func(queue string) (messageSender, error)
}

func NewFeedEventSender(client *azservicebus.Client, queue string) *FeedEventSender {
	return &FeedEventSender{
		queue: queue,
		newSender: func(queue string) (messageSender, error) {
			return client.NewSender(queue, nil)
		},
	}
}

func (s *FeedEventSender) SendFeedEvent(ctx context.Context, evt model.FeedEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	sender, err := s.newSender(s.queue)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}()

	subject := evt.Type
	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:                  body,
		Subject:               &subject,
		ContentType:           &contentType,
		ApplicationProperties: map[string]interface{}{"key": evt.Key},
	}
	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

// Broadcast sends evt in the background; failures are logged only.
func (s *FeedEventSender) Broadcast(evt model.FeedEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.SendFeedEvent(ctx, evt); err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{"error": err, "queue": s.queue}).Warn("failed sending feed event")
		}
	}()
}
