package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"instagram-feed/domain/model"
	"instagram-feed/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

const publishTimeout = 5 * time.Second

var errNoClient = errors.New("pubsub client not configured")

// FeedPublisher publishes feed-updated events to a Pub/Sub topic.
type FeedPublisher struct {
	client    *pubsub.Client
	topicName string

	mu    sync.Mutex
	topic *pubsub.Topic
}

func NewFeedPublisher(client *pubsub.Client, topicName string) *FeedPublisher {
	return &FeedPublisher{client: client, topicName: topicName}
}

// PublishFeedEvent publishes evt and returns the server-assigned message id.
// The topic is created on first use if it does not exist.
func (p *FeedPublisher) PublishFeedEvent(ctx context.Context, evt model.FeedEvent) (string, error) {
	if p.client == nil || p.topicName == "" {
		return "", errNoClient
	}
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}
	msg := &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"type": evt.Type, "key": evt.Key},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", err
	}
	logger.GetLogger().WithFields(map[string]interface{}{"serverID": serverID, "key": evt.Key}).Info("Feed event published")
	return serverID, nil
}

// Broadcast publishes in the background so the refresh path never waits on
// Pub/Sub. Failures are logged.
func (p *FeedPublisher) Broadcast(evt model.FeedEvent) {
	if p.client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if _, err := p.PublishFeedEvent(ctx, evt); err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{"error": err, "topic": p.topicName}).Warn("failed publishing feed event")
		}
	}()
}

func (p *FeedPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		return p.topic, nil
	}

	topic := p.client.Topic(p.topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
		if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
			return nil, err
		}
	}
	p.topic = topic
	return topic, nil
}

// Stop flushes pending messages.
func (p *FeedPublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		p.topic.Stop()
	}
}
