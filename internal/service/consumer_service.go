package service

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-counseling-be/internal/dto"
	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/pkg/embedding"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService backfills embeddings for documents stored without a
// vector: a skill written while the embedding backend was down is published
// to the backfill topic and repaired here.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	secondary         contract.VectorStore
	embeddingProvider embedding.Provider
	log               logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	secondary contract.VectorStore,
	embeddingProvider embedding.Provider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		secondary:         secondary,
		embeddingProvider: embeddingProvider,
		log:               log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedSkillMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("service.consumer", "failed to unmarshal backfill message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // invalid messages would retry forever
		return
	}

	doc, err := cs.secondary.Get(ctx, payload.Collection, payload.SkillId)
	if err != nil {
		cs.log.Error("service.consumer", "failed to load document for backfill", map[string]interface{}{
			"collection": payload.Collection,
			"doc_id":     payload.SkillId,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}
	if doc == nil {
		msg.Ack() // document deleted in the meantime
		return
	}
	if doc.Embedding != nil {
		msg.Ack() // already repaired
		return
	}

	vector, err := cs.embeddingProvider.Generate(ctx, doc.Content)
	if err != nil {
		cs.log.Warn("service.consumer", "embedding backend still unavailable", map[string]interface{}{
			"collection": payload.Collection,
			"doc_id":     payload.SkillId,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}

	doc.Embedding = vector
	if err := cs.secondary.Update(ctx, payload.Collection, payload.SkillId, *doc); err != nil {
		cs.log.Error("service.consumer", "failed to store backfilled embedding", map[string]interface{}{
			"collection": payload.Collection,
			"doc_id":     payload.SkillId,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}

	cs.log.Info("service.consumer", "embedding backfilled", map[string]interface{}{
		"collection": payload.Collection,
		"doc_id":     payload.SkillId,
	})
	msg.Ack()
}
