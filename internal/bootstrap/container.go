package bootstrap

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"

	"ai-counseling-be/internal/config"
	"ai-counseling-be/internal/controller"
	"ai-counseling-be/internal/dto"
	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/internal/repository/implementation"
	"ai-counseling-be/internal/service"
	"ai-counseling-be/pkg/counseling"
	"ai-counseling-be/pkg/counseling/evaluator"
	"ai-counseling-be/pkg/counseling/flow"
	"ai-counseling-be/pkg/embedding"
	"ai-counseling-be/pkg/memory"
	"ai-counseling-be/pkg/oracle/ollama"
)

type Container struct {
	Logger logger.ILogger

	SessionController  controller.ISessionController
	RecordController   controller.IRecordController
	TrainingController controller.ITrainingController

	ConsumerService service.IConsumerService
	Synchronizer    *memory.Synchronizer
}

// NewContainer wires the full dependency graph. Startup reconciliation runs
// to completion here, before any traffic is served: the repositories assume
// collections already exist.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	oracleProvider := ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel, 120*time.Second)
	embedder := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)

	primary := implementation.NewDocumentStore(db)
	secondary := implementation.NewVectorStore(db)
	index := implementation.NewVectorIndex(db)
	sessionRepo := implementation.NewSessionRepository(db)
	skillRepo := implementation.NewSkillMemoryRepository(primary, secondary, embedder, log)
	recordRepo := implementation.NewMedicalRecordRepository(primary, secondary, embedder, log)
	featureRepo := implementation.NewFeatureVectorRepository(primary, secondary, index, embedder, log)

	synchronizer := memory.NewSynchronizer(primary, secondary, index, embedder, log, cfg.Counseling.TherapyModalities)
	ctx := context.Background()
	if _, err := synchronizer.Reconcile(ctx); err != nil {
		return nil, err
	}
	if err := synchronizer.SeedDefaultSkills(ctx); err != nil {
		return nil, err
	}

	flowCfg, err := counseling.LoadConfig(cfg.Counseling.StageConfigPath)
	if err != nil {
		log.Warn("bootstrap", "stage config load failed, using defaults", map[string]interface{}{
			"path":  cfg.Counseling.StageConfigPath,
			"error": err.Error(),
		})
	}
	caps := counseling.Capabilities{
		Profiler: cfg.Counseling.ProfilerEnabled,
		Memory:   cfg.Counseling.MemoryEnabled,
	}

	// Client is set per run: a Runner for live sessions, a StudentAgent
	// for training passes.
	baseParams := flow.ControllerParams{
		Agents:     flow.NewAgents(oracleProvider, skillRepo, caps, log),
		Evaluator:  evaluator.New(oracleProvider, flowCfg, log),
		Sessions:   sessionRepo,
		Records:    recordRepo,
		Features:   featureRepo,
		Skills:     skillRepo,
		Config:     flowCfg,
		Caps:       caps,
		Modalities: cfg.Counseling.TherapyModalities,
		Logger:     log,
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	publisher := service.NewPublisherService(cfg.Counseling.EmbedBackfillTopic, pubSub)
	consumer := service.NewConsumerService(pubSub, cfg.Counseling.EmbedBackfillTopic, secondary, embedder, log)

	// Queue deferred embedding generation for anything reconciliation
	// left without a vector.
	requeueUnembedded(ctx, secondary, publisher, log, cfg.Counseling.TherapyModalities)

	sessionService := service.NewSessionService(baseParams, sessionRepo, log)
	recordService := service.NewRecordService(recordRepo)
	trainingService := service.NewTrainingService(baseParams, oracleProvider, cfg.Counseling.RosterPath, log)

	return &Container{
		Logger:             log,
		SessionController:  controller.NewSessionController(sessionService),
		RecordController:   controller.NewRecordController(recordService),
		TrainingController: controller.NewTrainingController(trainingService),
		ConsumerService:    consumer,
		Synchronizer:       synchronizer,
	}, nil
}

func requeueUnembedded(
	ctx context.Context,
	secondary contract.VectorStore,
	publisher service.IPublisherService,
	log logger.ILogger,
	therapyTypes []string,
) {
	for _, collection := range memory.AllCollections(therapyTypes) {
		docs, err := secondary.List(ctx, collection)
		if err != nil {
			log.Warn("bootstrap", "backfill scan failed", map[string]interface{}{
				"collection": collection,
				"error":      err.Error(),
			})
			continue
		}
		for _, doc := range docs {
			if doc.Embedding != nil || doc.Content == "" {
				continue
			}
			payload, err := json.Marshal(dto.PublishEmbedSkillMessage{
				Collection: collection,
				SkillId:    doc.Id,
			})
			if err != nil {
				continue
			}
			if err := publisher.Publish(ctx, payload); err != nil {
				log.Warn("bootstrap", "backfill publish failed", map[string]interface{}{
					"collection": collection,
					"doc_id":     doc.Id,
					"error":      err.Error(),
				})
			}
		}
	}
}
