package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/application/services"
	"github.com/catsite05/novelvoice/config"
	"github.com/catsite05/novelvoice/infrastructure/adapters"
	"github.com/catsite05/novelvoice/infrastructure/gin_interface/controllers"
)

func main() {
	cfg, err := config.Load(os.Getenv("NOVELVOICE_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	zeroLogger := adapters.NewZerologWrapper()

	panicHandler := func(p interface{}) {
		zeroLogger.Error(fmt.Errorf("%v", p), "Panic in worker pool")
	}

	workerPool, err := ants.NewPool(cfg.Server.WorkerPoolSize, ants.WithPanicHandler(panicHandler))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker pool")
	}
	defer workerPool.Release()

	oracle := adapters.NewLLMScriptOracle(zeroLogger, &cfg.Oracle)
	resolver := adapters.NewVoiceTableResolver(zeroLogger, &cfg.Voices)
	scriptCache := adapters.NewFileScriptCache(zeroLogger, cfg.Pipeline.ScriptCacheDir)
	resumeStore := adapters.NewFileResumeStore(zeroLogger, cfg.Pipeline.AudioDir)

	contentFetcher := adapters.NewContentFetcher(zeroLogger, cfg.TTS.Timeout)
	synthesizer := adapters.NewHTTPSpeechSynthesizer(contentFetcher, zeroLogger, &cfg.TTS)
	transcoder := adapters.NewFFMPEGTranscoder(zeroLogger)

	var taskArchive outbound.TaskArchivePort
	var artifactPublisher outbound.ArtifactPublisherPort
	if cfg.Storage.ArchiveTable != "" || cfg.Storage.PublishBucket != "" {
		sess := session.Must(session.NewSession(&aws.Config{Region: aws.String(cfg.Storage.Region)}))
		if cfg.Storage.ArchiveTable != "" {
			taskArchive = adapters.NewDynamoTaskArchive(zeroLogger, dynamodb.New(sess), &cfg.Storage)
		}
		if cfg.Storage.PublishBucket != "" {
			artifactPublisher = adapters.NewS3ArtifactPublisher(zeroLogger, &cfg.Storage)
		}
	}

	scriptStage := services.NewScriptGenerationStage(zeroLogger, oracle, resolver, scriptCache, services.ScriptStageConfig{
		Segmenter: services.SegmenterConfig{
			FirstTarget:  cfg.Pipeline.FirstSegmentTarget,
			SecondTarget: cfg.Pipeline.SecondSegmentTarget,
			Target:       cfg.Pipeline.SegmentTarget,
			MinTail:      cfg.Pipeline.MinTailLength,
		},
		MaxRetries: cfg.Oracle.MaxRetries,
		Backoff:    cfg.Oracle.Backoff,
	})

	synthesisStage := services.NewSynthesisStage(zeroLogger, synthesizer, resumeStore, services.SynthesisStageConfig{
		MaxRetries: cfg.TTS.MaxRetries,
		Backoff:    cfg.TTS.Backoff,
	})

	packagingStage := services.NewStreamPackagingStage(zeroLogger, transcoder, services.PackagingStageConfig{
		PollInterval:         cfg.Packager.PollInterval,
		MinDelta:             cfg.Packager.MinDelta,
		FirstSegmentDuration: cfg.Packager.FirstSegmentDuration,
		SegmentDuration:      cfg.Packager.SegmentDuration,
		FailureBudget:        cfg.Packager.FailureBudget,
	})

	manager := services.NewGenerationManager(zeroLogger, workerPool, scriptStage, synthesisStage,
		packagingStage, resumeStore, taskArchive, artifactPublisher, services.ManagerConfig{
			AudioDir:         cfg.Pipeline.AudioDir,
			HLSDir:           cfg.Packager.HLSDir,
			QueueCapacity:    cfg.Pipeline.QueueCapacity,
			QueuePushTimeout: cfg.Pipeline.QueuePushTimeout,
			TargetDuration:   cfg.Packager.SegmentDuration,
		})

	generationController := controllers.NewGenerationController(zeroLogger, manager)

	router := gin.Default()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Fatal().Err(err).Msg("Failed to set trusted proxies!")
	}

	generationController.RegisterRoutes(router)

	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server!")
	}
}
