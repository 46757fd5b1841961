package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/waveline/engage-gateway/internal/analysis"
	"github.com/waveline/engage-gateway/internal/campaign"
	"github.com/waveline/engage-gateway/internal/config"
	gateway "github.com/waveline/engage-gateway/internal/gateways"
	"github.com/waveline/engage-gateway/internal/handover"
	"github.com/waveline/engage-gateway/internal/intake"
	"github.com/waveline/engage-gateway/internal/repository"
	"github.com/waveline/engage-gateway/internal/trigger"
	"github.com/waveline/engage-gateway/pkg/logger"
	"github.com/waveline/engage-gateway/pkg/pg"
	"github.com/waveline/engage-gateway/pkg/prom"
	"github.com/waveline/engage-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill, os.Interrupt, syscall.SIGTERM)

	transportCfg := &gateway.Config{
		Providers: []gateway.ProviderConfig{
			{Name: "primary", URL: config.Get().ProviderPrimaryUrl, Weight: 100},
			{Name: "secondary", URL: config.Get().ProviderSecondaryUrl, Weight: 80},
			{Name: "backup", URL: config.Get().ProviderBackupUrl, Weight: 60},
		},
		Timeout:                 config.Get().TransportTimeout,
		MaxRetries:              3,
		RetryDelay:              time.Millisecond * 100,
		MaxConns:                1000,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	}
	client, err := gateway.NewClient(transportCfg)
	if err != nil {
		logger.Error("failed to create gateway", "error", err)
		return
	}

	contactRepo := repository.NewContactRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	triggerRepo := repository.NewTriggerRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	classifier, err := buildClassifier()
	if err != nil {
		logger.Error("failed to create classifier", "error", err)
		return
	}
	safeClassifier := analysis.NewSafeClassifier(classifier, config.Get().AnalysisTimeout)

	triggerEngine := trigger.NewEngine(
		triggerRepo,
		trigger.NewWebhookExecutor(config.Get().TriggerActionTimeout),
		config.Get().TriggerActionTimeout,
	)

	handoverUnit := handover.NewUnit(
		safeClassifier,
		messageRepo,
		conversationRepo,
		client,
		config.Get().HandoverConfidenceThreshold,
	)

	pipeline := intake.NewPipeline(
		contactRepo,
		conversationRepo,
		messageRepo,
		analyticsRepo,
		safeClassifier,
		triggerEngine,
		handoverUnit,
		intake.PipelineConfig{ContextWindow: config.Get().AnalysisContextWindow},
	)

	contactLock := intake.NewContactLock(redisAdap, config.Get().ContactLockTTL)

	service, err := intake.NewService(redisAdap)
	if err != nil {
		logger.Error("failed to create intake service", "error", err)
		return
	}
	service.RegisterProcessor(intake.NewEventProcessor(pipeline, contactLock))

	dispatcher := campaign.NewDispatcher(
		campaignRepo,
		contactRepo,
		conversationRepo,
		messageRepo,
		client,
		config.Get().CampaignSendInterval,
	)
	scheduler := campaign.NewScheduler(campaignRepo, dispatcher, config.Get().CampaignScheduleSpec)

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		if err := service.Start(); err != nil {
			logger.Error("failed to start intake service", "error", err)
		}
	}()

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start campaign scheduler", "error", err)
		return
	}

	select {
	case <-c:
		scheduler.Stop()
		service.Stop()
		client.Stop()
	}
}

func buildClassifier() (analysis.Classifier, error) {
	if config.Get().AnalysisBackend == "openai" {
		return analysis.NewOpenAIClient(analysis.OpenAIConfig{
			APIKey: config.Get().OpenAIAPIKey,
			Model:  config.Get().OpenAIModel,
		})
	}
	return analysis.NewHTTPClient(analysis.HTTPClientConfig{
		BaseURL: config.Get().AnalysisURL,
		Timeout: config.Get().AnalysisTimeout,
	})
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
