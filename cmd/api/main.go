package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/waveline/engage-gateway/internal/campaign"
	"github.com/waveline/engage-gateway/internal/config"
	gateway "github.com/waveline/engage-gateway/internal/gateways"
	"github.com/waveline/engage-gateway/internal/handlers"
	"github.com/waveline/engage-gateway/internal/queue"
	"github.com/waveline/engage-gateway/internal/repository"
	"github.com/waveline/engage-gateway/internal/services"
	xhttp "github.com/waveline/engage-gateway/pkg/http"
	"github.com/waveline/engage-gateway/pkg/logger"
	"github.com/waveline/engage-gateway/pkg/pg"
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

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

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

	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
	}

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

	dispatcher := campaign.NewDispatcher(
		campaignRepo,
		contactRepo,
		conversationRepo,
		messageRepo,
		client,
		config.Get().CampaignSendInterval,
	)

	// services
	phoneNorm := services.NewPhoneNormalizer(config.Get().PhoneDefaultRegion)
	webhookService := services.NewWebhookService(q, phoneNorm)
	campaignService := services.NewCampaignService(campaignRepo, dispatcher)
	triggerService := services.NewTriggerService(triggerRepo)
	engagementService := services.NewEngagementService(contactRepo, conversationRepo, messageRepo, phoneNorm)
	healthService := services.NewHealthService(db, redisAdap)

	// v1 handlers
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	campaignHandler := handlers.NewCampaignHandler(campaignService)
	triggerHandler := handlers.NewTriggerHandler(triggerService)
	engagementHandler := handlers.NewEngagementHandler(engagementService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterWebhookRoutes(g, webhookHandler)
	handlers.RegisterCampaignRoutes(g, campaignHandler)
	handlers.RegisterTriggerRoutes(g, triggerHandler)
	handlers.RegisterEngagementRoutes(g, engagementHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		client.Stop()
		s.Shutdown()
	}
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
