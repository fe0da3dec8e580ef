package main

import (
	"context"
	"encoding/base64"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activation_server/config"
	"activation_server/controller"
	"activation_server/crypto"
	"activation_server/repository"
	"activation_server/services"

	"github.com/IBM/sarama"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type service struct {
	// DB
	dbConnection *gorm.DB

	// Redis client
	redisClient *redis.Client

	// Kafka producer for activation change events
	kafkaProducer sarama.SyncProducer

	// Repository
	activationRepository  repository.IActivationRepository
	applicationRepository repository.IApplicationRepository
	auditRepository       repository.IAuditRepository
	recoveryRepository    repository.IRecoveryRepository
	tokenRepository       repository.ITokenRepository
	integrationRepository repository.IIntegrationRepository

	// Service
	redisService       services.IRedisService
	callbackService    services.ICallbackService
	auditService       services.IAuditService
	activationService  *services.ActivationService
	signatureService   services.ISignatureService
	tokenService       services.ITokenService
	vaultService       services.IVaultService
	recoveryService    services.IRecoveryService
	applicationService services.IApplicationService
	integrationService services.IIntegrationService
	systemService      services.ISystemService

	// Controller
	activationController  controller.IActivationController
	signatureController   controller.ISignatureController
	applicationController controller.IApplicationController
	recoveryController    controller.IRecoveryController
	systemController      controller.ISystemController
}

func (s *service) Start() {
	log.Info("Opening database connection...")
	s.dbConnection = config.OpenDatabaseConnection(config.Conf.Application.Datasource.PrimaryURL)
	config.Migrate(config.Conf.Application.Datasource.PrimaryURL)

	log.Info("Opening redis connection...")
	s.redisClient = config.ConnectToRedis(config.Conf.Application.Redis.Host)

	if len(config.Conf.Application.Kafka.Brokers) > 0 {
		log.Info("Connecting Kafka producer...")
		producer, err := sarama.NewSyncProducer(config.Conf.Application.Kafka.Brokers, nil)
		if err != nil {
			log.Panic("Failed to create Kafka producer")
		}
		s.kafkaProducer = producer
	}

	s.DependencyInjection()

	app := NewServer(s.activationController, s.signatureController, s.applicationController, s.recoveryController, s.systemController, s.integrationService).Start()

	log.Info("Server starting..")
	go func() {
		if err := app.Listen(config.Conf.Application.Server.Port); err != nil {
			log.Fatal("Server failed to start")
		}
	}()
	s.gracefulShutdown(app)
}

func (s *service) DependencyInjection() {
	clock := services.SystemClock()
	runTx := services.NewGormTxRunner(s.dbConnection, config.Conf.Application.Datasource.LockTimeoutMillis)

	masterKey, err := base64.StdEncoding.DecodeString(config.Conf.Application.MasterDBEncryptionKey)
	if err != nil {
		log.Panic("Master DB encryption key is not valid base64")
	}
	keyCodec := crypto.NewServerPrivateKeyCodec(masterKey)

	// Repositories
	s.activationRepository = repository.NewActivationRepository()
	s.applicationRepository = repository.NewApplicationRepository()
	s.auditRepository = repository.NewAuditRepository()
	s.recoveryRepository = repository.NewRecoveryRepository()
	s.tokenRepository = repository.NewTokenRepository()
	s.integrationRepository = repository.NewIntegrationRepository()

	// Services
	s.redisService = services.NewRedisService(s.redisClient)
	s.callbackService = services.NewCallbackService(s.dbConnection, s.integrationRepository, s.kafkaProducer)
	s.auditService = services.NewAuditService(s.dbConnection, runTx, s.auditRepository, clock)
	s.activationService = services.NewActivationService(
		s.dbConnection, runTx,
		s.activationRepository, s.applicationRepository,
		s.auditService, s.callbackService, s.redisService,
		keyCodec, clock, services.ActivationConfigFromGlobal())
	s.signatureService = services.NewSignatureService(
		s.dbConnection, runTx,
		s.activationRepository, s.applicationRepository,
		s.auditService, s.callbackService, s.redisService,
		keyCodec, clock, services.SignatureConfigFromGlobal())
	s.tokenService = services.NewTokenService(s.dbConnection, runTx, s.tokenRepository, s.activationRepository, clock, services.TokenConfigFromGlobal())
	s.vaultService = services.NewVaultService(s.signatureService, s.activationService)
	s.recoveryService = services.NewRecoveryService(
		s.dbConnection, runTx,
		s.recoveryRepository, s.applicationRepository, s.redisService,
		s.activationService, clock, services.RecoveryConfigFromGlobal())
	s.activationService.SetRecoveryIssuer(s.recoveryService)
	s.applicationService = services.NewApplicationService(s.dbConnection, runTx, s.applicationRepository, s.redisService, clock)
	s.integrationService = services.NewIntegrationService(s.dbConnection, runTx, s.integrationRepository, clock)
	s.systemService = services.NewSystemService(clock)

	// Controllers
	s.activationController = controller.NewActivationController(s.activationService)
	s.signatureController = controller.NewSignatureController(s.signatureService, s.vaultService, s.tokenService)
	s.applicationController = controller.NewApplicationController(s.applicationService, s.integrationService, s.auditService)
	s.recoveryController = controller.NewRecoveryController(s.recoveryService)
	s.systemController = controller.NewSystemController(s.systemService)
}

func (s *service) gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error("Server shutdown failed")
	}
	s.callbackService.Shutdown()
	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			log.Error("Kafka producer close failed")
		}
	}
	config.CloseDatabaseConnection(s.dbConnection)
	log.Info("Server stopped")
}
