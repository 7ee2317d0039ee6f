package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sealdrop/sealdrop/internal/config"
	"github.com/sealdrop/sealdrop/internal/db"
	"github.com/sealdrop/sealdrop/internal/geo"
	"github.com/sealdrop/sealdrop/internal/repository"
	"github.com/sealdrop/sealdrop/internal/service"
	"github.com/sealdrop/sealdrop/internal/storage"
)

type App struct {
	Cfg *config.Config
	DB  *sqlx.DB
	Geo geo.Resolver

	AuthService          *service.AuthService
	FileService          *service.FileService
	ShardService         *service.ShardService
	PolicyService        *service.PolicyService
	SessionService       *service.SessionService
	RevocationService    *service.RevocationService
	AccessRequestService *service.AccessRequestService
	AuditService         *service.AuditService
	EmailService         *service.EmailService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	fileRepository := repository.NewFileRepository(database)
	shardRepository := repository.NewShardRepository(database)
	sessionRepository := repository.NewSessionRepository(database)
	requestRepository := repository.NewAccessRequestRepository(database)
	logRepository := repository.NewAccessLogRepository(database)

	// Storage
	blobStore, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	resolver := geo.NewHTTPResolver(cfg.GeoEndpoint, cfg.GeoTimeout)

	// Services
	emailService := service.NewEmailService(cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppName, cfg.IsDevelopment())
	auditService := service.NewAuditService(logRepository)
	shardService := service.NewShardService(shardRepository, cfg.ShardCount)
	policyService := service.NewPolicyService(requestRepository)
	sessionService := service.NewSessionService(sessionRepository, fileRepository, auditService, cfg.HeartbeatInterval)
	fileService := service.NewFileService(
		fileRepository,
		userRepository,
		shardService,
		blobStore,
		policyService,
		sessionService,
		auditService,
	)
	revocationService := service.NewRevocationService(
		fileRepository,
		requestRepository,
		userRepository,
		shardService,
		sessionService,
		blobStore,
		auditService,
		emailService,
	)
	requestService := service.NewAccessRequestService(
		requestRepository,
		fileRepository,
		userRepository,
		auditService,
		emailService,
	)
	authService := service.NewAuthService(userRepository, cfg.JWTSecret, cfg.JWTExpiry, cfg.IsProduction())

	return &App{
		Cfg:                  cfg,
		DB:                   database,
		Geo:                  resolver,
		AuthService:          authService,
		FileService:          fileService,
		ShardService:         shardService,
		PolicyService:        policyService,
		SessionService:       sessionService,
		RevocationService:    revocationService,
		AccessRequestService: requestService,
		AuditService:         auditService,
		EmailService:         emailService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
