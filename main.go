package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"instagram-feed/domain/repository"
	"instagram-feed/infrastructure/cache"
	"instagram-feed/infrastructure/clients/instagram"
	"instagram-feed/infrastructure/configuration"
	"instagram-feed/infrastructure/logger"
	"instagram-feed/infrastructure/persistence"
	"instagram-feed/infrastructure/pubsub"
	"instagram-feed/infrastructure/realtime"
	"instagram-feed/infrastructure/servicebus"
	"instagram-feed/infrastructure/utils"
	httpHandler "instagram-feed/interfaces/http"
	"instagram-feed/server"
	"instagram-feed/usecase"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/errgroup"
)

const platformInstagram = "instagram"

var (
	httpServer  *http.Server
	mongoClient *mongo.Client
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()

	// Load env from files (non-destructive; OS env still has precedence)
	loaded := configuration.LoadEnvFromFile("config.env", ".env")
	logger.GetLogger().WithField("files", loaded).Info("Environment files loaded")

	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(printAdminToken(os.Args[2:]))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	app := configuration.C.App
	igConfig := configuration.GetInstagramConfig()
	logger.GetLogger().WithFields(map[string]interface{}{
		"strategy":       igConfig.Strategy,
		"clientIDSet":    igConfig.ClientID != "",
		"hasAccessToken": igConfig.AccessToken != "",
		"accountIDSet":   igConfig.AccountID != "",
		"feedTTL":        igConfig.FeedTTL.String(),
		"autoRenew":      igConfig.AutoRenew,
	}).Info("Loaded Instagram configuration state")

	db, vendor, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Database not available - credentials and snapshots will live in memory only")
		db = nil
	}

	var credentialRepo repository.ICredentialRepository
	if db != nil {
		credentialRepo = credentialRepository(db, vendor)
	}
	store := usecase.NewCredentialStore(platformInstagram, credentialRepo, usecase.BootstrapCredential(igConfig.AccessToken, igConfig.AccountID, time.Now()))

	strategy, err := instagram.StrategyFor(igConfig.Strategy, igConfig.GraphVersion)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Unknown strategy, falling back to instagram")
		strategy = instagram.InstagramStrategy()
	}
	client := instagram.NewClient(instagram.Config{
		ClientID:      igConfig.ClientID,
		ClientSecret:  igConfig.ClientSecret,
		RedirectURL:   igConfig.RedirectURL,
		AccountID:     igConfig.AccountID,
		Strategy:      strategy,
		Scopes:        igConfig.Scopes,
		Timeout:       igConfig.RequestTimeout,
		RenewalWindow: igConfig.RenewalWindow,
	})

	feedCache := usecase.NewFeedCache()
	if snapshot := initiateSnapshot(ctx, db, vendor); snapshot != nil {
		feedCache = feedCache.WithSnapshot(snapshot)
	}

	hub := realtime.NewFeedHub()
	feedUsecase := usecase.NewFeedUsecase(store, client, feedCache, usecase.FeedOptions{
		Provider:     igConfig.Provider,
		TTL:          igConfig.FeedTTL,
		DefaultLimit: igConfig.DefaultLimit,
		MaxLimit:     igConfig.MaxLimit,
	}).WithBroadcaster(hub.Broadcast)

	if publisher := initiatePublisher(ctx); publisher != nil {
		feedUsecase = feedUsecase.WithBroadcaster(publisher.Broadcast)
		defer publisher.Stop()
	}
	if sender := initiateServiceBus(); sender != nil {
		feedUsecase = feedUsecase.WithBroadcaster(sender.Broadcast)
	}

	authUsecase := usecase.NewAuthUsecase(client, store, usecase.AuthOptions{
		Strategy:      strategy.Name,
		RenewalWindow: igConfig.RenewalWindow,
	}).WithCredentialListener(feedUsecase.ExpireAll)

	router := server.InitiateRouter(
		server.RouterConfig{SecretKey: app.SecretKey, AllowedOrigins: app.AllowedOrigins},
		httpHandler.NewFeedHandler(feedUsecase),
		httpHandler.NewInstagramAuthHandler(authUsecase, igConfig.Configured(), app.AllowedOrigins),
		httpHandler.NewHealthHandler(authUsecase),
		hub.Serve,
	)

	if igConfig.AutoRenew {
		interval := igConfig.RenewalCheckInterval
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				renewCtx, cancelRenew := context.WithTimeout(ctx, igConfig.RequestTimeout*3)
				if err := authUsecase.RenewIfDue(renewCtx); err != nil {
					logger.GetLogger().WithField("error", err).Warn("Scheduled credential renewal failed")
				}
				cancelRenew()
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// SSE streams stay open, so no write timeout.
			WriteTimeout: 0,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
		} else {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if db != nil {
		_ = db.Close()
	}
	if mongoClient != nil {
		_ = mongoClient.Disconnect(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase opens the credential database. Production and DB_VENDOR=mssql
// use SQL Server; everything else uses PostgreSQL. The schema is created on the way.
func InitiateDatabase() (*sql.DB, string, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, "", err
		}
		if err := persistence.EnsureSchemaMSSQL(mssql); err != nil {
			_ = mssql.Close()
			return nil, "", err
		}
		return mssql, "mssql", nil
	}

	postgres, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, "", err
	}
	if err := persistence.EnsureSchema(postgres); err != nil {
		_ = postgres.Close()
		return nil, "", err
	}
	return postgres, "postgres", nil
}

func credentialRepository(db *sql.DB, vendor string) repository.ICredentialRepository {
	if vendor == "mssql" {
		return persistence.NewCredentialRepositoryMSSQL(db)
	}
	return persistence.NewCredentialRepository(db)
}

func initiateSnapshot(ctx context.Context, db *sql.DB, vendor string) repository.IFeedSnapshot {
	switch configuration.C.Snapshot.Backend {
	case configuration.SnapshotRedis:
		rc := configuration.C.RedisClient
		client, err := cache.NewCache(ctx, fmt.Sprintf("%s:%s", rc.Host, rc.Port), rc.Username, rc.Password)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Redis not available - feed snapshots disabled")
			return nil
		}
		logger.GetLogger().Info("Feed snapshots stored in Redis")
		return cache.NewFeedSnapshotRedis(client)
	case configuration.SnapshotPostgres:
		if db == nil {
			logger.GetLogger().Warn("Snapshot backend needs a database - feed snapshots disabled")
			return nil
		}
		logger.GetLogger().WithField("vendor", vendor).Info("Feed snapshots stored in the database")
		if vendor == "mssql" {
			return persistence.NewFeedSnapshotRepositoryMSSQL(db)
		}
		return persistence.NewFeedSnapshotRepository(db)
	case configuration.SnapshotMongo:
		mc := configuration.C.Database.Mongo
		client, err := persistence.NewMongoDb(ctx, mc)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("MongoDB not available - feed snapshots disabled")
			return nil
		}
		mongoClient = client
		logger.GetLogger().WithField("database", mc.Name).Info("Feed snapshots stored in MongoDB")
		return persistence.NewFeedSnapshotRepositoryFromClient(client, mc.Name)
	default:
		return nil
	}
}

func initiatePublisher(ctx context.Context) *pubsub.FeedPublisher {
	ps := configuration.C.Pubsub
	if ps.ProjectID == "" || ps.Topic == "" {
		logger.GetLogger().Info("Pub/Sub not configured - feed events stay in-process")
		return nil
	}
	client, err := pubsub.NewPubSub(ctx, ps.ProjectID, ps.CredentialsFile)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - feed events stay in-process")
		return nil
	}
	return pubsub.NewFeedPublisher(client, ps.Topic)
}

func initiateServiceBus() *servicebus.FeedEventSender {
	sb := configuration.C.ServiceBus
	if sb.Namespace == "" || sb.Queue == "" {
		return nil
	}
	client, err := servicebus.NewServiceBus(sb.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus features")
		return nil
	}
	return servicebus.NewFeedEventSender(client, sb.Queue)
}

// printAdminToken issues a bearer token for the admin routes.
func printAdminToken(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: instagram-feed token <username> [ttl]")
		return 1
	}
	ttl := 24 * time.Hour
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid ttl %q: %v\n", args[1], err)
			return 1
		}
		ttl = d
	}
	token, err := utils.GenerateAdminToken(args[0], configuration.C.App.SecretKey, ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(token)
	return 0
}
