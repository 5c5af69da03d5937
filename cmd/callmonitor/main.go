package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"callmonitor/pkg/config"
	"callmonitor/pkg/events"
	http_server "callmonitor/pkg/http"
	"callmonitor/pkg/messaging"
	"callmonitor/pkg/metrics"
	"callmonitor/pkg/models"
	"callmonitor/pkg/simulation"
	"callmonitor/pkg/store"
	"callmonitor/pkg/summary"
	"callmonitor/pkg/util"
	"callmonitor/pkg/version"
)

var (
	logger     = logrus.New()
	appConfig  *config.Config
	dataStore  store.Store
	broker     *events.Broker
	engine     *simulation.Engine
	amqpClient *messaging.AMQPClient
	wsHub      *http_server.Hub
	httpServer *http_server.Server
	hotReload  *config.HotReloadManager

	// Context for graceful shutdown
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func main() {
	rootCtx, rootCancel = context.WithCancel(context.Background())
	defer rootCancel()

	if err := initialize(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	go wsHub.Run(rootCtx)
	httpServer.Start()

	if appConfig.Simulation.AutoStart {
		if err := engine.Start(rootCtx); err != nil {
			logger.WithError(err).Error("Failed to start simulation")
		}
	}

	if hotReload != nil {
		if err := hotReload.Start(); err != nil {
			logger.WithError(err).Warn("Simulation config hot reload unavailable")
			hotReload = nil
		}
	}

	logger.WithFields(logrus.Fields{
		"version": version.Version,
		"port":    appConfig.HTTP.Port,
	}).Info("Call monitor started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Received shutdown signal, cleaning up...")

	shutdown()
}

func initialize() error {
	var err error
	appConfig, err = config.Load(logger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := appConfig.ApplyLogging(logger); err != nil {
		return fmt.Errorf("failed to apply logging configuration: %w", err)
	}

	metrics.StartMetrics(logger, appConfig.HTTP.EnableMetrics)

	if dataStore, err = openStore(); err != nil {
		return err
	}
	if appConfig.Store.CleanOnStart {
		cleanupStaleRecords(rootCtx)
	}

	broker = events.NewBroker(logger, appConfig.Events.BufferSize)

	wsHub = http_server.NewHub(logger)
	if _, err := broker.Subscribe(wsHub); err != nil {
		return fmt.Errorf("failed to subscribe websocket hub: %w", err)
	}

	if appConfig.Messaging.Enabled() {
		initAMQP()
	}

	var primary summary.Summarizer
	if appConfig.Summarizer.Enabled() {
		primary = summary.NewLLMClient(logger, summary.LLMConfig{
			APIKey: appConfig.Summarizer.APIKey,
			APIURL: appConfig.Summarizer.APIURL,
			Model:  appConfig.Summarizer.Model,
		}, &http.Client{Timeout: appConfig.Summarizer.Timeout})
		logger.WithField("model", appConfig.Summarizer.Model).Info("LLM summarizer enabled")
	} else {
		logger.Info("LLM summarizer not configured, using rule-based summaries")
	}
	summarizer := summary.NewTwoTier(primary, appConfig.Summarizer.Timeout, logger)

	opts := simulation.DefaultOptions()
	opts.Workers = appConfig.Simulation.Workers
	opts.Seed = appConfig.Simulation.Seed
	engine, err = simulation.NewEngine(logger, dataStore, broker, summarizer, appConfig.Simulation.Engine, opts)
	if err != nil {
		return fmt.Errorf("failed to create simulation engine: %w", err)
	}

	if path := appConfig.Simulation.ConfigFile; path != "" {
		hotReload, err = config.NewHotReloadManager(path, engine, logger)
		if err != nil {
			return fmt.Errorf("failed to create hot reload manager: %w", err)
		}
	}

	var auth *http_server.AuthMiddleware
	if appConfig.Auth.Enabled() {
		auth = http_server.NewAuthMiddleware(logger, &http_server.AuthConfig{APIKeys: appConfig.Auth.APIKeys})
	}
	api := http_server.NewAPI(logger, dataStore, engine, broker)
	httpServer = http_server.NewServer(logger, &http_server.Config{
		Port:          appConfig.HTTP.Port,
		ReadTimeout:   appConfig.HTTP.ReadTimeout,
		WriteTimeout:  appConfig.HTTP.WriteTimeout,
		EnableMetrics: appConfig.HTTP.EnableMetrics,
		CORSOrigins:   appConfig.HTTP.CORSOrigins,
	}, api, wsHub, auth)

	return nil
}

func openStore() (store.Store, error) {
	switch appConfig.Store.Driver {
	case config.StoreSQLite:
		s, err := store.OpenSQLite(appConfig.Store.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	default:
		logger.Info("Using in-memory store")
		return store.NewMemoryStore(), nil
	}
}

// cleanupStaleRecords removes calls and alerts left active by a previous run
func cleanupStaleRecords(ctx context.Context) {
	calls, err := dataStore.DeleteCalls(ctx, store.CallFilter{Status: models.CallActive})
	if err != nil {
		logger.WithError(err).Warn("Failed to delete stale active calls")
	}
	alerts, err := dataStore.DeleteAlerts(ctx, store.AlertFilter{Status: models.AlertActive})
	if err != nil {
		logger.WithError(err).Warn("Failed to delete stale active alerts")
	}
	if calls > 0 || alerts > 0 {
		logger.WithFields(logrus.Fields{
			"calls":  calls,
			"alerts": alerts,
		}).Info("Removed records left active by a previous run")
	}
}

// initAMQP connects the forwarder; a broker outage at start-up is not fatal
// because the client keeps retrying in the background
func initAMQP() {
	amqpClient = messaging.NewAMQPClient(logger, messaging.AMQPConfig{
		URL:          appConfig.Messaging.AMQPURL,
		ExchangeName: appConfig.Messaging.Exchange,
		RoutingKey:   appConfig.Messaging.RoutingKey,
		QueueName:    appConfig.Messaging.QueueName,
		Durable:      appConfig.Messaging.Durable,
	})
	if err := amqpClient.Connect(); err != nil {
		logger.WithError(err).Warn("AMQP broker unavailable, events will not be forwarded until it connects")
	}
	if _, err := broker.Subscribe(messaging.NewEventForwarder(amqpClient)); err != nil {
		logger.WithError(err).Error("Failed to subscribe AMQP forwarder")
	}
}

func shutdown() {
	gs := util.NewGracefulShutdown(logger, appConfig.HTTP.ShutdownTimeout+events.DefaultDrainTimeout+5*time.Second)

	if hotReload != nil {
		gs.Register("hot_reload", util.PriorityProducers, func(context.Context) error { return hotReload.Stop() })
	}
	gs.RegisterFunc("simulation", util.PriorityProducers, engine.Stop)
	gs.Register("http", util.PriorityServers, func(ctx context.Context) error {
		httpCtx, cancel := context.WithTimeout(ctx, appConfig.HTTP.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(httpCtx)
	})
	// subscriber queues drain while the hub is still running
	gs.RegisterFunc("events", util.PriorityDrain, broker.Close)
	gs.RegisterFunc("websocket", util.PriorityDrain, rootCancel)
	if amqpClient != nil {
		gs.RegisterFunc("amqp", util.PriorityClients, amqpClient.Disconnect)
	}
	gs.Register("store", util.PriorityStorage, func(context.Context) error { return dataStore.Close() })

	if err := gs.Shutdown(context.Background()); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		return
	}
	logger.Info("Shutdown complete")
}
