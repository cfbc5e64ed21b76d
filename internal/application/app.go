package application

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leaguedesk/leaguedesk/internal/application/usecase"
	"github.com/leaguedesk/leaguedesk/internal/domain/repository"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/config"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/eventbus"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/llm"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/notify"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/persistence"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/scheduler"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/sportsdata"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/templates"
	httpServer "github.com/leaguedesk/leaguedesk/internal/interfaces/http"
	"github.com/leaguedesk/leaguedesk/internal/interfaces/http/handlers"
	"github.com/leaguedesk/leaguedesk/internal/interfaces/websocket"
	"github.com/leaguedesk/leaguedesk/pkg/safego"
)

// App is the dependency-injection container. Construction happens in layers:
// repositories, infrastructure, application services, interfaces.
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	// repositories
	contentRepo  repository.ContentRequestRepository
	commentRepo  repository.CommentRequestRepository
	messageRepo  repository.ConversationMessageRepository
	responseRepo repository.CommentResponseRepository

	// infrastructure
	registry   *templates.Registry
	bus        *eventbus.InMemoryBus
	sched      *scheduler.Scheduler
	llmRouter  *llm.Router
	provider   sportsdata.Provider
	fetchers   *sportsdata.FetcherRegistry
	dispatcher notify.Dispatcher

	// application services
	pipeline    *usecase.GenerationPipeline
	elicitation *usecase.Elicitation

	// interfaces
	hub        *websocket.Hub
	httpServer *httpServer.Server

	hubCancel context.CancelFunc
}

// NewApp wires the full application.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		config: cfg,
		logger: logger,
	}

	if err := app.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}
	if err := app.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}
	if err := app.initApplicationServices(); err != nil {
		return nil, fmt.Errorf("failed to init application services: %w", err)
	}
	if err := app.initInterfaces(); err != nil {
		return nil, fmt.Errorf("failed to init interfaces: %w", err)
	}

	app.registerTaskHandlers()

	return app, nil
}

// NewAppHeadless wires everything except the HTTP and websocket interfaces.
// CLI commands run against it.
func NewAppHeadless(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		config: cfg,
		logger: logger,
	}

	if err := app.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}
	if err := app.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}
	if err := app.initApplicationServices(); err != nil {
		return nil, fmt.Errorf("failed to init application services: %w", err)
	}

	app.registerTaskHandlers()

	return app, nil
}

func (app *App) initRepositories() error {
	app.logger.Info("Initializing repositories")

	db, err := persistence.NewDBConnection(&app.config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db

	app.contentRepo = persistence.NewGormContentRequestRepository(db)
	app.commentRepo = persistence.NewGormCommentRequestRepository(db)
	app.messageRepo = persistence.NewGormConversationMessageRepository(db)
	app.responseRepo = persistence.NewGormCommentResponseRepository(db)

	return nil
}

func (app *App) initInfrastructure() error {
	app.logger.Info("Initializing infrastructure")

	app.registry = templates.NewRegistry(app.config.Templates.Path, app.logger)
	app.bus = eventbus.NewInMemoryBus(app.logger, 256)

	app.sched = scheduler.New(scheduler.NewGormStore(app.db), app.logger, scheduler.Options{
		PollInterval: app.config.Scheduler.PollInterval,
		MaxAttempts:  app.config.Scheduler.MaxAttempts,
		BatchSize:    app.config.Scheduler.BatchSize,
	})

	provider := llm.NewOpenAIProvider(llm.ProviderConfig{
		BaseURL: app.config.LLM.BaseURL,
		APIKey:  app.config.LLM.APIKey,
		Timeout: app.config.LLM.Timeout,
	}, app.logger)
	app.llmRouter = llm.NewRouter(provider, llm.RouterConfig{
		PrimaryModel:  app.config.LLM.PrimaryModel,
		FallbackModel: app.config.LLM.FallbackModel,
	}, app.logger)

	switch app.config.Sports.Mode {
	case "http":
		app.provider = sportsdata.NewHTTPProvider(sportsdata.HTTPConfig{
			BaseURL: app.config.Sports.BaseURL,
			APIKey:  app.config.Sports.APIKey,
			Timeout: app.config.Sports.Timeout,
		}, app.logger)
	default:
		app.provider = sportsdata.NewStaticProvider()
	}
	app.fetchers = sportsdata.NewFetcherRegistry()

	switch app.config.Notify.Mode {
	case "webhook":
		app.dispatcher = notify.NewWebhookDispatcher(app.config.Notify.WebhookURL, app.config.Notify.Timeout, app.logger)
	default:
		app.dispatcher = notify.NewLogDispatcher(app.logger)
	}

	return nil
}

func (app *App) initApplicationServices() error {
	app.logger.Info("Initializing application services")

	app.pipeline = usecase.NewGenerationPipeline(
		app.contentRepo,
		app.responseRepo,
		app.registry,
		app.fetchers,
		app.provider,
		app.llmRouter,
		app.sched,
		app.bus,
		app.logger,
	)

	app.elicitation = usecase.NewElicitation(
		app.commentRepo,
		app.messageRepo,
		app.responseRepo,
		app.contentRepo,
		app.registry,
		app.provider,
		app.llmRouter,
		app.sched,
		app.bus,
		app.dispatcher,
		app.config.Comments,
		app.logger,
	)

	return nil
}

func (app *App) initInterfaces() error {
	app.logger.Info("Initializing interfaces")

	app.hub = websocket.NewHub(app.logger)
	app.hub.SubscribeTo(app.bus)

	contentHandler := handlers.NewContentHandler(app.pipeline, app.contentRepo, app.logger)
	commentHandler := handlers.NewCommentHandler(app.elicitation, app.commentRepo, app.messageRepo, app.responseRepo, app.logger)

	app.httpServer = httpServer.NewServer(httpServer.Config{
		Host: app.config.Server.Host,
		Port: app.config.Server.Port,
		Mode: app.config.Server.Mode,
	}, contentHandler, commentHandler, app.hub, app.logger)

	return nil
}

// registerTaskHandlers binds every durable task kind to its use-case method.
// Payloads carry IDs only; each handler re-reads current state.
func (app *App) registerTaskHandlers() {
	app.sched.Register(usecase.TaskPrepareData, func(ctx context.Context, raw []byte) error {
		var p usecase.ContentTaskPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return app.pipeline.PrepareData(ctx, p.ContentRequestID)
	})
	app.sched.Register(usecase.TaskGenerate, func(ctx context.Context, raw []byte) error {
		var p usecase.ContentTaskPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return app.pipeline.Generate(ctx, p.ContentRequestID)
	})
	app.sched.Register(usecase.TaskPersistCleanup, func(ctx context.Context, raw []byte) error {
		var p usecase.PersistPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return app.pipeline.PersistCleanup(ctx, p)
	})

	app.sched.Register(usecase.TaskSendOpening, func(ctx context.Context, raw []byte) error {
		var p usecase.CommentTaskPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return app.elicitation.SendOpeningQuestion(ctx, p.CommentRequestID)
	})
	app.sched.Register(usecase.TaskProcessReply, func(ctx context.Context, raw []byte) error {
		var p usecase.CommentTaskPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return app.elicitation.ProcessReply(ctx, p.CommentRequestID, p.MessageID)
	})
	app.sched.Register(usecase.TaskGenerateFollowUp, func(ctx context.Context, raw []byte) error {
		var p usecase.CommentTaskPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return app.elicitation.GenerateFollowUp(ctx, p.CommentRequestID)
	})
	app.sched.Register(usecase.TaskExpire, func(ctx context.Context, raw []byte) error {
		var p usecase.CommentTaskPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return app.elicitation.ExpireIfStillOpen(ctx, p.CommentRequestID)
	})
	app.sched.Register(usecase.TaskInactivityCheck, func(ctx context.Context, raw []byte) error {
		var p usecase.CommentTaskPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return app.elicitation.CheckInactivity(ctx, p.CommentRequestID)
	})
}

// Start launches the scheduler, template watcher, websocket hub and HTTP
// server.
func (app *App) Start(ctx context.Context) error {
	app.logger.Info("Starting application")

	app.sched.Start()

	if app.config.Templates.WatchReload {
		safego.Go(app.logger, "template-watcher", func() {
			if err := app.registry.Watch(); err != nil {
				app.logger.Warn("Template watcher unavailable", zap.Error(err))
			}
		})
	}

	if app.hub != nil {
		hubCtx, cancel := context.WithCancel(context.Background())
		app.hubCancel = cancel
		safego.Go(app.logger, "ws-hub", func() {
			app.hub.Run(hubCtx)
		})
	}

	if app.httpServer != nil {
		if err := app.httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	app.logger.Info("Application started successfully")
	return nil
}

// Stop shuts components down in reverse start order.
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Stopping application")

	if app.httpServer != nil {
		if err := app.httpServer.Stop(ctx); err != nil {
			app.logger.Error("Failed to stop HTTP server", zap.Error(err))
		}
	}

	if app.hubCancel != nil {
		app.hubCancel()
	}

	app.sched.Stop()
	app.registry.Stop()
	app.bus.Close()

	if app.db != nil {
		sqlDB, err := app.db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				app.logger.Error("Failed to close database connection", zap.Error(err))
			}
		}
	}

	app.logger.Info("Application stopped successfully")
	return nil
}

// Pipeline exposes the generation pipeline for CLI commands.
func (app *App) Pipeline() *usecase.GenerationPipeline {
	return app.pipeline
}

// Elicitation exposes the conversation engine for CLI commands.
func (app *App) Elicitation() *usecase.Elicitation {
	return app.elicitation
}

// ContentRepo exposes the content store for CLI commands.
func (app *App) ContentRepo() repository.ContentRequestRepository {
	return app.contentRepo
}

// Registry exposes the template registry.
func (app *App) Registry() *templates.Registry {
	return app.registry
}
