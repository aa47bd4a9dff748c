package cli

import (
	"context"
	"fmt"

	api "github.com/kentsubra71/keystone/cmd/api"
	authUsecase "github.com/kentsubra71/keystone/internal/auth/usecase"
	briefDelivery "github.com/kentsubra71/keystone/internal/brief/delivery"
	briefRepo "github.com/kentsubra71/keystone/internal/brief/repository"
	briefUsecase "github.com/kentsubra71/keystone/internal/brief/usecase"
	"github.com/kentsubra71/keystone/internal/classifier"
	credentialRepo "github.com/kentsubra71/keystone/internal/credential/repository"
	credentialUsecase "github.com/kentsubra71/keystone/internal/credential/usecase"
	itemDelivery "github.com/kentsubra71/keystone/internal/item/delivery"
	itemRepo "github.com/kentsubra71/keystone/internal/item/repository"
	itemUsecase "github.com/kentsubra71/keystone/internal/item/usecase"
	mailRepo "github.com/kentsubra71/keystone/internal/mail/repository"
	mailUsecase "github.com/kentsubra71/keystone/internal/mail/usecase"
	"github.com/kentsubra71/keystone/internal/notification"
	nudgeDelivery "github.com/kentsubra71/keystone/internal/nudge/delivery"
	nudgeRepo "github.com/kentsubra71/keystone/internal/nudge/repository"
	nudgeUsecase "github.com/kentsubra71/keystone/internal/nudge/usecase"
	"github.com/kentsubra71/keystone/internal/scheduler"
	sheetDelivery "github.com/kentsubra71/keystone/internal/sheet/delivery"
	sheetdomain "github.com/kentsubra71/keystone/internal/sheet/domain"
	sheetRepo "github.com/kentsubra71/keystone/internal/sheet/repository"
	sheetUsecase "github.com/kentsubra71/keystone/internal/sheet/usecase"
	"github.com/kentsubra71/keystone/pkg/ai"
	"github.com/kentsubra71/keystone/pkg/config"
	"github.com/kentsubra71/keystone/pkg/database"
	"github.com/kentsubra71/keystone/pkg/fcm"
	"github.com/kentsubra71/keystone/pkg/gmail"
	"github.com/kentsubra71/keystone/pkg/sheets"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// App is the wired object graph shared by every command.
type App struct {
	Config *config.Config
	Logger *log.Logger
	DB     *gorm.DB

	Guard  *credentialUsecase.Guard
	Jobs   *scheduler.Jobs
	Tokens authUsecase.TokenUsecase
	Gmail  *gmail.Service

	items  itemUsecase.ItemUsecase
	sheets sheetUsecase.SheetUsecase
	nudges nudgeUsecase.NudgeUsecase
	briefs briefUsecase.BriefUsecase
	ollama *ai.OllamaSettings
}

func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	// Repositories
	itemRepository := itemRepo.NewItemRepository(db)
	actionRepository := itemRepo.NewUserActionRepository(db)
	threadRepository := mailRepo.NewThreadRepository(db)
	rowRepository := sheetRepo.NewRowRepository(db)
	ownerRepository := sheetRepo.NewOwnerRepository(db)
	nudgeRepository := nudgeRepo.NewNudgeRepository(db)
	deviceRepository := nudgeRepo.NewDeviceRepository(db)
	briefRepository := briefRepo.NewBriefRepository(db)
	credRepository := credentialRepo.NewCredentialRepository(db)

	// External services
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, logger)
	rowSource, err := newRowSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ollama := ai.NewOllamaSettings(cfg.OllamaBaseURL, cfg.OllamaModel)
	provider, err := ai.NewProvider(ai.Config{
		Provider:        ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
		OllamaBaseURL:   ollama.BaseURL,
		OllamaModel:     ollama.Model,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
	}, logger)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		logger.Warn("no AI provider configured, classification uses rules only")
	} else {
		logger.Info("AI provider ready", "provider", provider.Name())
	}
	classifierService, err := classifier.NewService(provider, cfg.ClassifyConcurrency, logger)
	if err != nil {
		return nil, err
	}

	var pusher nudgeUsecase.Pusher
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials, logger)
		if err != nil {
			logger.Warn("push notifications disabled", "err", err)
		} else {
			pusher = fcmClient
		}
	}

	// Use cases
	guard := credentialUsecase.NewGuard(credRepository, credentialUsecase.NewOAuthRefresher(cfg.GoogleClientID, cfg.GoogleClientSecret), logger)
	reconciler := sheetUsecase.NewReconciler(rowSource, rowRepository, ownerRepository, cfg.Sheet, logger)
	ingester := mailUsecase.NewIngester(gmailService, threadRepository, itemRepository, classifierService, logger)
	items := itemUsecase.NewItemUsecase(itemRepository, actionRepository, logger)
	sheetsUc := sheetUsecase.NewSheetUsecase(rowRepository, ownerRepository, cfg.AllowedUserEmail, logger)
	nudges := nudgeUsecase.NewNudgeUsecase(nudgeRepository, deviceRepository, itemRepository, pusher, cfg.NudgeDailyCap, logger)
	briefs := briefUsecase.NewBriefUsecase(itemRepository, rowRepository, briefRepository, logger)

	return &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Guard:  guard,
		Jobs:   scheduler.NewJobs(reconciler, guard, ingester, nudges, briefs, logger),
		Tokens: authUsecase.NewTokenUsecase(cfg.JWTSecret, cfg.JWTExpiry, cfg.AllowedUserEmail),
		Gmail:  gmailService,
		items:  items,
		sheets: sheetsUc,
		nudges: nudges,
		briefs: briefs,
		ollama: ollama,
	}, nil
}

// newRowSource returns nil when no sheets credentials are configured.
func newRowSource(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheetdomain.RowSource, error) {
	var (
		client *sheets.Client
		err    error
	)
	switch {
	case cfg.HasServiceAccount():
		client, err = sheets.NewServiceAccountClient(ctx, cfg.GoogleServiceAccountEmail, cfg.GooglePrivateKey)
	case cfg.GoogleCredentials != "":
		client, err = sheets.NewCredentialsClient(ctx, cfg.GoogleCredentials)
	default:
		logger.Warn("no Google service account configured, sheet sync disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return client, nil
}

func (a *App) HTTPHandler() *api.Handler {
	return api.NewHandler(a.Config, a.Tokens, api.Handlers{
		Jobs:     api.NewJobsHandler(a.Jobs),
		Items:    itemDelivery.NewItemHandler(a.items),
		Sheets:   sheetDelivery.NewSheetHandler(a.sheets),
		Nudges:   nudgeDelivery.NewNudgeHandler(a.nudges),
		Briefs:   briefDelivery.NewBriefHandler(a.briefs),
		Settings: api.NewSettingsHandler(a.ollama),
	}, a.Logger)
}

// NotificationService returns nil when Pub/Sub is not configured.
func (a *App) NotificationService(ctx context.Context) (*notification.Service, error) {
	if a.Config.GoogleProjectID == "" {
		return nil, nil
	}
	return notification.NewService(ctx, a.Config.GoogleProjectID, topicName(a.Config.GooglePubSubTopic),
		a.Config.GoogleCredentials, a.Config.AllowedUserEmail, a.Jobs, a.Guard, a.Gmail, a.Logger)
}

func (a *App) Close() {
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
