package maxAPI

import (
	"context"
	"sync"

	maxbot "github.com/max-messenger/max-bot-api-client-go"
	"github.com/max-messenger/max-bot-api-client-go/schemes"

	"schoolRecords/auth"
	"schoolRecords/config"
	"schoolRecords/logger"
	"schoolRecords/services"
)

type Bot struct {
	MaxBot            *schemes.BotInfo
	logger            *logger.Logger
	MaxAPI            *maxbot.Api
	pendingUploads    map[int64]upload
	processedMessages map[string]bool
	uploadCounter     map[int64]int
	mu                sync.Mutex

	auth     *auth.Service
	records  *services.Service
	sessions *sessionStore
}

func NewBot(ctx context.Context, cfg *config.MaxConfig, log *logger.Logger, authService *auth.Service, records *services.Service) (*Bot, error) {
	api, err := maxbot.New(cfg.Token)
	if err != nil && err.Error() != "" {
		log.Errorf("failed to create max api: %v", err)
		return nil, err
	}

	maxBot, err := api.Bots.GetBot(ctx)
	if err != nil && err.Error() != "" {
		log.Errorf("failed to get bot info: %v", err)
		return nil, err
	}

	return &Bot{
		MaxBot:            maxBot,
		logger:            log.Named("bot"),
		MaxAPI:            api,
		pendingUploads:    make(map[int64]upload),
		processedMessages: make(map[string]bool),
		uploadCounter:     make(map[int64]int),

		auth:     authService,
		records:  records,
		sessions: newSessionStore(authService.Tokens()),
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	go func() {
		for upd := range b.MaxAPI.GetUpdates(ctx) {
			b.logger.Debugf("Received update type: %T", upd)

			switch u := upd.(type) {
			case *schemes.BotStartedUpdate:
				b.handleBotStarted(ctx, u)
			case *schemes.MessageCreatedUpdate:
				b.handleMessageCreated(ctx, u)
			case *schemes.MessageCallbackUpdate:
				b.handleCallback(ctx, u)
			default:
				b.logger.Debugf("Unhandled update type: %T", upd)
			}
		}
	}()
}
