package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/client"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/config"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/engine"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/metrics"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/presence"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/repositories/conversations"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/repositories/metadata"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/services"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// chatSession is the part of services.ChatService the REPL drives.
type chatSession interface {
	Run(ctx context.Context) error
	Refresh(ctx context.Context) error
	Conversations(ctx context.Context) ([]models.Conversation, error)
	OpenConversation(ctx context.Context, counterpart string) ([]models.Message, error)
	CloseConversation(ctx context.Context) error
	Messages(ctx context.Context, key string) ([]models.Message, error)
	Send(ctx context.Context, counterpart, body, mediaURL string) (models.Message, error)
	Typing(counterpart string) error
	PresenceOf(ctx context.Context, counterpart string) (models.PresenceState, error)
	StartConversation(ctx context.Context, counterpart, displayName string) (models.Conversation, error)
	DeleteLocally(ctx context.Context, key, id string) error
	RequestDeleteForEveryone(ctx context.Context, key, id string) error
	Connected(ctx context.Context) (bool, error)
	Changes() <-chan engine.Change
	Notices() <-chan services.Notice
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	authService services.AuthService
	newChat     func(ownNumber string) chatSession
	collector   *metrics.Collector
	reader      *bufio.Reader
	out         io.Writer

	mu       sync.Mutex
	Mode     Mode
	session  services.Session
	chat     chatSession
	stopChat context.CancelFunc
	// current is the counterpart of the open conversation.
	current string
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.SendTimeout)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	as := services.NewAuthService(apiClient, db, c.ServerEndpointAddr, logger)

	return &App{
		config:      c,
		logger:      logger,
		authService: as,
		newChat:     chatFactory(c, apiClient, db, collector, logger),
		collector:   collector,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

func chatFactory(c *config.Config, api client.Client, db *sql.DB, rec engine.Recorder, logger logging.Logger) func(string) chatSession {
	return func(ownNumber string) chatSession {
		return services.NewChatService(api,
			conversations.NewSQLiteRepository(db),
			metadata.NewSQLiteRepository(db),
			services.ChatConfig{
				OwnNumber:           ownNumber,
				HistoryLimit:        c.HistoryLimit,
				SendTimeout:         c.SendTimeout,
				TypingWindow:        c.TypingWindow,
				ReconnectMaxBackoff: c.ReconnectMaxBackoff,
				Poll: presence.PollerConfig{
					Interval: c.PresencePollInterval,
					RPS:      c.PresencePollRPS,
					Burst:    c.PresencePollBurst,
				},
				Recorder: rec,
			}, logger)
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()
	if changed {
		a.printf("Switched to %s mode", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.authService.Close(ctx)

	if a.config.DebugAddr != "" && a.collector != nil {
		srv := metrics.NewDebugServer(a.config.DebugAddr, metrics.NewRouter(a.collector.Registry(), a.health), a.logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				a.logger.Error(ctx, "debug listener failed", "error", err)
			}
		}()
	}
	a.Root(ctx)
}

func (a *App) health(context.Context) (bool, string) {
	if !a.isLoggedIn() {
		return true, "logged out"
	}
	m := a.mode()
	return m == ModeOnline, string(m)
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chat != nil
}

func (a *App) activeChat() chatSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chat
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(ctx)
			cancel()

			if err != nil {
				if a.mode() == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else {
				if a.mode() != ModeOnline {
					a.setMode(ModeOnline)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) ownNumber() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.OwnNumber
}

func (a *App) openConversation() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *App) setOpenConversation(counterpart string) {
	a.mu.Lock()
	a.current = counterpart
	a.mu.Unlock()
}
