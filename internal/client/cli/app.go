package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/budget"
	"github.com/dmitrijs2005/spendsync/internal/client/config"
	"github.com/dmitrijs2005/spendsync/internal/client/connectivity"
	"github.com/dmitrijs2005/spendsync/internal/client/httpapi"
	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/notify"
	"github.com/dmitrijs2005/spendsync/internal/client/remote"
	"github.com/dmitrijs2005/spendsync/internal/client/services"
	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/client/syncer"
	"github.com/dmitrijs2005/spendsync/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type expenseService interface {
	Create(ctx context.Context, in services.NewExpense) (models.Expense, error)
	List(ctx context.Context) ([]models.Expense, error)
	ListByRange(ctx context.Context, start, end string) ([]models.Expense, error)
	Update(ctx context.Context, id string, patch models.ExpensePatch) (models.Expense, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (models.Stats, error)
}

type budgetService interface {
	Create(ctx context.Context, in services.NewBudget) (models.Budget, error)
	Delete(ctx context.Context, id string) error
	Progress(ctx context.Context, now time.Time) ([]budget.Progress, error)
	Evaluate(ctx context.Context, now time.Time) ([]models.Alert, error)
	ListAlerts(ctx context.Context, includeDismissed bool) ([]models.Alert, error)
	DismissAlert(ctx context.Context, id string) error
}

type syncControl interface {
	ManualSync(ctx context.Context) (syncer.SyncReport, error)
	Status(ctx context.Context) (syncer.Status, error)
}

type backupService interface {
	Backup(ctx context.Context, masterKey []byte) (string, error)
}

// App is the interactive client. Everything below mu is per signed-in owner
// and is reset on logout.
type App struct {
	config   *config.Config
	log      logging.Logger
	store    *storage.Store
	client   *remote.GRPCClient
	monitor  *connectivity.Monitor
	manager  *syncer.Manager
	notifier notify.Notifier
	closers  []io.Closer

	authService services.AuthService
	reader      *bufio.Reader
	out         io.Writer

	modeMu sync.Mutex
	mode   Mode

	mu       sync.Mutex
	identity services.Identity
	expenses expenseService
	budgets  budgetService
	sync     syncControl
	backup   backupService
	api      *httpapi.Server

	startHook func(ctx context.Context, id services.Identity)
}

// NewApp opens the local store and builds the long-lived collaborators. The
// caller must Close the App.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.NewNop()
	}

	store, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	client, err := remote.New(c.ServerEndpointAddr)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{
		config:  c,
		log:     log,
		store:   store,
		client:  client,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		closers: []io.Closer{client, store},
	}

	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	if c.AMQPURL != "" {
		p, err := notify.NewAMQPPublisher(c.AMQPURL, c.AMQPQueue)
		if err != nil {
			log.Warn(ctx, "alert publishing disabled", "error", err)
		} else {
			notifiers = append(notifiers, p)
			a.closers = append([]io.Closer{p}, a.closers...)
		}
	}
	a.notifier = notifiers

	a.monitor = connectivity.NewMonitor(client, c.OnlineCheckInterval, log)
	a.monitor.OnChange("cli", func(online bool) {
		if online {
			a.setMode(ModeOnline)
		} else {
			a.setMode(ModeOffline)
		}
	})

	a.manager = syncer.NewManager(store, client, a.monitor,
		syncer.Policy{SettleDelay: c.SettleDelay, Interval: c.SyncInterval},
		syncer.Options{Logger: log},
	)
	a.authService = services.NewAuthService(client, store, log)

	return a, nil
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity.MasterKey != nil
}

func (a *App) getStatus() string {
	a.mu.Lock()
	s := a.identity.Username
	a.mu.Unlock()

	if mode := a.Mode(); mode != "" {
		if s != "" {
			s += " "
		}
		s += string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Run starts the connectivity monitor and the REPL, and blocks until the
// user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.monitor.Run(ctx)

	fmt.Fprintln(a.out, "Welcome to spendsync (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)

	a.endSession(ctx)
}

// startSession builds the per-owner services and starts syncing.
func (a *App) startSession(ctx context.Context, id services.Identity) {
	sess := a.manager.Start(ctx, id.OwnerID, a.remoteChanged)

	budgets := services.NewBudgetService(a.store, sess, services.BudgetOptions{
		Notifier:    a.notifier,
		AlertWindow: a.config.AlertWindow,
		Logger:      a.log,
	})
	expenses := services.NewExpenseService(a.store, sess, budgets, a.log, nil)

	if n, err := budgets.CleanupOldAlerts(ctx, a.config.AlertRetentionDays); err != nil {
		a.log.Warn(ctx, "alert cleanup failed", "error", err)
	} else if n > 0 {
		fmt.Fprintf(a.out, "Removed %d old alerts\n", n)
	}

	var api *httpapi.Server
	if a.config.HTTPAddr != "" {
		h := httpapi.NewHandler(expenses, budgets, sess, a.log)
		s, err := httpapi.Listen(a.config.HTTPAddr, httpapi.NewRouter(h), a.log)
		if err != nil {
			a.log.Warn(ctx, "http api disabled", "error", err)
		} else {
			api = s
		}
	}

	a.mu.Lock()
	a.identity = id
	a.expenses = expenses
	a.budgets = budgets
	a.sync = sess
	a.backup = services.NewBackupService(id.OwnerID, a.store, a.client, http.DefaultClient)
	a.api = api
	a.mu.Unlock()
}

// endSession stops syncing and forgets the per-owner services.
func (a *App) endSession(ctx context.Context) {
	a.mu.Lock()
	owner, api := a.identity.OwnerID, a.api
	a.identity = services.Identity{}
	a.expenses, a.budgets, a.sync, a.backup, a.api = nil, nil, nil, nil, nil
	a.mu.Unlock()

	if api != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := api.Shutdown(sctx); err != nil {
			a.log.Warn(ctx, "http api shutdown failed", "error", err)
		}
		cancel()
	}
	if owner != "" && a.manager != nil {
		a.manager.Stop(owner)
	}
}

// remoteChanged runs after changes from another device were applied locally.
func (a *App) remoteChanged() {
	a.mu.Lock()
	budgets := a.budgets
	a.mu.Unlock()

	fmt.Fprintln(a.out, "\nRemote changes applied")
	if budgets == nil {
		return
	}
	if _, err := budgets.Evaluate(context.Background(), time.Now()); err != nil {
		a.log.Warn(context.Background(), "budget evaluation failed", "error", err)
	}
}

// Close releases the broker, the remote client and the local store.
func (a *App) Close() error {
	if a.manager != nil {
		a.manager.StopAll()
	}
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
