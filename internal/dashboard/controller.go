// ABOUTME: Dashboard state machine shared by the terminal front ends
// ABOUTME: Gates on login, loads panels concurrently with isolated failures and confirms deletes

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/freegoat/manga-admin/internal/api"
	"github.com/freegoat/manga-admin/internal/store"
)

// ErrNeedLogin is returned when an action needs a session the client lacks.
var ErrNeedLogin = errors.New("login required")

// Tab names a dashboard panel.
type Tab string

const (
	TabOverview      Tab = "overview"
	TabNotifications Tab = "notifications"
	TabRepositories  Tab = "repositories"
	TabUsers         Tab = "users"
	TabManga         Tab = "manga"
)

// Tabs lists the panels in display order.
var Tabs = []Tab{TabOverview, TabNotifications, TabRepositories, TabUsers, TabManga}

// Confirmer asks the operator before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// State is a point-in-time copy of everything the dashboard renders.
type State struct {
	Authenticated bool
	Username      string
	Tab           Tab
	Notifications []*store.Notification
	Repositories  []*store.Repository
	Users         []*store.User
	Manga         []*store.Manga
	Stats         *api.Statistics
}

// Controller drives one dashboard session.
type Controller struct {
	client  *Client
	confirm Confirmer
	toasts  *Toaster
	logger  *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewController wires a controller. A nil confirmer declines every delete.
func NewController(client *Client, confirm Confirmer, toasts *Toaster) *Controller {
	if confirm == nil {
		confirm = ConfirmFunc(func(context.Context, string) bool { return false })
	}
	if toasts == nil {
		toasts = NewToaster(ToastDuration, nil)
	}
	return &Controller{
		client:  client,
		confirm: confirm,
		toasts:  toasts,
		logger:  slog.Default().With("component", "dashboard"),
		state:   State{Tab: TabOverview},
	}
}

// Toasts returns the controller's toaster.
func (c *Controller) Toasts() *Toaster { return c.toasts }

// State returns a copy of the current state. Slices are shared and must not be modified.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Start checks the session. needLogin is true when the login form should be shown;
// otherwise every panel has been loaded.
func (c *Controller) Start(ctx context.Context) (needLogin bool, err error) {
	res, err := c.client.Check(ctx)
	if err != nil {
		c.toasts.Error(describe(err))
		return true, err
	}
	if !res.Authenticated {
		c.setAuth(false, "")
		return true, nil
	}
	c.setAuth(true, res.Username())
	c.LoadAll(ctx)
	return false, nil
}

// Login authenticates and eagerly loads the dashboard.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	name, err := c.client.Login(ctx, username, password)
	if err != nil {
		c.toasts.Error(describe(err))
		return err
	}
	c.setAuth(true, name)
	c.toasts.Success("Logged in successfully")
	c.LoadAll(ctx)
	return nil
}

// Logout ends the session and clears loaded data.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.client.Logout(ctx)
	c.mu.Lock()
	c.state = State{Tab: TabOverview}
	c.mu.Unlock()
	if err != nil {
		c.toasts.Error(describe(err))
		return err
	}
	c.toasts.Info("Logged out")
	return nil
}

func (c *Controller) setAuth(ok bool, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Authenticated = ok
	c.state.Username = username
}

// loader fetches one panel and stores it on success.
type loader func(ctx context.Context) error

func (c *Controller) loaders() map[Tab]loader {
	return map[Tab]loader{
		TabOverview:      c.loadStats,
		TabNotifications: c.loadNotifications,
		TabRepositories:  c.loadRepositories,
		TabUsers:         c.loadUsers,
		TabManga:         c.loadManga,
	}
}

// LoadAll fetches every panel concurrently and waits for all of them. A failing
// panel keeps its previous data and raises a toast; the rest still update.
// The returned error joins every panel failure.
func (c *Controller) LoadAll(ctx context.Context) error {
	loaders := c.loaders()
	errs := make([]error, len(Tabs))

	var wg sync.WaitGroup
	for i, tab := range Tabs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := loaders[tab](ctx); err != nil {
				errs[i] = fmt.Errorf("loading %s: %w", tab, err)
			}
		}()
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		c.fail(err)
	}
	return err
}

// SwitchTab activates tab and refetches only its data.
func (c *Controller) SwitchTab(ctx context.Context, tab Tab) error {
	load, ok := c.loaders()[tab]
	if !ok {
		return fmt.Errorf("unknown tab %q", tab)
	}
	c.mu.Lock()
	c.state.Tab = tab
	c.mu.Unlock()

	if err := load(ctx); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

// fail surfaces a load error. A 401 drops the controller back to the login form.
func (c *Controller) fail(err error) {
	c.logger.Warn("dashboard request failed", "error", err)
	if IsUnauthorized(err) {
		c.setAuth(false, "")
		c.toasts.Error("Session expired, please log in again")
		return
	}
	c.toasts.Error(describe(err))
}

func (c *Controller) loadStats(ctx context.Context) error {
	stats, err := c.client.Statistics(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Stats = stats
	c.mu.Unlock()
	return nil
}

func (c *Controller) loadNotifications(ctx context.Context) error {
	list, err := c.client.ListNotifications(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Notifications = list
	c.mu.Unlock()
	return nil
}

func (c *Controller) loadRepositories(ctx context.Context) error {
	list, err := c.client.ListRepositories(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Repositories = list
	c.mu.Unlock()
	return nil
}

func (c *Controller) loadUsers(ctx context.Context) error {
	list, err := c.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Users = list
	c.mu.Unlock()
	return nil
}

func (c *Controller) loadManga(ctx context.Context) error {
	list, err := c.client.ListManga(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Manga = list
	c.mu.Unlock()
	return nil
}

// --- actions ---

// SendNotification sends and reloads the notifications panel.
func (c *Controller) SendNotification(ctx context.Context, in NotificationInput) error {
	res, err := c.client.SendNotification(ctx, in, "")
	if err != nil {
		c.fail(err)
		return err
	}
	c.toasts.Success(res.Message)
	return c.refresh(ctx, TabNotifications)
}

// ToggleRepository flips a repository's active flag.
func (c *Controller) ToggleRepository(ctx context.Context, repo *store.Repository) error {
	active := !repo.IsActive
	if _, err := c.client.UpdateRepository(ctx, repo.ID, store.RepositoryUpdate{IsActive: &active}); err != nil {
		c.fail(err)
		return err
	}
	if active {
		c.toasts.Success("Repository enabled")
	} else {
		c.toasts.Success("Repository disabled")
	}
	return c.refresh(ctx, TabRepositories)
}

// RefreshAllRepositories refreshes every active repository.
func (c *Controller) RefreshAllRepositories(ctx context.Context) error {
	n, err := c.client.RefreshAllRepositories(ctx)
	if err != nil {
		c.fail(err)
		return err
	}
	c.toasts.Success(fmt.Sprintf("Refreshed %d repositories", n))
	return c.refresh(ctx, TabRepositories)
}

// QuickAction runs a named maintenance action.
func (c *Controller) QuickAction(ctx context.Context, action string) error {
	res, err := c.client.QuickAction(ctx, action)
	if err != nil {
		c.fail(err)
		return err
	}
	c.toasts.Success(res.Message)
	return nil
}

func (c *Controller) DeleteNotification(ctx context.Context, id string) (bool, error) {
	return c.destroy(ctx, TabNotifications, "Delete this notification?", "Notification deleted",
		func(ctx context.Context) error { return c.client.DeleteNotification(ctx, id) })
}

func (c *Controller) DeleteRepository(ctx context.Context, id string) (bool, error) {
	return c.destroy(ctx, TabRepositories, "Delete this repository?", "Repository deleted",
		func(ctx context.Context) error { return c.client.DeleteRepository(ctx, id) })
}

func (c *Controller) DeleteUser(ctx context.Context, id string) (bool, error) {
	return c.destroy(ctx, TabUsers, "Delete this user?", "User deleted",
		func(ctx context.Context) error { return c.client.DeleteUser(ctx, id) })
}

func (c *Controller) DeleteManga(ctx context.Context, id string) (bool, error) {
	return c.destroy(ctx, TabManga, "Delete this manga?", "Manga deleted",
		func(ctx context.Context) error { return c.client.DeleteManga(ctx, id) })
}

// destroy asks first and issues no request when the operator declines.
func (c *Controller) destroy(ctx context.Context, tab Tab, prompt, done string, del func(context.Context) error) (bool, error) {
	if !c.confirm.Confirm(ctx, prompt) {
		return false, nil
	}
	if err := del(ctx); err != nil {
		c.fail(err)
		return false, err
	}
	c.toasts.Success(done)
	return true, c.refresh(ctx, tab)
}

// refresh reloads a panel and the overview counters after a mutation.
func (c *Controller) refresh(ctx context.Context, tab Tab) error {
	loaders := c.loaders()
	err := loaders[tab](ctx)
	if tab != TabOverview {
		err = errors.Join(err, loaders[TabOverview](ctx))
	}
	if err != nil {
		c.fail(err)
	}
	return err
}

// describe turns a client error into toast text.
func describe(err error) string {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrNetwork):
		return "Connection error, please try again"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	default:
		return "Something went wrong"
	}
}
