// Package app wires the full attachment: configuration, roster storage,
// the driven browser session, network interception, the view machine,
// and the annotation appliers.
package app

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/entrhq/grimnote/pkg/annotate"
	"github.com/entrhq/grimnote/pkg/browser"
	"github.com/entrhq/grimnote/pkg/config"
	"github.com/entrhq/grimnote/pkg/dom"
	"github.com/entrhq/grimnote/pkg/intercept"
	"github.com/entrhq/grimnote/pkg/logging"
	"github.com/entrhq/grimnote/pkg/resolver"
	"github.com/entrhq/grimnote/pkg/roster"
	"github.com/entrhq/grimnote/pkg/ui"
	"github.com/entrhq/grimnote/pkg/view"
)

// App is one grimnote run attached to a single host page.
type App struct {
	cfg    config.Config
	logger *logging.Logger

	// fatal receives the first unrecoverable host-contract violation.
	fatal chan error
}

// New creates an app for the given configuration.
func New(cfg config.Config) *App {
	return &App{
		cfg:   cfg,
		fatal: make(chan error, 1),
	}
}

// Run attaches to the host page and annotates it until the context is
// cancelled or the host page breaks the UI contract.
func (a *App) Run(ctx context.Context) error {
	dataDir, err := a.cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	if err := logging.Configure(filepath.Join(dataDir, "logs")); err != nil {
		return err
	}
	a.logger = logging.NewLogger("app")
	defer a.logger.Close()

	// The roster must be loaded before any detector can fire; an applier
	// racing the initial load would annotate from an empty roster.
	storage, err := roster.NewFileStorage(dataDir)
	if err != nil {
		return err
	}
	store := roster.NewStore(storage, logging.NewLogger("roster"))
	if err := store.Load(); err != nil {
		return err
	}
	res := resolver.New()

	manager := browser.NewManager(logging.NewLogger("browser"))
	if err := manager.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			a.logger.Warnf("shutdown: %v", err)
		}
	}()

	session, err := manager.Attach(browser.Options{Headless: a.cfg.Headless})
	if err != nil {
		return err
	}

	if err := a.wireInterception(session, res); err != nil {
		return err
	}

	if err := session.Navigate(a.cfg.HostURL); err != nil {
		return err
	}
	if err := session.WaitFor(a.cfg.Selectors.Root); err != nil {
		return err
	}
	root, found, err := session.Query(a.cfg.Selectors.Root)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("root element %q not found on %s", a.cfg.Selectors.Root, a.cfg.HostURL)
	}

	machine, err := a.buildMachine(session, root, store, res)
	if err != nil {
		return err
	}
	defer machine.Close()

	if err := machine.Watch(session, func(err error) {
		select {
		case a.fatal <- err:
		default:
		}
	}); err != nil {
		return err
	}

	a.logger.Infof("attached to %s (session %s, view %s)",
		a.cfg.HostURL, logging.SessionID(), machine.Current())

	select {
	case <-ctx.Done():
		a.logger.Infof("detaching: %v", ctx.Err())
		return nil
	case err := <-a.fatal:
		a.logger.Errorf("host page contract violated: %v", err)
		return fmt.Errorf("host page contract violated: %w", err)
	}
}

// wireInterception installs the fetch shim and routes both the posted
// page messages and the raw network responses into the resolver.
func (a *App) wireInterception(session *browser.Session, res *resolver.Resolver) error {
	if err := session.InstallShim(a.cfg.Endpoints); err != nil {
		return err
	}

	origin, err := pageOrigin(a.cfg.HostURL)
	if err != nil {
		return err
	}
	interceptLogger := logging.NewLogger("intercept")

	dispatcher := intercept.NewDispatcher(origin, res.Refresh, interceptLogger)
	session.OnPageMessage(dispatcher.Dispatch)

	matcher, err := intercept.NewMatcher(a.cfg.Endpoints)
	if err != nil {
		return err
	}
	interceptor := intercept.NewInterceptor(matcher, res.Refresh, interceptLogger)
	session.OnResponse(interceptor.HandleResponse)
	return nil
}

// buildMachine assembles the appliers and per-view detector sets and
// starts the machine on whichever view the root currently advertises.
// The lobby owns a list watcher plus the overlay watcher; the grimoire
// owns only the overlay watcher.
func (a *App) buildMachine(session *browser.Session, root dom.Element, store *roster.Store, res *resolver.Resolver) (*view.Machine, error) {
	annotateLogger := logging.NewLogger("annotate")
	prompter := ui.NewTerminalPrompter()

	lobbyTarget := a.container(session, root, a.cfg.Selectors.LobbyContainer)

	lobby := annotate.NewLobby(store, res, lobbyTarget, a.cfg.Selectors, annotateLogger)
	overlay := annotate.NewOverlay(store, lobby, session, prompter, a.cfg.Selectors, annotateLogger)

	detectors := map[view.State][]dom.Detector{
		view.StateLobby: {
			dom.NewListChangeDetector(session, lobbyTarget, a.applyFunc(lobby)),
			dom.NewOverlayDetector(session, root, a.cfg.Selectors.OverlaySignature, overlay.HandleAppear),
		},
		view.StateGrimoire: {
			dom.NewOverlayDetector(session, root, a.cfg.Selectors.OverlaySignature, overlay.HandleAppear),
		},
	}

	markers := view.Markers{
		Lobby:    a.cfg.Markers.Lobby,
		Grimoire: a.cfg.Markers.Grimoire,
	}
	machine, err := view.NewMachine(root, markers, detectors, logging.NewLogger("view"))
	if err != nil {
		return nil, err
	}

	// The list detector only fires on change; the rows already on screen
	// get an explicit first pass.
	if machine.Current() == view.StateLobby {
		a.applyFunc(lobby)()
	}
	return machine, nil
}

// container resolves a view container, falling back to the root element
// when the host has not rendered that view yet.
func (a *App) container(session *browser.Session, root dom.Element, selector string) dom.Element {
	el, found, err := session.Query(selector)
	if err != nil || !found {
		a.logger.Debugf("container %q not present, observing root", selector)
		return root
	}
	return el
}

func (a *App) applyFunc(l *annotate.Lobby) func() {
	return func() {
		if err := l.Apply(); err != nil {
			a.logger.Warnf("annotation pass failed: %v", err)
		}
	}
}

// pageOrigin reduces the host URL to the origin its messages carry.
func pageOrigin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid host URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("host URL %q has no origin", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
