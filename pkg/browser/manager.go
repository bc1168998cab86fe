// Package browser attaches grimnote to the host page through a driven
// Chromium instance and bridges the page's DOM into the pkg/dom
// contracts: element handles, mutation observation, click handlers, and
// the fetch-interception shim all cross the boundary here.
package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/grimnote/pkg/logging"
)

const (
	// DefaultViewportWidth/Height size the driven browser window.
	DefaultViewportWidth  = 1440
	DefaultViewportHeight = 900

	// DefaultTimeout is the playwright action timeout in milliseconds.
	DefaultTimeout = 30000.0
)

// Options configures an attachment.
type Options struct {
	// Headless hides the browser window. The attached page is the
	// user's own game session, so headful is the default.
	Headless bool
}

// Manager owns the playwright runtime and the single attached session.
type Manager struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	session     *Session
	logger      *logging.Logger
	initialized bool
}

// NewManager creates an uninitialized manager.
func NewManager(logger *logging.Logger) *Manager {
	return &Manager{logger: logger}
}

// Initialize installs and starts the playwright runtime. Driver output
// is discarded so it cannot interleave with the terminal UI.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Attach launches Chromium and prepares a page. The caller installs the
// interception shim and handlers, then navigates with Session.Navigate;
// init scripts added after navigation would miss the page load. Only one
// session exists at a time.
func (m *Manager) Attach(opts Options) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("manager not initialized")
	}
	if m.session != nil {
		return nil, fmt.Errorf("already attached to %s", m.session.CurrentURL())
	}

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(DefaultTimeout)

	session := &Session{
		browser: browser,
		context: context,
		page:    page,
		logger:  m.logger,
		clicks:  make(map[int]func()),
		subs:    make(map[int]*pageSubscription),
	}

	if err := session.installBindings(); err != nil {
		session.close()
		return nil, err
	}

	m.session = session
	return session, nil
}

// Shutdown closes the session and stops the playwright runtime.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.session.close()
		m.session = nil
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}
