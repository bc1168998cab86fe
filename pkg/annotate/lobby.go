package annotate

import (
	"regexp"
	"strings"
	"sync"

	"github.com/entrhq/grimnote/pkg/dom"
	"github.com/entrhq/grimnote/pkg/logging"
	"github.com/entrhq/grimnote/pkg/resolver"
	"github.com/entrhq/grimnote/pkg/roster"
)

// idPattern extracts the player id embedded in a row's text: the first
// run of at least four digits. Shorter digit runs (seat numbers, pings)
// are never ids.
var idPattern = regexp.MustCompile(`[0-9]{4,}`)

// Lobby re-annotates the visible player rows from the current roster
// and resolver state. Apply is idempotent: the host re-renders freely
// and every pass converges to the same presentation. Lobby also keeps
// the id → row registry the overlay applier reaches back through.
type Lobby struct {
	roster    *roster.Store
	resolver  *resolver.Resolver
	container dom.Element
	sel       Selectors
	logger    *logging.Logger

	mu   sync.Mutex
	rows map[string]dom.Element
}

// NewLobby creates the lobby applier over the given container.
func NewLobby(rosterStore *roster.Store, res *resolver.Resolver, container dom.Element, sel Selectors, logger *logging.Logger) *Lobby {
	return &Lobby{
		roster:    rosterStore,
		resolver:  res,
		container: container,
		sel:       sel,
		logger:    logger,
		rows:      make(map[string]dom.Element),
	}
}

// Apply runs a full annotation pass over every visible row. Rows whose
// text carries no numeric id and no previously recorded id are not
// player rows and are skipped silently.
func (l *Lobby) Apply() error {
	rows, err := l.container.QueryAll(l.sel.Row)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.rows = make(map[string]dom.Element, len(rows))
	l.mu.Unlock()

	for _, row := range rows {
		id, err := l.annotateRow(row)
		if err != nil {
			if l.logger != nil {
				l.logger.Warnf("row annotation failed: %v", err)
			}
			continue
		}
		if id == "" {
			continue
		}

		l.mu.Lock()
		l.rows[id] = row
		l.mu.Unlock()

		if err := l.highlight(row, id); err != nil && l.logger != nil {
			l.logger.Warnf("row highlight failed for %s: %v", id, err)
		}
	}
	return nil
}

// annotateRow extracts the row's id, substituting the username for the
// raw id when the resolver knows it. Returns "" for non-player rows.
func (l *Lobby) annotateRow(row dom.Element) (string, error) {
	text, err := row.Text()
	if err != nil {
		return "", err
	}

	id := idPattern.FindString(text)
	if id == "" {
		// The id substring may already have been swapped for a name on
		// an earlier pass; the recorded attribute still identifies it.
		recorded, found, err := row.Attribute(AttrID)
		if err != nil || !found {
			return "", err
		}
		return recorded, nil
	}

	if err := row.SetAttribute(AttrID, id); err != nil {
		return "", err
	}

	// Resolver miss: leave the raw id visible rather than fail.
	if name, ok := l.resolver.Resolve(id); ok && name != "" {
		if err := row.SetText(strings.Replace(text, id, name, 1)); err != nil {
			return "", err
		}
	}
	return id, nil
}

// highlight applies the mutually exclusive friend/blocked classes to
// the row and to its nearest display wrapper.
func (l *Lobby) highlight(row dom.Element, id string) error {
	friend := l.roster.IsFriend(id)
	blocked := l.roster.IsBlocked(id)

	targets := []dom.Element{row}
	for _, wrapperSel := range l.sel.RowWrappers {
		wrapper, found, err := row.Closest(wrapperSel)
		if err != nil {
			return err
		}
		if found {
			targets = append(targets, wrapper)
			break
		}
	}

	for _, el := range targets {
		if err := dom.SetClass(el, ClassFriend, friend); err != nil {
			return err
		}
		if err := dom.SetClass(el, ClassBlocked, blocked); err != nil {
			return err
		}
	}
	return nil
}

// Row returns the registered row element for id, if one was seen during
// the last Apply pass.
func (l *Lobby) Row(id string) (dom.Element, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	return row, ok
}

// Refresh re-applies the highlight classes for a single id. The overlay
// applier calls this after a toggle so the lobby row matches the new
// roster state without waiting for the next re-render.
func (l *Lobby) Refresh(id string) {
	row, ok := l.Row(id)
	if !ok {
		return
	}
	if err := l.highlight(row, id); err != nil && l.logger != nil {
		l.logger.Warnf("highlight refresh failed for %s: %v", id, err)
	}
}
