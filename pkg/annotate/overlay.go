package annotate

import (
	"fmt"
	"strings"

	"github.com/entrhq/grimnote/pkg/dom"
	"github.com/entrhq/grimnote/pkg/logging"
	"github.com/entrhq/grimnote/pkg/roster"
)

// Prompter requests free-text input from the user. A nil result means
// the request was cancelled; an empty string is a real answer and the
// two must never be collapsed.
type Prompter interface {
	RequestText(prompt, initial string) (*string, error)
}

// Overlay augments the user-detail overlay with a notes line and
// friend/block toggle controls, and routes their interactions through
// the roster store.
type Overlay struct {
	roster   *roster.Store
	lobby    *Lobby
	observer dom.Observer
	prompt   Prompter
	sel      Selectors
	logger   *logging.Logger
}

// NewOverlay creates the overlay applier. lobby provides the id → row
// registry used to mirror toggles back onto the visible lobby rows.
func NewOverlay(rosterStore *roster.Store, lobby *Lobby, observer dom.Observer, prompt Prompter, sel Selectors, logger *logging.Logger) *Overlay {
	return &Overlay{
		roster:   rosterStore,
		lobby:    lobby,
		observer: observer,
		prompt:   prompt,
		sel:      sel,
		logger:   logger,
	}
}

// HandleAppear is invoked by the overlay detector for each appearing
// overlay. Augmentation waits for the overlay's loading phase to clear;
// when no loading marker is present the overlay is already loaded and
// augmentation proceeds synchronously.
func (o *Overlay) HandleAppear(overlay dom.Element) {
	panel, found, err := overlay.Query(o.sel.LoadingPanel)
	if err != nil {
		o.warnf("overlay inspection failed: %v", err)
		return
	}
	if !found {
		o.augment(overlay)
		return
	}

	err = dom.AwaitClassCleared(o.observer, panel, o.sel.LoadingClass, func() {
		o.augment(overlay)
	})
	if err != nil {
		o.warnf("failed to await overlay load: %v", err)
	}
}

func (o *Overlay) augment(overlay dom.Element) {
	id, name, err := o.identity(overlay)
	if err != nil {
		o.warnf("overlay augmentation skipped: %v", err)
		return
	}

	panel, found, err := overlay.Query(o.sel.DetailPanel)
	if err != nil || !found {
		o.warnf("detail panel not found in overlay (err=%v)", err)
		return
	}

	if err := o.buildControls(panel, id, name); err != nil {
		o.warnf("failed to build overlay controls: %v", err)
	}
}

// identity parses the displayed numeric id and name out of the
// overlay's fixed sub-regions.
func (o *Overlay) identity(overlay dom.Element) (id, name string, err error) {
	preview, found, err := overlay.Query(o.sel.PreviewRegion)
	if err != nil {
		return "", "", err
	}
	if !found {
		return "", "", fmt.Errorf("no preview region")
	}

	text, err := preview.Text()
	if err != nil {
		return "", "", err
	}
	id = idPattern.FindString(text)
	if id == "" {
		return "", "", fmt.Errorf("no numeric id in preview region")
	}

	if nameEl, found, err := overlay.Query(o.sel.ProfileName); err == nil && found {
		if t, err := nameEl.Text(); err == nil {
			name = strings.TrimSpace(t)
		}
	}
	return id, name, nil
}

func (o *Overlay) buildControls(panel dom.Element, id, name string) error {
	notesLine, err := panel.Append(dom.ElementSpec{
		Tag:     "div",
		Classes: []string{ClassNotesLine},
		Text:    notesLabel(o.roster.GetNotes(id)),
	})
	if err != nil {
		return err
	}

	friendBtn, err := panel.Append(dom.ElementSpec{
		Tag:     "button",
		Classes: []string{ClassFriendToggle},
	})
	if err != nil {
		return err
	}

	blockBtn, err := panel.Append(dom.ElementSpec{
		Tag:     "button",
		Classes: []string{ClassBlockToggle},
	})
	if err != nil {
		return err
	}

	refresh := func() {
		o.refreshToggle(friendBtn, friendLabel(o.roster.IsFriend(id)), o.roster.IsFriend(id))
		o.refreshToggle(blockBtn, blockLabel(o.roster.IsBlocked(id)), o.roster.IsBlocked(id))
	}
	refresh()

	if err := friendBtn.OnClick(func() {
		if _, err := o.roster.ToggleFriend(o.roster.Get(id, name)); err != nil {
			o.warnf("friend toggle failed for %s: %v", id, err)
			return
		}
		refresh()
		o.lobby.Refresh(id)
	}); err != nil {
		return err
	}

	if err := blockBtn.OnClick(func() {
		if _, err := o.roster.ToggleBlocked(o.roster.Get(id, name)); err != nil {
			o.warnf("block toggle failed for %s: %v", id, err)
			return
		}
		refresh()
		o.lobby.Refresh(id)
	}); err != nil {
		return err
	}

	return notesLine.OnClick(func() {
		o.editNotes(notesLine, id, name)
	})
}

// editNotes prompts for a replacement note. Cancellation leaves the
// note unchanged; any returned string, the empty one included, is
// persisted as the new note.
func (o *Overlay) editNotes(notesLine dom.Element, id, name string) {
	input, err := o.prompt.RequestText(fmt.Sprintf("Notes for %s", displayName(id, name)), o.roster.GetNotes(id))
	if err != nil {
		o.warnf("notes prompt failed for %s: %v", id, err)
		return
	}
	if input == nil {
		return
	}

	if _, err := o.roster.SetNote(o.roster.Get(id, name), input); err != nil {
		o.warnf("failed to save note for %s: %v", id, err)
		return
	}
	if err := notesLine.SetText(notesLabel(*input)); err != nil {
		o.warnf("failed to update notes line: %v", err)
	}
}

func (o *Overlay) refreshToggle(btn dom.Element, label string, active bool) {
	if err := btn.SetText(label); err != nil {
		o.warnf("failed to update toggle label: %v", err)
	}
	if err := dom.SetClass(btn, ClassActive, active); err != nil {
		o.warnf("failed to update toggle state: %v", err)
	}
}

func (o *Overlay) warnf(format string, v ...interface{}) {
	if o.logger != nil {
		o.logger.Warnf(format, v...)
	}
}

func notesLabel(notes string) string {
	if notes == "" {
		return "Notes: (click to edit)"
	}
	return "Notes: " + notes
}

func friendLabel(isFriend bool) string {
	if isFriend {
		return "Remove friend"
	}
	return "Add friend"
}

func blockLabel(isBlocked bool) string {
	if isBlocked {
		return "Unblock"
	}
	return "Block"
}

func displayName(id, name string) string {
	if name != "" {
		return name
	}
	return id
}
