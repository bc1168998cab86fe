package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/grimnote/pkg/dom/static"
	"github.com/entrhq/grimnote/pkg/resolver"
	"github.com/entrhq/grimnote/pkg/roster"
)

// fakePrompter answers RequestText with a canned result.
type fakePrompter struct {
	result     *string
	lastPrompt string
	lastSeed   string
	calls      int
}

func (p *fakePrompter) RequestText(prompt, initial string) (*string, error) {
	p.calls++
	p.lastPrompt = prompt
	p.lastSeed = initial
	return p.result, nil
}

const overlayMarkup = `<div class="backdrop user-detail">
  <div class="user-preview">player #1234567</div>
  <div class="profile-name"> Alice </div>
  <div class="profile-card"><div class="bio">veteran</div></div>
</div>`

const loadingOverlayMarkup = `<div class="backdrop user-detail">
  <div class="user-preview">player #1234567</div>
  <div class="profile-name">Alice</div>
  <div class="profile-card loading"></div>
</div>`

type overlayFixture struct {
	doc     *static.Document
	store   *roster.Store
	lobby   *Lobby
	overlay *Overlay
	prompt  *fakePrompter
}

func newOverlayFixture(t *testing.T) *overlayFixture {
	t.Helper()

	doc, err := static.Parse(lobbyPage)
	require.NoError(t, err)

	store := roster.NewStore(roster.NewMemoryStorage(), nil)
	require.NoError(t, store.Load())

	res := resolver.New()
	lobby := NewLobby(store, res, doc.MustFind("#lobby"), DefaultSelectors(), nil)
	require.NoError(t, lobby.Apply())

	prompt := &fakePrompter{}
	overlay := NewOverlay(store, lobby, doc, prompt, DefaultSelectors(), nil)
	return &overlayFixture{doc: doc, store: store, lobby: lobby, overlay: overlay, prompt: prompt}
}

func (f *overlayFixture) appear(t *testing.T, markup string) *static.Element {
	t.Helper()

	app := f.doc.MustFind("#main")
	require.NoError(t, f.doc.AppendHTML(app, markup))
	el := f.doc.MustFind("div.backdrop.user-detail")
	f.overlay.HandleAppear(el)
	return el
}

func TestOverlay_HandleAppear(t *testing.T) {
	t.Run("already loaded overlay is augmented synchronously", func(t *testing.T) {
		f := newOverlayFixture(t)
		f.appear(t, overlayMarkup)

		card := f.doc.MustFind(".profile-card")
		notes, found, err := card.Query("div.grimnote-notes")
		require.NoError(t, err)
		require.True(t, found, "notes line must be inserted without a suspended wait")

		text, _ := notes.Text()
		assert.Equal(t, "Notes: (click to edit)", text)

		friendBtn, found, _ := card.Query("button.grimnote-toggle-friend")
		require.True(t, found)
		label, _ := friendBtn.Text()
		assert.Equal(t, "Add friend", label)

		blockBtn, found, _ := card.Query("button.grimnote-toggle-block")
		require.True(t, found)
		label, _ = blockBtn.Text()
		assert.Equal(t, "Block", label)
	})

	t.Run("loading overlay waits for the marker to clear", func(t *testing.T) {
		f := newOverlayFixture(t)
		f.appear(t, loadingOverlayMarkup)

		card := f.doc.MustFind(".profile-card")
		_, found, _ := card.Query("div.grimnote-notes")
		assert.False(t, found, "augmentation must wait out the loading phase")

		require.NoError(t, card.RemoveClass("loading"))
		f.doc.Flush()

		_, found, _ = card.Query("div.grimnote-notes")
		assert.True(t, found, "augmentation must run once loading clears")
	})

	t.Run("notes line is seeded from the roster", func(t *testing.T) {
		f := newOverlayFixture(t)
		_, err := f.store.SetNote(f.store.Get("1234567", "Alice"), strPtr("solid player"))
		require.NoError(t, err)

		f.appear(t, overlayMarkup)

		notes, found, _ := f.doc.MustFind(".profile-card").Query("div.grimnote-notes")
		require.True(t, found)
		text, _ := notes.Text()
		assert.Equal(t, "Notes: solid player", text)
	})

	t.Run("toggle labels reflect existing membership", func(t *testing.T) {
		f := newOverlayFixture(t)
		_, err := f.store.ToggleFriend(f.store.Get("1234567", "Alice"))
		require.NoError(t, err)

		f.appear(t, overlayMarkup)

		friendBtn, found, _ := f.doc.MustFind(".profile-card").Query("button.grimnote-toggle-friend")
		require.True(t, found)
		label, _ := friendBtn.Text()
		assert.Equal(t, "Remove friend", label)
		active, _ := friendBtn.HasClass(ClassActive)
		assert.True(t, active)
	})
}

func TestOverlay_Toggles(t *testing.T) {
	t.Run("friend toggle updates roster, labels, and lobby row", func(t *testing.T) {
		f := newOverlayFixture(t)
		f.appear(t, overlayMarkup)

		card := f.doc.MustFind(".profile-card")
		friendBtn, found, _ := card.Query("button.grimnote-toggle-friend")
		require.True(t, found)

		require.True(t, f.doc.Click(friendBtn.(*static.Element)))

		assert.True(t, f.store.IsFriend("1234567"))
		label, _ := friendBtn.Text()
		assert.Equal(t, "Remove friend", label)

		row := f.doc.MustFind("li.lobby-entry")
		hasFriend, _ := row.HasClass(ClassFriend)
		assert.True(t, hasFriend, "toggle must reach back to the registered lobby row")
	})

	t.Run("blocking from the overlay clears a friend highlight", func(t *testing.T) {
		f := newOverlayFixture(t)
		_, err := f.store.ToggleFriend(f.store.Get("1234567", "Alice"))
		require.NoError(t, err)
		f.lobby.Refresh("1234567")

		f.appear(t, overlayMarkup)
		card := f.doc.MustFind(".profile-card")
		blockBtn, found, _ := card.Query("button.grimnote-toggle-block")
		require.True(t, found)

		require.True(t, f.doc.Click(blockBtn.(*static.Element)))

		assert.False(t, f.store.IsFriend("1234567"))
		assert.True(t, f.store.IsBlocked("1234567"))

		row := f.doc.MustFind("li.lobby-entry")
		hasFriend, _ := row.HasClass(ClassFriend)
		hasBlocked, _ := row.HasClass(ClassBlocked)
		assert.False(t, hasFriend)
		assert.True(t, hasBlocked)

		friendBtn, found, _ := card.Query("button.grimnote-toggle-friend")
		require.True(t, found)
		label, _ := friendBtn.Text()
		assert.Equal(t, "Add friend", label, "friend label must refresh when blocking clears it")
	})
}

func TestOverlay_Notes(t *testing.T) {
	t.Run("entered text is persisted and displayed", func(t *testing.T) {
		f := newOverlayFixture(t)
		f.prompt.result = strPtr("plays drunk well")

		f.appear(t, overlayMarkup)
		notes, found, _ := f.doc.MustFind(".profile-card").Query("div.grimnote-notes")
		require.True(t, found)

		require.True(t, f.doc.Click(notes.(*static.Element)))

		assert.Equal(t, "plays drunk well", f.store.GetNotes("1234567"))
		text, _ := notes.Text()
		assert.Equal(t, "Notes: plays drunk well", text)
		assert.Contains(t, f.prompt.lastPrompt, "Alice", "prompt should use the displayed name")
	})

	t.Run("cancelled prompt leaves notes unchanged", func(t *testing.T) {
		f := newOverlayFixture(t)
		_, err := f.store.SetNote(f.store.Get("1234567", "Alice"), strPtr("keep"))
		require.NoError(t, err)
		f.prompt.result = nil

		f.appear(t, overlayMarkup)
		notes, found, _ := f.doc.MustFind(".profile-card").Query("div.grimnote-notes")
		require.True(t, found)
		require.True(t, f.doc.Click(notes.(*static.Element)))

		assert.Equal(t, "keep", f.store.GetNotes("1234567"))
		assert.Equal(t, "keep", f.prompt.lastSeed, "prompt must be seeded with the current note")
	})

	t.Run("explicit empty string is a real note", func(t *testing.T) {
		f := newOverlayFixture(t)
		_, err := f.store.ToggleFriend(f.store.Get("1234567", "Alice"))
		require.NoError(t, err)
		f.prompt.result = strPtr("")

		f.appear(t, overlayMarkup)
		notes, found, _ := f.doc.MustFind(".profile-card").Query("div.grimnote-notes")
		require.True(t, found)
		require.True(t, f.doc.Click(notes.(*static.Element)))

		rec := f.store.Get("1234567", "")
		require.NotNil(t, rec.Notes)
		assert.Equal(t, "", *rec.Notes)
	})
}

func strPtr(s string) *string {
	return &s
}
