package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/grimnote/pkg/dom/static"
	"github.com/entrhq/grimnote/pkg/resolver"
	"github.com/entrhq/grimnote/pkg/roster"
)

const lobbyPage = `<html><body>
<div id="main" class="app lobby">
  <div id="lobby">
    <details class="player-group">
      <summary>Session one</summary>
      <li class="lobby-entry">seat 1234567</li>
      <li class="lobby-entry">seat 7654321</li>
      <li class="lobby-entry">empty seat</li>
    </details>
    <div class="session-summary">
      <div class="seat-name">9998887</div>
    </div>
  </div>
</div>
</body></html>`

func newLobbyFixture(t *testing.T) (*static.Document, *Lobby, *roster.Store, *resolver.Resolver) {
	t.Helper()

	doc, err := static.Parse(lobbyPage)
	require.NoError(t, err)

	store := roster.NewStore(roster.NewMemoryStorage(), nil)
	require.NoError(t, store.Load())

	res := resolver.New()
	lobby := NewLobby(store, res, doc.MustFind("#lobby"), DefaultSelectors(), nil)
	return doc, lobby, store, res
}

func TestLobby_Apply(t *testing.T) {
	t.Run("replaces resolved ids and records them", func(t *testing.T) {
		doc, lobby, _, res := newLobbyFixture(t)
		res.Refresh(resolver.SessionList{{UsersAll: []resolver.User{
			{ID: "1234567", Username: "Alice"},
		}}})

		require.NoError(t, lobby.Apply())

		row := doc.MustFind("li.lobby-entry")
		text, err := row.Text()
		require.NoError(t, err)
		assert.Equal(t, "seat Alice", text)

		id, found, err := row.Attribute(AttrID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "1234567", id)

		_, registered := lobby.Row("1234567")
		assert.True(t, registered, "row must be registered for overlay back-reference")
	})

	t.Run("resolver miss leaves text unmodified", func(t *testing.T) {
		doc, lobby, _, _ := newLobbyFixture(t)
		require.NoError(t, lobby.Apply())

		row := doc.MustFind("li.lobby-entry")
		text, err := row.Text()
		require.NoError(t, err)
		assert.Equal(t, "seat 1234567", text)

		// Still registered: highlights work without a resolved name.
		_, registered := lobby.Row("1234567")
		assert.True(t, registered)
	})

	t.Run("rows without a long digit run are skipped", func(t *testing.T) {
		_, lobby, _, _ := newLobbyFixture(t)
		require.NoError(t, lobby.Apply())

		_, registered := lobby.Row("empty")
		assert.False(t, registered)
	})

	t.Run("reapplication is idempotent", func(t *testing.T) {
		doc, lobby, _, res := newLobbyFixture(t)
		res.Refresh(resolver.SessionList{{UsersAll: []resolver.User{
			{ID: "1234567", Username: "Alice"},
		}}})

		require.NoError(t, lobby.Apply())
		require.NoError(t, lobby.Apply())

		row := doc.MustFind("li.lobby-entry")
		text, _ := row.Text()
		assert.Equal(t, "seat Alice", text, "second pass must not double-replace")

		_, registered := lobby.Row("1234567")
		assert.True(t, registered, "registry must survive re-application via recorded attribute")
	})
}

func TestLobby_Highlight(t *testing.T) {
	t.Run("friend class reaches the details wrapper", func(t *testing.T) {
		doc, lobby, store, _ := newLobbyFixture(t)
		_, err := store.ToggleFriend(store.Get("1234567", ""))
		require.NoError(t, err)

		require.NoError(t, lobby.Apply())

		row := doc.MustFind("li.lobby-entry")
		hasFriend, _ := row.HasClass(ClassFriend)
		assert.True(t, hasFriend)

		wrapper := doc.MustFind("details.player-group")
		hasFriend, _ = wrapper.HasClass(ClassFriend)
		assert.True(t, hasFriend, "highlight must extend to the display wrapper")
	})

	t.Run("second wrapper shape applies to seat-name rows", func(t *testing.T) {
		doc, lobby, store, _ := newLobbyFixture(t)
		_, err := store.ToggleBlocked(store.Get("9998887", ""))
		require.NoError(t, err)

		require.NoError(t, lobby.Apply())

		wrapper := doc.MustFind("div.session-summary")
		hasBlocked, _ := wrapper.HasClass(ClassBlocked)
		assert.True(t, hasBlocked)
	})

	t.Run("highlights are mutually exclusive across toggles", func(t *testing.T) {
		doc, lobby, store, _ := newLobbyFixture(t)

		rec, err := store.ToggleFriend(store.Get("1234567", ""))
		require.NoError(t, err)
		require.NoError(t, lobby.Apply())

		_, err = store.ToggleBlocked(rec)
		require.NoError(t, err)
		require.NoError(t, lobby.Apply())

		row := doc.MustFind("li.lobby-entry")
		hasFriend, _ := row.HasClass(ClassFriend)
		hasBlocked, _ := row.HasClass(ClassBlocked)
		assert.False(t, hasFriend, "friend class must be cleared after blocking")
		assert.True(t, hasBlocked)
	})
}
