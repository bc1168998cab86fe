// Package annotate applies roster state onto the host page: username
// substitution and highlight classes on lobby rows, and injected
// notes/toggle controls on the user-detail overlay. Appliers only
// mutate presentation; application data is never touched.
package annotate

// Selectors names the host DOM shapes the appliers bind to. The zero
// value is unusable; start from DefaultSelectors and override fields
// from configuration when the host markup changes.
type Selectors struct {
	// Root is the application root carrying the view marker class.
	Root string `yaml:"root"`

	// LobbyContainer holds the session list in the lobby view.
	LobbyContainer string `yaml:"lobby_container"`

	// GrimoireContainer is the root of the grimoire view.
	GrimoireContainer string `yaml:"grimoire_container"`

	// Row matches the visible player-entry elements. Not every match
	// is a player row; rows without an embedded numeric id are skipped.
	Row string `yaml:"row"`

	// RowWrappers are the ancestor shapes a row's highlight extends to.
	// Exactly one applies per element type; they are tried in order.
	RowWrappers []string `yaml:"row_wrappers"`

	// OverlaySignature identifies a user-detail overlay backdrop among
	// the root container's direct children.
	OverlaySignature string `yaml:"overlay_signature"`

	// PreviewRegion is the overlay sub-region displaying the numeric id.
	PreviewRegion string `yaml:"preview_region"`

	// ProfileName is the overlay sub-region displaying the name.
	ProfileName string `yaml:"profile_name"`

	// DetailPanel is where injected controls are appended.
	DetailPanel string `yaml:"detail_panel"`

	// LoadingPanel is the overlay subelement that carries LoadingClass
	// while the overlay's content is still loading.
	LoadingPanel string `yaml:"loading_panel"`

	// LoadingClass marks an in-progress loading phase.
	LoadingClass string `yaml:"loading_class"`
}

// DefaultSelectors matches the host page as currently shipped.
func DefaultSelectors() Selectors {
	return Selectors{
		Root:              "#main",
		LobbyContainer:    "#lobby",
		GrimoireContainer: "#grimoire",
		Row:               "li.lobby-entry, div.seat-name",
		RowWrappers:       []string{"details.player-group", "div.session-summary"},
		OverlaySignature:  "div.backdrop.user-detail",
		PreviewRegion:     ".user-preview",
		ProfileName:       ".profile-name",
		DetailPanel:       ".profile-card",
		LoadingPanel:      ".profile-card",
		LoadingClass:      "loading",
	}
}

// Class names and attributes grimnote writes into the host DOM. All are
// prefixed to stay clear of the host's own styling.
const (
	// AttrID records a row's extracted player id for later lookup.
	AttrID = "data-grimnote-id"

	// ClassFriend / ClassBlocked are the mutually exclusive highlight
	// classes applied to rows and their display wrappers.
	ClassFriend  = "grimnote-friend"
	ClassBlocked = "grimnote-blocked"

	// Classes of the controls injected into the detail overlay.
	ClassNotesLine    = "grimnote-notes"
	ClassFriendToggle = "grimnote-toggle-friend"
	ClassBlockToggle  = "grimnote-toggle-block"

	// ClassActive marks a toggle whose status is currently set.
	ClassActive = "grimnote-active"
)
