package domain

type RoomID string

// MaxRoomMembers is the hard cap on room membership; configuration may lower it.
const MaxRoomMembers = 5

// Visibility controls how a room can be discovered.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	// VisibilitySecret rooms are reachable only by their exact id.
	VisibilitySecret Visibility = "secret"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilitySecret:
		return true
	}
	return false
}

// Layout is a rendering hint for clients; empty means client default.
type Layout string

const (
	LayoutHorizontal Layout = "horizontal"
	LayoutVertical   Layout = "vertical"
)

func (l Layout) Valid() bool {
	return l == "" || l == LayoutHorizontal || l == LayoutVertical
}
