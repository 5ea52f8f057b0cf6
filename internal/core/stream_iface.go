package core

import (
	"errors"

	"github.com/dkeye/Relay/internal/domain"
)

var ErrStreamNotFound = errors.New("stream not found")

// StreamService is one live broadcast: exactly one broadcaster, any viewers.
// Once ended it is terminal; a new start with the same id is a new instance.
type StreamService interface {
	ID() domain.StreamID
	Broadcaster() domain.Member
	ViewerCount() int
	HasViewer(sid domain.ConnID) bool

	// AddViewer fails with ErrStreamNotFound after End.
	AddViewer(sid domain.ConnID, fn func(broadcaster domain.Member, added bool)) error
	RemoveViewer(sid domain.ConnID) bool
	// End reports true and runs fn only on the first call.
	End(fn func(viewers []domain.ConnID)) bool
	// WithAudience runs fn with broadcaster and viewers; false once ended.
	WithAudience(fn func(audience []domain.ConnID)) bool
}

// StreamDirectory maps stream ids to the live instance for that id.
type StreamDirectory interface {
	// Start installs a fresh instance and returns the one it replaced, if any.
	Start(id domain.StreamID, broadcaster domain.Member) (started StreamService, replaced StreamService)
	Get(id domain.StreamID) (StreamService, bool)
	// Join adds sid as a viewer of whatever instance is live for id.
	Join(id domain.StreamID, sid domain.ConnID, fn func(broadcaster domain.Member, added bool)) error
	// Remove deletes id only while s is still the live instance.
	Remove(id domain.StreamID, s StreamService) bool
	Owned(sid domain.ConnID) []StreamService
	Watching(sid domain.ConnID) []StreamService
	List() []domain.StreamInfo
}
