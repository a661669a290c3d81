package bot

import "sync"

// step is what the bot expects next from a user.
type step int

const (
	stepNone step = iota
	stepSiteDiscount
	stepChannelID
	stepPriceUpdate
	stepPriceRange
	stepBulkEditUpload
)

// String returns the step name used in logs.
func (s step) String() string {
	switch s {
	case stepSiteDiscount:
		return "site_discount"
	case stepChannelID:
		return "channel_id"
	case stepPriceUpdate:
		return "price_update"
	case stepPriceRange:
		return "price_range"
	case stepBulkEditUpload:
		return "bulk_edit_upload"
	default:
		return "none"
	}
}

// state is the conversation state of one user.
type state struct {
	step step
	// productID is the product whose range is being edited.
	productID int64
}

// states holds conversation state per user in memory. State is lost on
// restart, which only abandons half-finished prompts.
type states struct {
	mu sync.Mutex
	m  map[int64]state
}

func newStates() *states {
	return &states{m: make(map[int64]state)}
}

func (s *states) get(userID int64) state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[userID]
}

func (s *states) set(userID int64, st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.step == stepNone {
		delete(s.m, userID)
		return
	}
	s.m[userID] = st
}

func (s *states) clear(userID int64) {
	s.set(userID, state{})
}
