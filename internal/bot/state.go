package bot

import (
	lru "github.com/hashicorp/golang-lru"

	"economy-bot/internal/models"
)

// Flow identifies which multi-step dialog a user is in. One flow is active
// per user at a time.
type Flow int

const (
	FlowNone Flow = iota
	FlowDeposit
	FlowWithdraw
	FlowCreateCheck
	FlowEditBalance
)

// Step is the position inside the active flow.
type Step int

const (
	StepNone Step = iota

	StepCheckCurrency
	StepCheckActivations
	StepCheckAmount
	StepCheckCode

	StepEditUser
	StepEditCurrency
	StepEditAmount
)

// Conversation carries the active flow plus its partially collected fields.
// It has no persistence: losing it mid-flow just forces a restart.
type Conversation struct {
	Flow Flow
	Step Step

	CheckCurrency    models.Currency
	CheckActivations int
	CheckAmount      int64

	EditUserID   int64
	EditCurrency models.Currency
}

// stateStore keeps per-user conversations in a bounded LRU map, so abandoned
// flows get evicted instead of leaking.
type stateStore struct {
	cache *lru.Cache
}

func newStateStore(size int) (*stateStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &stateStore{cache: cache}, nil
}

func (s *stateStore) get(userID int64) (*Conversation, bool) {
	v, ok := s.cache.Get(userID)
	if !ok {
		return nil, false
	}
	return v.(*Conversation), true
}

func (s *stateStore) set(userID int64, conv *Conversation) {
	s.cache.Add(userID, conv)
}

func (s *stateStore) clear(userID int64) {
	s.cache.Remove(userID)
}
