package router

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/reisbot/reisbot/pkg/bus"
)

// ContinuationFunc handles the next message from a chat that was
// previously prompted for input.
type ContinuationFunc func(ctx context.Context, ev bus.InboundEvent)

type continuation struct {
	chatID       string
	handler      ContinuationFunc
	registeredAt time.Time
}

const shardCount = 16

// continuationStore holds at most one pending continuation per chat.
// It is sharded so concurrent updates for different chats do not
// contend on a single lock.
type continuationStore struct {
	shards [shardCount]continuationShard
}

type continuationShard struct {
	mu      sync.Mutex
	pending map[string]continuation
}

func newContinuationStore() *continuationStore {
	s := &continuationStore{}
	for i := range s.shards {
		s.shards[i].pending = make(map[string]continuation)
	}
	return s
}

func (s *continuationStore) shard(chatID string) *continuationShard {
	h := fnv.New32a()
	h.Write([]byte(chatID))
	return &s.shards[h.Sum32()%shardCount]
}

// Register installs a continuation for the chat, replacing any
// previous one. The replacement is silent: only the newest handler
// fires on the next message.
func (s *continuationStore) Register(chatID string, handler ContinuationFunc) {
	sh := s.shard(chatID)
	sh.mu.Lock()
	sh.pending[chatID] = continuation{chatID: chatID, handler: handler, registeredAt: time.Now()}
	sh.mu.Unlock()
}

// Consume removes and returns the chat's pending continuation. The
// chat is back to its idle state before the handler even runs, so a
// handler failure never leaves a stale prompt behind.
func (s *continuationStore) Consume(chatID string) (ContinuationFunc, bool) {
	sh := s.shard(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c, ok := sh.pending[chatID]
	if !ok {
		return nil, false
	}
	delete(sh.pending, chatID)
	return c.handler, true
}

func (s *continuationStore) Pending(chatID string) bool {
	sh := s.shard(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.pending[chatID]
	return ok
}
