package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type InMemoryMessageStore struct {
	chatLock     *sync.RWMutex
	chatMap      map[string][]commonModels.Turn
	historyLimit int
	logger       *logger_i.Logger
}

func InitMessageStore(historyLimit int) *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chatLock:     new(sync.RWMutex),
		chatMap:      make(map[string][]commonModels.Turn),
		historyLimit: historyLimit,
		logger:       logger_i.NewLogger("InMem MessageStore"),
	}
}

func (store *InMemoryMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryMessageStore) InitNewChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = make([]commonModels.Turn, 0)
	return nil
}

func (store *InMemoryMessageStore) AppendTurn(ctx context.Context, id string, turn commonModels.Turn) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	turns, ok := store.chatMap[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChat, id)
	}
	store.chatMap[id] = append(turns, turn)
	store.logger.WithTrace(ctx).Debug("Saved turn to chat message store", "chatId", id)
	return nil
}

func (store *InMemoryMessageStore) GetHistory(ctx context.Context, chatId string) ([]commonModels.Turn, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	turns := store.chatMap[chatId]
	if store.historyLimit > 0 && len(turns) > store.historyLimit {
		turns = turns[len(turns)-store.historyLimit:]
	}
	return slices.Clone(turns), nil
}
