package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/data/redisStore"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

var ErrUnknownChat = errors.New("invalid chat id")

// RedisMessageStore keeps a chat as a marker key plus a list of JSON turns, oldest first.
type RedisMessageStore struct {
	store        *redisStore.Store
	historyLimit int
	logger       *logger_i.Logger
}

func GetRedisMessageStore(ctx context.Context, cfg config.RedisConfig) (*RedisMessageStore, error) {
	s, err := redisStore.GetRedisStore(ctx, cfg, config.RedisMessageStore)
	if err != nil {
		return nil, err
	}
	return NewRedisMessageStore(s, config.DefaultChatHistoryListMax), nil
}

// NewRedisMessageStore returns at most historyLimit turns per chat; 0 returns them all.
func NewRedisMessageStore(store *redisStore.Store, historyLimit int) *RedisMessageStore {
	return &RedisMessageStore{
		store:        store,
		historyLimit: historyLimit,
		logger:       logger_i.NewLogger("MessageStore"),
	}
}

func chatKey(id string) string  { return "chat:" + id }
func turnsKey(id string) string { return "chat:" + id + ":turns" }

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	log := s.logger.WithTrace(ctx).With("chat Id", chatId)
	log.Debug("validating chatId")
	isFound, err := s.store.Exists(ctx, chatKey(chatId))
	if err != nil {
		log.Error("Failed to check if chatId exists", "err", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	log := s.logger.WithTrace(ctx).With("chat Id", id)
	log.Debug("Initializing new chat")
	if err := s.store.Del(ctx, turnsKey(id)); err != nil {
		return err
	}
	return s.store.Set(ctx, chatKey(id), time.Now().UTC().Format(time.RFC3339), config.RedisMessageStoreTTL)
}

func (s *RedisMessageStore) AppendTurn(ctx context.Context, id string, turn commonModels.Turn) error {
	log := s.logger.WithTrace(ctx).With("chat Id", id)
	if !s.ValidateChatId(ctx, id) {
		log.Error("Failed Validation before saving", "err", ErrUnknownChat)
		return fmt.Errorf("%w: %s", ErrUnknownChat, id)
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	if err := s.store.ListPush(ctx, turnsKey(id), data, config.RedisMessageStoreTTL); err != nil {
		log.Error("error saving chat", "error", err)
		return err
	}
	log.Debug("Saved turn successfully")
	return nil
}

func (s *RedisMessageStore) GetHistory(ctx context.Context, chatId string) ([]commonModels.Turn, error) {
	log := s.logger.WithTrace(ctx).With("chat Id", chatId)
	log.Debug("Getting message history")

	res, err := s.store.ListGetLast(ctx, turnsKey(chatId), s.historyLimit)
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}

	history := make([]commonModels.Turn, 0, len(res))
	for _, raw := range res {
		var turn commonModels.Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			log.Warn("Skipping unreadable turn", "error", err)
			continue
		}
		history = append(history, turn)
	}
	return history, nil
}
