package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/data/redisStore"
	"github.com/akolanti/DocQA/internal/data/store"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func messageStores(t *testing.T, historyLimit int) map[string]jobModel.MessageStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return map[string]jobModel.MessageStore{
		"redis":    store.NewRedisMessageStore(redisStore.NewTestStore(client), historyLimit),
		"inMemory": store.InitMessageStore(historyLimit),
	}
}

func TestMessageStore_Conversation(t *testing.T) {
	for name, messages := range messageStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "chat-trace")

			if messages.ValidateChatId(ctx, "chat-1") {
				t.Fatal("unknown chat validated")
			}
			if err := messages.InitNewChat(ctx, "chat-1"); err != nil {
				t.Fatalf("InitNewChat failed: %v", err)
			}
			if !messages.ValidateChatId(ctx, "chat-1") {
				t.Fatal("new chat not validated")
			}

			history, err := messages.GetHistory(ctx, "chat-1")
			if err != nil || len(history) != 0 {
				t.Fatalf("new chat history got %v, %v", history, err)
			}

			turns := []commonModels.Turn{
				{Question: "What is the capital of France?", Answer: "Paris."},
				{Question: "What is its population?", Answer: "About 68 million."},
			}
			for _, turn := range turns {
				if err := messages.AppendTurn(ctx, "chat-1", turn); err != nil {
					t.Fatalf("AppendTurn failed: %v", err)
				}
			}

			history, err = messages.GetHistory(ctx, "chat-1")
			if err != nil {
				t.Fatal(err)
			}
			if len(history) != 2 || history[0] != turns[0] || history[1] != turns[1] {
				t.Errorf("history got %+v, want %+v", history, turns)
			}
		})
	}
}

func TestMessageStore_AppendToUnknownChat(t *testing.T) {
	for name, messages := range messageStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			err := messages.AppendTurn(context.Background(), "ghost", commonModels.Turn{Question: "q", Answer: "a"})
			if !errors.Is(err, store.ErrUnknownChat) {
				t.Errorf("got %v, want ErrUnknownChat", err)
			}
		})
	}
}

func TestMessageStore_HistoryLimitKeepsNewest(t *testing.T) {
	for name, messages := range messageStores(t, 2) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := messages.InitNewChat(ctx, "chat-2"); err != nil {
				t.Fatal(err)
			}
			for _, q := range []string{"q1", "q2", "q3"} {
				if err := messages.AppendTurn(ctx, "chat-2", commonModels.Turn{Question: q, Answer: "a"}); err != nil {
					t.Fatal(err)
				}
			}

			history, err := messages.GetHistory(ctx, "chat-2")
			if err != nil {
				t.Fatal(err)
			}
			if len(history) != 2 || history[0].Question != "q2" || history[1].Question != "q3" {
				t.Errorf("history got %+v", history)
			}
		})
	}
}

func TestMessageStore_InitResetsHistory(t *testing.T) {
	for name, messages := range messageStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = messages.InitNewChat(ctx, "chat-3")
			_ = messages.AppendTurn(ctx, "chat-3", commonModels.Turn{Question: "q", Answer: "a"})
			_ = messages.InitNewChat(ctx, "chat-3")

			history, _ := messages.GetHistory(ctx, "chat-3")
			if len(history) != 0 {
				t.Errorf("history not reset: %+v", history)
			}
		})
	}
}
