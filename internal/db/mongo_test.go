package db_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quill/internal/db"
	"github.com/quillchat/quill/internal/models"
	"github.com/quillchat/quill/internal/utils"
)

func TestMongoTurnStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; skipping mongo integration test")
	}

	database := "quill_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	cfg := utils.MongoConfig{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 5 * time.Second,
	}

	store, err := db.NewMongo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() {
		ctx := context.Background()
		store.Database.Drop(ctx)
		store.Close(ctx)
	}()

	if err := store.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("ensure indexes failed: %v", err)
	}

	ctx := context.Background()
	userID := uuid.NewString()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		turn := models.Turn{
			ID:        uuid.NewString(),
			UserID:    userID,
			Message:   fmt.Sprintf("message %d", i),
			Response:  fmt.Sprintf("response %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.InsertTurn(ctx, turn); err != nil {
			t.Fatalf("failed to insert turn: %v", err)
		}
	}

	// A turn from another user must not leak into the result.
	other := models.Turn{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString(),
		Message:   "other",
		Response:  "other",
		Timestamp: base,
	}
	if err := store.InsertTurn(ctx, other); err != nil {
		t.Fatalf("failed to insert other turn: %v", err)
	}

	turns, err := store.RecentTurns(ctx, userID, 50)
	if err != nil {
		t.Fatalf("failed to list turns: %v", err)
	}

	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		want := fmt.Sprintf("message %d", i)
		if turn.Message != want {
			t.Fatalf("expected turn %d to be %q, got %q", i, want, turn.Message)
		}
	}

	limited, err := store.RecentTurns(ctx, userID, 2)
	if err != nil {
		t.Fatalf("failed to list limited turns: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(limited))
	}
	// The limit keeps the newest turns and drops the oldest.
	if limited[0].Message != "message 1" || limited[1].Message != "message 2" {
		t.Fatalf("unexpected limited turns: %q, %q", limited[0].Message, limited[1].Message)
	}
}
