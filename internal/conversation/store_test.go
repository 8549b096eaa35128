package conversation

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OptimaChat/internal/telemetry"
)

func TestStoreSaveLoad(t *testing.T) {
	db, err := telemetry.InitDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db, slog.Default())

	conv := New()
	first := NewMessage(SenderUser, "hello")
	second := NewMessage(SenderBot, "hi")
	second.Timestamp = first.Timestamp.Add(time.Second)
	conv.Append(first)
	conv.Append(second)
	require.NoError(t, store.Save(conv))

	loaded, err := store.Load(conv.ID)
	require.NoError(t, err)

	msgs := loaded.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, SenderUser, msgs[0].Sender)
	assert.Equal(t, "hi", msgs[1].Text)
	assert.Equal(t, SenderBot, msgs[1].Sender)
}

func TestStoreLoadMissing(t *testing.T) {
	db, err := telemetry.InitDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db, slog.Default())
	_, err = store.Load("no-such-id")
	assert.Error(t, err)
}
