package conversation

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Store persists conversations to SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a store over an initialized database.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Save writes the conversation and its messages in one transaction.
func (s *Store) Save(conv *Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO conversations (id, start_time) VALUES (?, ?)",
		conv.ID, conv.StartTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	for _, msg := range conv.Messages() {
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO messages (id, conversation_id, sender, content, timestamp) VALUES (?, ?, ?, ?, ?)",
			msg.ID, conv.ID, msg.Sender, msg.Text, msg.Timestamp,
		)
		if err != nil {
			s.logger.Warn("failed to save message", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("conversation saved", "conversation_id", conv.ID, "message_count", conv.Len())
	return nil
}

// Load reads a conversation and its messages by id.
func (s *Store) Load(id string) (*Conversation, error) {
	var startTime time.Time

	err := s.db.QueryRow("SELECT start_time FROM conversations WHERE id = ?", id).
		Scan(&startTime)
	if err != nil {
		return nil, fmt.Errorf("conversation not found: %w", err)
	}

	rows, err := s.db.Query(
		"SELECT id, sender, content, timestamp FROM messages WHERE conversation_id = ? ORDER BY timestamp",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	conv := &Conversation{ID: id, StartTime: startTime}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Text, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		conv.messages = append(conv.messages, msg)
	}

	return conv, nil
}
