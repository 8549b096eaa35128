// Package notify forwards lead submissions to a Telegram chat via the Bot
// API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the bot token or chat id is missing.
var ErrNotConfigured = errors.New("telegram credentials not configured")

// Lead is a contact-form submission.
type Lead struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Message string `json:"message,omitempty"`
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Telegram posts lead notifications to one chat.
type Telegram struct {
	token      string
	chatID     string
	siteURL    string
	apiBase    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTelegram creates a notifier. An empty token or chat id is allowed;
// SendLead then fails with ErrNotConfigured.
func NewTelegram(token, chatID, siteURL string, logger *slog.Logger) *Telegram {
	return &Telegram{
		token:      token,
		chatID:     chatID,
		siteURL:    siteURL,
		apiBase:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// SendLead delivers one lead notification.
func (t *Telegram) SendLead(ctx context.Context, lead Lead) error {
	if t.token == "" || t.chatID == "" {
		return ErrNotConfigured
	}

	var text strings.Builder
	text.WriteString("New lead")
	if t.siteURL != "" {
		fmt.Fprintf(&text, " from %s", t.siteURL)
	}
	fmt.Fprintf(&text, "\nName: %s\nContact: %s", lead.Name, lead.Contact)
	if lead.Message != "" {
		fmt.Fprintf(&text, "\nMessage: %s", lead.Message)
	}

	reqBody := sendMessageRequest{ChatID: t.chatID, Text: text.String()}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	t.logger.Info("lead notification sent", "contact", lead.Contact)
	return nil
}
