package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends tier transition messages to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.TransitionNotifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// NotifyTransition posts a Markdown message describing one accepted transition.
func (n *Notifier) NotifyTransition(ctx context.Context, rec domain.TransitionRecord) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatTransition(rec))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func formatTransition(rec domain.TransitionRecord) string {
	return fmt.Sprintf("*Tier change* for customer `%s`\n%s → %s (%s)\nconfidence %.2f, events %d, spend %.2f",
		rec.CustomerID, rec.OldTier, rec.NewTier, rec.Reason, rec.Confidence, rec.EventCount, rec.MonetarySum)
}
