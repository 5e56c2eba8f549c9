package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BatchNote summarises one finished batch run for notification.
type BatchNote struct {
	RunID          string
	Started        time.Time
	Elapsed        time.Duration
	Processed      int
	Completed      int
	Skipped        int
	QualityBuckets map[string]int
}

// Notifier delivers batch summaries to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, note BatchNote) error
}

// TelegramNotifier pushes batch summaries through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the rendered summary via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note BatchNote) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("run_id", note.RunID).
		Int("completed", note.Completed).
		Int("skipped", note.Skipped).
		Msg("batch summary sent")
	return nil
}

func renderMessage(note BatchNote) string {
	builder := strings.Builder{}
	builder.WriteString("[Alignment Batch]\n")
	builder.WriteString(fmt.Sprintf("Run: %s\n", note.RunID))
	builder.WriteString(fmt.Sprintf("Started: %s UTC\n", note.Started.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Elapsed: %s\n", note.Elapsed.Round(time.Second)))
	builder.WriteString(fmt.Sprintf("Processed: %d (completed %d, skipped %d)\n", note.Processed, note.Completed, note.Skipped))
	if len(note.QualityBuckets) > 0 {
		keys := make([]string, 0, len(note.QualityBuckets))
		for k := range note.QualityBuckets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		builder.WriteString("Quality: ")
		for i, k := range keys {
			if i > 0 {
				builder.WriteString(", ")
			}
			builder.WriteString(fmt.Sprintf("%s×%d", k, note.QualityBuckets[k]))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
