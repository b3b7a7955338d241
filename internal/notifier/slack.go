package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amishk599/jobimpact/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts the sweep summary to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(time.Duration)
}

// NewSlackNotifier returns a notifier that posts one Block Kit message per sweep.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Notify sends the summary of runs as a single Slack message. A 429 is
// retried once after Retry-After.
func (s *SlackNotifier) Notify(sweepID string, runs []model.ModelRun) error {
	if len(runs) == 0 {
		return nil
	}

	body, err := json.Marshal(buildPayload(sweepID, runs))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", retryAfter)
		s.sleep(time.Duration(retryAfter) * time.Second)

		status, _, err = s.post(body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		s.logger.Info("slack summary sent", "sweep", sweepID, "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack summary sent", "sweep", sweepID)
	return nil
}

func (s *SlackNotifier) post(body []byte) (status, retryAfter int, err error) {
	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	retryAfter, _ = strconv.Atoi(resp.Header.Get("Retry-After"))
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return resp.StatusCode, retryAfter, nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a sample sweep summary to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	now := time.Now()
	return n.Notify("test", []model.ModelRun{{
		Model:      "openai/gpt-5",
		Provider:   "openrouter",
		State:      model.StateDone,
		Succeeded:  1,
		Files:      []string{"results/openai_gpt-5_" + now.Format("20060102_150405") + ".json"},
		StartedAt:  now,
		FinishedAt: now,
	}})
}

func stateIcon(s model.RunState) string {
	switch s {
	case model.StateDone:
		return "✅"
	case model.StateFailed:
		return "❌"
	default:
		return "⏸️"
	}
}

func buildPayload(sweepID string, runs []model.ModelRun) slackPayload {
	done := 0
	for _, r := range runs {
		if r.State == model.StateDone {
			done++
		}
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("📊 Sweep complete: %d/%d models done", done, len(runs))},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Sweep:* " + sweepID},
		},
	}

	for _, r := range runs {
		detail := fmt.Sprintf("*Jobs:*\n%d ok / %d failed", r.Succeeded, r.Failed)
		if r.Err != nil {
			detail = "*Error:*\n" + truncate(r.Err.Error(), 200)
		}
		elapsed := "-"
		if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
			elapsed = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("%s *%s*\n%s", stateIcon(r.State), r.Model, r.Provider)},
				{Type: "mrkdwn", Text: detail},
				{Type: "mrkdwn", Text: "*Elapsed:*\n" + elapsed},
				{Type: "mrkdwn", Text: "*Files:*\n" + filesText(r.Files)},
			},
		})
	}

	blocks = append(blocks, slackBlock{Type: "divider"})
	return slackPayload{Blocks: blocks}
}

func filesText(files []string) string {
	if len(files) == 0 {
		return "none"
	}
	return strings.Join(files, "\n")
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
