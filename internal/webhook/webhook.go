// Package webhook notifies external endpoints when a triage run finishes.
// Lark group-bot URLs get a text-card payload; every other endpoint gets a
// generic JSON event.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sekai-app/bug-analysis-agent/internal/logger"
)

// DefaultTimeout bounds one webhook delivery attempt.
const DefaultTimeout = 10 * time.Second

// Notification carries the outcome of one triage run.
type Notification struct {
	AnalysisID  string
	Status      string // "completed" or "failed"
	Result      string // rendered summary when completed
	Error       string // error text when failed
	CSVFile     string
	UserID      string
	CompletedAt time.Time
}

// Sender posts notifications with retry. A sender with an empty URL is
// disabled and silently accepts every send.
type Sender struct {
	url     string
	client  *http.Client
	retries int
	lark    bool
	backoff time.Duration
	log     *logger.Logger
}

// New creates a sender. timeout <= 0 means DefaultTimeout; retries is the
// number of extra attempts after the first.
func New(url string, timeout time.Duration, retries int, log *logger.Logger) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retries < 0 {
		retries = 0
	}
	if log == nil {
		log = logger.New("webhook", nil)
	}
	return &Sender{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		lark:    isLarkURL(url),
		backoff: time.Second,
		log:     log,
	}
}

// Enabled reports whether the sender has an endpoint configured.
func (s *Sender) Enabled() bool {
	return s.url != ""
}

func isLarkURL(url string) bool {
	return strings.Contains(url, "larksuite.com") || strings.Contains(url, "feishu.cn")
}

// Send delivers the notification, retrying with exponential backoff. A
// disabled sender returns nil immediately.
func (s *Sender) Send(ctx context.Context, n *Notification) error {
	if !s.Enabled() {
		s.log.Debug("webhook disabled, skipping send")
		return nil
	}

	var payload interface{}
	if s.lark {
		payload = s.larkPayload(n)
	} else {
		payload = s.genericPayload(n)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			wait := s.backoff << (attempt - 1)
			s.log.Debug("waiting %v before webhook retry %d", wait, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = s.post(ctx, body)
		if lastErr == nil {
			s.log.Info("webhook notification sent for analysis %s", n.AnalysisID)
			return nil
		}
		s.log.Warn("webhook attempt %d failed: %v", attempt+1, lastErr)
	}

	return fmt.Errorf("webhook failed after %d attempt(s): %w", s.retries+1, lastErr)
}

func (s *Sender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "bug-analysis-agent/1.0")
	if !s.lark {
		req.Header.Set("X-Event-Type", "analysis_complete")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	// Lark responds 200 even on rejection; the real verdict is in the body.
	if s.lark {
		var larkResp struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if err := json.Unmarshal(data, &larkResp); err != nil {
			return fmt.Errorf("response is not JSON: %w", err)
		}
		if larkResp.Code != 0 {
			return fmt.Errorf("lark rejected message: code=%d msg=%s", larkResp.Code, larkResp.Msg)
		}
	}
	return nil
}

func (s *Sender) larkPayload(n *Notification) map[string]interface{} {
	var lines []string

	statusText := "completed"
	if n.Status != "completed" {
		statusText = "failed"
	}
	lines = append(lines,
		fmt.Sprintf("Log analysis %s!", statusText),
		"",
		fmt.Sprintf("Analysis ID: %s", n.AnalysisID),
	)
	if !n.CompletedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Completed: %s", n.CompletedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	}
	lines = append(lines, "")

	switch {
	case n.Status == "completed" && n.Result != "":
		lines = append(lines, "Results:\n"+n.Result)
		if n.CSVFile != "" {
			lines = append(lines, "", "CSV report: "+n.CSVFile)
		}
	case n.Status == "failed" && n.Error != "":
		lines = append(lines, "Error:\n"+n.Error)
	}

	return map[string]interface{}{
		"msg_type": "text",
		"content": map[string]interface{}{
			"text": strings.Join(lines, "\n"),
		},
	}
}

func (s *Sender) genericPayload(n *Notification) map[string]interface{} {
	analysis := map[string]interface{}{
		"id":      n.AnalysisID,
		"status":  n.Status,
		"user_id": n.UserID,
	}
	if !n.CompletedAt.IsZero() {
		analysis["completed_at"] = n.CompletedAt.UTC().Format(time.RFC3339)
	}
	if n.Status == "completed" && n.Result != "" {
		analysis["result"] = n.Result
		if n.CSVFile != "" {
			analysis["csv_file"] = n.CSVFile
		}
	}
	if n.Status == "failed" && n.Error != "" {
		analysis["error"] = n.Error
	}

	return map[string]interface{}{
		"event_type": "analysis_complete",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"analysis":   analysis,
	}
}
