package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fetalscan/internal/config"
)

const userAgent = "fetalscan/0.1.0"

// Finalized describes a report that reached the final collection.
type Finalized struct {
	PatientName string
	PatientID   string
	Status      string
	By          string
	Warnings    int
}

// Service defines the notification surface exposed to the lifecycle controller.
type Service interface {
	NotifyReportFinalized(ctx context.Context, report Finalized) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyReportFinalized(ctx context.Context, report Finalized) error {
	name := strings.TrimSpace(report.PatientName)
	if name == "" {
		name = "Unknown patient"
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Report %s: %s", strings.ToLower(report.Status), name)
	if id := strings.TrimSpace(report.PatientID); id != "" {
		fmt.Fprintf(&builder, " (%s)", id)
	}
	if by := strings.TrimSpace(report.By); by != "" {
		fmt.Fprintf(&builder, "\nBy: %s", by)
	}
	data := payload{
		title:   "fetalscan - Report Ready",
		message: builder.String(),
		tags:    []string{"fetalscan", "report", strings.ToLower(report.Status)},
	}
	if report.Warnings > 0 {
		fmt.Fprintf(&builder, "\nClinical warnings: %d", report.Warnings)
		data.message = builder.String()
		data.priority = "high"
		data.tags = append(data.tags, "warning")
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "fetalscan - Test",
		message:  "Notification system test",
		tags:     []string{"fetalscan", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyReportFinalized(context.Context, Finalized) error { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
