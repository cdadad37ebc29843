// Package scheduler runs the background loop that fires due campaign starts
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/app/middleware"
	"github.com/wappanel/wappanel-backend/app/services"
	"github.com/wappanel/wappanel-backend/config"
	"github.com/wappanel/wappanel-backend/utils"
)

// CampaignDispatcher drains the schedule queue and fires due campaign starts
// against the internal start-trigger endpoint. Delivery is at-least-once; the
// endpoint is idempotent, so a crash between POST and queue removal is safe.
type CampaignDispatcher struct {
	queue    services.TaskQueue
	tokens   services.TokenService
	cfg      config.SchedulerConfig
	logger   *log.Logger
	interval time.Duration
	client   *http.Client

	logFile *os.File
}

// NewCampaignDispatcher creates a dispatcher instance
func NewCampaignDispatcher(
	queue services.TaskQueue,
	tokens services.TokenService,
	cfg config.SchedulerConfig,
	interval time.Duration,
) *CampaignDispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	d := &CampaignDispatcher{
		queue:    queue,
		tokens:   tokens,
		cfg:      cfg,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if err := d.initDispatcherLogger(); err != nil {
		d.logger = log.Default()
		d.logger.Printf("dispatcher: failed to initialize file logger: %v", err)
	}

	return d
}

// initDispatcherLogger configures a logger that writes to both stdout and a persistent file under data/ (or /data)
func (d *CampaignDispatcher) initDispatcherLogger() error {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		logPath := filepath.Join(dir, "dispatcher.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		d.logFile = f
		mw := io.MultiWriter(os.Stdout, f)
		d.logger = log.New(mw, "dispatcher ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create dispatcher log file in any candidate directory")
}

// Start launches the dispatcher loop in a background goroutine and returns a stop function
func (d *CampaignDispatcher) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		d.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				if d.logFile != nil {
					_ = d.logFile.Close()
				}
				return
			case <-ticker.C:
				d.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (d *CampaignDispatcher) runOnce(ctx context.Context) {
	tasks, err := d.queue.PopDue(ctx, utils.UTCNow(), 100)
	if err != nil {
		d.logger.Printf("dispatcher: failed to pop due tasks: %v", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	d.logger.Printf("dispatcher: %d task(s) due", len(tasks))

	for _, task := range tasks {
		if task.Action != services.TaskActionStart {
			d.logger.Printf("dispatcher: skipping task %s with unknown action %q", task.TaskID, task.Action)
			continue
		}
		if err := d.fireStart(ctx, task); err != nil {
			middleware.RecordSchedulerDispatch("error")
			d.logger.Printf("dispatcher: task %s for campaign %s failed: %v", task.TaskID, task.CampaignID, err)
			continue
		}
		middleware.RecordSchedulerDispatch("fired")
		d.logger.Printf("dispatcher: campaign %s start fired (task %s)", task.CampaignID, task.TaskID)
	}
}

// fireStart posts the start trigger with a fresh short-lived bearer token
func (d *CampaignDispatcher) fireStart(ctx context.Context, task services.CampaignTask) error {
	token, err := d.tokens.GenerateSchedulerToken()
	if err != nil {
		return fmt.Errorf("failed to sign scheduler token: %w", err)
	}

	payload := dto.StartCampaignRequest{
		CampaignID: task.CampaignID,
		Action:     task.Action,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := d.cfg.InternalBaseURL + "/api/v1/internal/campaigns/start"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Scheduler-Secret", d.cfg.SharedSecret)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("start trigger request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("start trigger returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
