package infrastructure

import (
	"fmt"
	"os/exec"

	"github.com/yourusername/pulldown-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService surfaces user-visible notices
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	switch n.config.Method {
	case "log", "":
		n.logger.Warn(title, zap.String("notice", message))
		return nil
	case "osascript":
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		return n.exec("osascript", "-e", script)
	case "notify-send":
		return n.exec("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

func (n *NotificationService) exec(name string, args ...string) error {
	if err := n.run(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", name),
			zap.Error(err))
		return err
	}
	return nil
}

// NotifyStartFailed tells the user a download could not be submitted
func (n *NotificationService) NotifyStartFailed(url string, err error) {
	n.Send("Download Failed to Start", fmt.Sprintf("%s: %v", truncateString(url, 60), err))
}

// NotifyStopDegraded tells the user that stop fell back to pause
func (n *NotificationService) NotifyStopDegraded(paused int) {
	n.Send("Stop Not Supported",
		fmt.Sprintf("Hard stop is not implemented in the backend yet. Paused %d download(s) instead.", paused))
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
