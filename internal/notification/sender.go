package notification

import (
	"context"
	"os/exec"
	"time"
)

// Timeout bounds a single openclaw invocation.
var Timeout = 10 * time.Second

// SendNotification sends a notification via openclaw CLI.
// Fire-and-forget: never blocks loop, silent on failure.
// No-op when chatID is empty.
func SendNotification(webhook, channel, chatID, message string) {
	if chatID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "openclaw", "message", "send",
		"--webhook", webhook,
		"--channel", channel,
		"--chat-id", chatID,
		"--message", message,
	)

	// Fire and forget - ignore errors
	_ = cmd.Run()
}

// Notifier binds the openclaw destination once so the loop can send
// messages without carrying configuration around.
type Notifier struct {
	Webhook string
	Channel string
	ChatID  string
}

// Enabled reports whether a recipient is configured.
func (n Notifier) Enabled() bool { return n.ChatID != "" }

// Notify sends message to the configured recipient.
func (n Notifier) Notify(message string) {
	SendNotification(n.Webhook, n.Channel, n.ChatID, message)
}
