package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gen2brain/beeep"
)

// ErrRecipientOffline is returned when a message cannot be delivered or parked
// for later pickup.
var ErrRecipientOffline = errors.New("recipient is offline")

// Messenger delivers a text message to one user. Each call succeeds or fails
// independently of any other call.
type Messenger interface {
	Send(ctx context.Context, userID int64, text string) error
}

// LogMessenger writes messages to the log instead of delivering them.
type LogMessenger struct{}

func (LogMessenger) Send(ctx context.Context, userID int64, text string) error {
	log.Printf("LogMessenger: userId=%d text=%q", userID, text)
	return nil
}

// DesktopMessenger shows every message as a desktop notification on the
// machine running the server. Intended for local runs of the service.
type DesktopMessenger struct {
	Title string
}

func (d DesktopMessenger) Send(ctx context.Context, userID int64, text string) error {
	title := d.Title
	if title == "" {
		title = "the-line"
	}
	if err := beeep.Alert(fmt.Sprintf("%s: user %d", title, userID), text, ""); err != nil {
		return fmt.Errorf("desktop notification failed: %w", err)
	}
	return nil
}
