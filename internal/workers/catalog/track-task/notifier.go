// internal/workers/catalog/track-task/notifier.go
package tracktask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chezona/chorom/internal/models"
)

var (
	ErrNotificationFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// Notifier tells a vendor how their catalog write ended.
type Notifier interface {
	Notify(ctx context.Context, task TrackedTask, status models.TaskStatus) error
}

// SMSSender is satisfied by aws.SNSClient.
type SMSSender interface {
	PublishSMS(ctx context.Context, phoneNumber, message string) (string, error)
}

type SMSNotifier struct {
	sender SMSSender
}

func NewSMSNotifier(sender SMSSender) *SMSNotifier {
	return &SMSNotifier{sender: sender}
}

func (n *SMSNotifier) Notify(ctx context.Context, task TrackedTask, status models.TaskStatus) error {
	phone := PhoneNumber(task.Vendor)
	if phone == "" {
		return fmt.Errorf("%w: vendor %q is not a phone number", ErrNotificationFailed, task.Vendor)
	}

	if _, err := n.sender.PublishSMS(ctx, phone, statusMessage(task, status)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

func statusMessage(task TrackedTask, status models.TaskStatus) string {
	if status == models.TaskStatusSucceeded {
		return fmt.Sprintf("'%s' is now listed in the catalog.", task.ItemName)
	}
	return fmt.Sprintf("Sorry, '%s' could not be added to the catalog. Please send it again.", task.ItemName)
}

// PhoneNumber turns a messaging sender id into an E.164 number, or returns
// "" when the id is not numeric.
func PhoneNumber(senderID string) string {
	digits := strings.TrimPrefix(strings.TrimSpace(senderID), "+")
	if len(digits) < 8 || len(digits) > 15 {
		return ""
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return "+" + digits
}
