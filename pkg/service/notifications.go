package service

import (
	"context"
	"fmt"

	"github.com/macchain/backend/pkg/output"
)

type NotificationService struct {
	s *Session
}

func NewNotificationService(s *Session) *NotificationService {
	return &NotificationService{s: s}
}

// List prints notifications, newest first
func (n *NotificationService) List(ctx context.Context, unreadOnly bool, limit, offset int) error {
	if err := n.s.RequireAuth(); err != nil {
		return err
	}
	list, err := n.s.API.Notifications(ctx, unreadOnly, limit, offset)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(list.Notifications))
	for _, item := range list.Notifications {
		status := "•"
		if item.ReadAt != nil {
			status = ""
		}
		rows = append(rows, []string{status, item.ID, item.Type, truncate(item.Title, 40), ago(item.CreatedAt)})
	}
	title := fmt.Sprintf("Notifications (%d unread of %d)", list.Unread, list.Total)
	return output.PrintList(title, list, []string{"", "ID", "TYPE", "TITLE", "WHEN"}, rows)
}

// Count prints the number of unread notifications
func (n *NotificationService) Count(ctx context.Context) error {
	if err := n.s.RequireAuth(); err != nil {
		return err
	}
	count, err := n.s.API.UnreadCount(ctx)
	if err != nil {
		return err
	}
	return output.Print("", map[string]int64{"unread": count})
}

// Read marks one notification read
func (n *NotificationService) Read(ctx context.Context, id string) error {
	if err := n.s.RequireAuth(); err != nil {
		return err
	}
	if _, err := n.s.API.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	output.PrintSuccess("✓ Marked as read")
	return nil
}

// ReadAll marks every notification read
func (n *NotificationService) ReadAll(ctx context.Context) error {
	if err := n.s.RequireAuth(); err != nil {
		return err
	}
	count, err := n.s.API.MarkAllNotificationsRead(ctx)
	if err != nil {
		return err
	}
	output.PrintSuccess("✓ Marked %d notification%s as read", count, pluralize(int(count)))
	return nil
}
