// ABOUTME: Notification MCP tool handlers
// ABOUTME: Lists, reads, dismisses and summarizes notifications on the bus
package handlers

import (
	"context"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type NotificationHandlers struct {
	bus *notify.Bus
}

func NewNotificationHandlers(bus *notify.Bus) *NotificationHandlers {
	return &NotificationHandlers{bus: bus}
}

type ListNotificationsInput struct {
	UnreadOnly bool `json:"unread_only,omitempty" jsonschema:"Only return unread notifications"`
	Limit      int  `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type ListNotificationsOutput struct {
	Notifications []NotificationOutput `json:"notifications"`
	Count         int                  `json:"count"`
	Unread        int                  `json:"unread"`
}

func (h *NotificationHandlers) ListNotifications(_ context.Context, request *mcp.CallToolRequest, input ListNotificationsInput) (*mcp.CallToolResult, ListNotificationsOutput, error) {
	var list []models.Notification
	if input.UnreadOnly {
		list = h.bus.Unread()
	} else {
		list = h.bus.List()
	}

	limit := limitOrDefault(input.Limit)
	out := ListNotificationsOutput{Notifications: []NotificationOutput{}, Unread: h.bus.Stats().Unread}
	for i, n := range list {
		if i >= limit {
			break
		}
		out.Notifications = append(out.Notifications, notificationToOutput(n))
	}
	out.Count = len(out.Notifications)
	return nil, out, nil
}

type MarkNotificationsReadInput struct {
	ID  int  `json:"id,omitempty" jsonschema:"Notification ID to mark read"`
	All bool `json:"all,omitempty" jsonschema:"Mark every notification read"`
}

type NotificationCountOutput struct {
	Affected int                      `json:"affected"`
	Stats    models.NotificationStats `json:"stats"`
}

// MarkNotificationsRead is lenient: unknown ids are ignored.
func (h *NotificationHandlers) MarkNotificationsRead(_ context.Context, request *mcp.CallToolRequest, input MarkNotificationsReadInput) (*mcp.CallToolResult, NotificationCountOutput, error) {
	affected := 0
	if input.All {
		affected = h.bus.MarkAllAsRead()
	} else if input.ID > 0 {
		before := h.bus.Stats().Unread
		h.bus.MarkAsRead(input.ID)
		affected = before - h.bus.Stats().Unread
	}
	return nil, NotificationCountOutput{Affected: affected, Stats: h.bus.Stats()}, nil
}

type DismissNotificationsInput struct {
	ID             int  `json:"id,omitempty" jsonschema:"Notification ID to dismiss"`
	ClearDismissed bool `json:"clear_dismissed,omitempty" jsonschema:"Remove every dismissed notification"`
}

func (h *NotificationHandlers) DismissNotifications(_ context.Context, request *mcp.CallToolRequest, input DismissNotificationsInput) (*mcp.CallToolResult, NotificationCountOutput, error) {
	affected := 0
	if input.ID > 0 {
		for _, n := range h.bus.List() {
			if n.ID == input.ID && !n.Dismissed {
				affected = 1
			}
		}
		h.bus.Dismiss(input.ID)
	}
	if input.ClearDismissed {
		affected = h.bus.ClearDismissed()
	}
	return nil, NotificationCountOutput{Affected: affected, Stats: h.bus.Stats()}, nil
}
