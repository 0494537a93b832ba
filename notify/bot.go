// ABOUTME: Templates for notifications raised by the chat automation
// ABOUTME: Maps bot event kinds to titles, messages, types and icons
package notify

import (
	"context"
	"fmt"

	"github.com/harperreed/leadpipe/models"
)

// Bot notification kinds.
const (
	KindLeadCreated          = "lead_created"
	KindConversationAnalyzed = "conversation_analyzed"
	KindActivityCreated      = "activity_created"
	KindCRMUpdate            = "crm_update"
)

const (
	botSource      = "bot"
	botCategory    = "automation"
	toastSource    = "app"
	toastsCategory = "toast"
)

func botTemplate(kind string, data map[string]string) models.Notification {
	switch kind {
	case KindLeadCreated:
		return models.Notification{
			Title:   "New Lead Created",
			Message: fmt.Sprintf("Bot conversation created a new lead: %s", data["leadName"]),
			Type:    models.NotificationSuccess,
			Icon:    "UserPlus",
		}
	case KindConversationAnalyzed:
		return models.Notification{
			Title:   "Conversation Analyzed",
			Message: fmt.Sprintf("Chat conversation has been analyzed with %s%% confidence", data["confidence"]),
			Type:    models.NotificationInfo,
			Icon:    "MessageCircle",
		}
	case KindActivityCreated:
		return models.Notification{
			Title:   "Activity Created",
			Message: fmt.Sprintf("New %s created: %s", data["activityType"], data["subject"]),
			Type:    models.NotificationInfo,
			Icon:    "Calendar",
		}
	case KindCRMUpdate:
		return models.Notification{
			Title:   "CRM Update Recommended",
			Message: "AI analysis suggests updating lead information",
			Type:    models.NotificationWarning,
			Icon:    "AlertTriangle",
		}
	default:
		return models.Notification{
			Title:   "Bot Notification",
			Message: "Bot activity update",
			Type:    models.NotificationInfo,
			Icon:    "Bot",
		}
	}
}

// CreateBotNotification builds a notification from the template for kind.
// Title, message, type and icon keys in data override the template; the
// whole map is kept on the notification. Source and category are always
// bot/automation.
func (b *Bus) CreateBotNotification(ctx context.Context, kind string, data map[string]string) (models.Notification, error) {
	n := botTemplate(kind, data)
	if v, ok := data["title"]; ok {
		n.Title = v
	}
	if v, ok := data["message"]; ok {
		n.Message = v
	}
	if v, ok := data["type"]; ok {
		n.Type = v
	}
	if v, ok := data["icon"]; ok {
		n.Icon = v
	}
	n.Data = data
	n.Source = botSource
	n.Category = botCategory
	return b.Create(ctx, n)
}

// Toaster posts short user-facing messages onto the bus.
type Toaster struct {
	bus *Bus
}

func NewToaster(bus *Bus) *Toaster {
	return &Toaster{bus: bus}
}

func (t *Toaster) Success(msg string) { t.toast(models.NotificationSuccess, "Success", msg) }
func (t *Toaster) Info(msg string)    { t.toast(models.NotificationInfo, "Info", msg) }
func (t *Toaster) Warning(msg string) { t.toast(models.NotificationWarning, "Warning", msg) }
func (t *Toaster) Error(msg string)   { t.toast(models.NotificationError, "Error", msg) }

func (t *Toaster) toast(typ, title, msg string) {
	_, err := t.bus.Create(context.Background(), models.Notification{
		Title:    title,
		Message:  msg,
		Type:     typ,
		Source:   toastSource,
		Category: toastsCategory,
	})
	if err != nil {
		t.bus.logger.Warn("failed to post toast", "type", typ, "err", err)
	}
}
