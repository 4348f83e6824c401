// Package kumss holds the backend's entity shapes and collection paths.
// Only the entities referenced by dropdowns are typed; every other
// collection is handled as api.Record by the generic screens.
package kumss

import (
	"github.com/kumss/console/internal/api"
)

// Collection paths, relative to the API base url.
const (
	PathUsers            = "accounts/users"
	PathColleges         = "core/colleges"
	PathEvents           = "communication/events"
	PathNotices          = "communication/notices"
	PathBulkMessages     = "communication/bulk-messages"
	PathMessageTemplates = "communication/message-templates"
	PathChats            = "communication/chats"
	PathExams            = "examinations/exams"
	PathFeeStructures    = "fees/fee-structures"
	PathStoreItems       = "store/items"
)

// User is an account row.
type User struct {
	ID              int     `json:"id"`
	Username        *string `json:"username"`
	FullName        *string `json:"full_name"`
	Email           string  `json:"email"`
	UserType        string  `json:"user_type"`
	UserTypeDisplay string  `json:"user_type_display"`
	College         *int    `json:"college"`
	IsActive        bool    `json:"is_active"`
}

// Event is a calendar event.
type Event struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	EventDate string `json:"event_date"`
	Venue     string `json:"venue"`
	College   *int   `json:"college"`
	IsActive  bool   `json:"is_active"`
}

// Notice is a published announcement.
type Notice struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Priority    string `json:"priority"`
	PublishDate string `json:"publish_date"`
	College     *int   `json:"college"`
	IsActive    bool   `json:"is_active"`
}

// BulkMessage is a message sent to many recipients.
type BulkMessage struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	MessageType string `json:"message_type"`
	Status      string `json:"status"`
	College     *int   `json:"college"`
	IsActive    bool   `json:"is_active"`
}

// MessageTemplate is a reusable message body.
type MessageTemplate struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	MessageType string `json:"message_type"`
	Category    string `json:"category"`
	IsActive    bool   `json:"is_active"`
}

// Client exposes typed handles on the referenced collections.
type Client struct {
	Users            *api.Resource[User]
	Events           *api.Resource[Event]
	Notices          *api.Resource[Notice]
	BulkMessages     *api.Resource[BulkMessage]
	MessageTemplates *api.Resource[MessageTemplate]
}

func NewClient(c *api.Client) *Client {
	return &Client{
		Users:            api.NewResource[User](c, PathUsers),
		Events:           api.NewResource[Event](c, PathEvents),
		Notices:          api.NewResource[Notice](c, PathNotices),
		BulkMessages:     api.NewResource[BulkMessage](c, PathBulkMessages),
		MessageTemplates: api.NewResource[MessageTemplate](c, PathMessageTemplates),
	}
}

// Records returns an untyped handle on any collection.
func Records(c *api.Client, path string) *api.Resource[api.Record] {
	return api.NewResource[api.Record](c, path)
}
