package dropdown

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize/english"

	"github.com/kumss/console/internal/kumss"
)

// Kind describes one family of reference dropdown: what it is called,
// which params narrow it by type, and how a record becomes an Option.
type Kind[T any] struct {
	Name       string
	Things     string   // plural, for messages
	TypeParams []string // params that name a record type, in priority order
	Project    func(T) Option
}

var (
	UserKind = Kind[kumss.User]{
		Name:       "user",
		Things:     "users",
		TypeParams: []string{"user_type"},
		Project:    projectUser,
	}
	EventKind = Kind[kumss.Event]{
		Name:    "event",
		Things:  "events",
		Project: projectEvent,
	}
	NoticeKind = Kind[kumss.Notice]{
		Name:    "notice",
		Things:  "notices",
		Project: projectNotice,
	}
	BulkMessageKind = Kind[kumss.BulkMessage]{
		Name:       "bulk_message",
		Things:     "bulk messages",
		TypeParams: []string{"message_type"},
		Project:    projectBulkMessage,
	}
	MessageTemplateKind = Kind[kumss.MessageTemplate]{
		Name:       "message_template",
		Things:     "message templates",
		TypeParams: []string{"message_type", "category"},
		Project:    projectMessageTemplate,
	}
)

func projectUser(u kumss.User) Option {
	label := "User #" + strconv.Itoa(u.ID)
	switch {
	case u.FullName != nil && *u.FullName != "":
		label = *u.FullName
	case u.Username != nil && *u.Username != "":
		label = *u.Username
	}
	return Option{
		Value:    strconv.Itoa(u.ID),
		Label:    label,
		Subtitle: joinSubtitle(u.Email, u.UserTypeDisplay),
	}
}

func projectEvent(e kumss.Event) Option {
	return Option{Value: strconv.Itoa(e.ID), Label: e.Title, Subtitle: joinSubtitle(e.EventDate, e.Venue)}
}

func projectNotice(n kumss.Notice) Option {
	return Option{Value: strconv.Itoa(n.ID), Label: n.Title, Subtitle: joinSubtitle(n.Priority, n.PublishDate)}
}

func projectBulkMessage(b kumss.BulkMessage) Option {
	return Option{Value: strconv.Itoa(b.ID), Label: b.Title, Subtitle: joinSubtitle(b.MessageType, b.Status)}
}

func projectMessageTemplate(m kumss.MessageTemplate) Option {
	return Option{Value: strconv.Itoa(m.ID), Label: m.Name, Subtitle: joinSubtitle(m.Code, m.MessageType)}
}

func joinSubtitle(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " • ")
}

// EmptyHint is shown under a dropdown with no candidates. A type param
// ("teacher") names what is missing; otherwise the hint points at
// creating the first record.
func EmptyHint(things string, typeParams []string, params map[string]string) string {
	for _, name := range typeParams {
		if v := strings.TrimSpace(params[name]); v != "" {
			return "No " + Pluralize(strings.ReplaceAll(v, "_", " ")) + " found"
		}
	}
	return "No " + things + " available. Please create one first."
}

// LoadingText is the placeholder while candidates load.
func LoadingText(things string) string {
	return "Loading " + things + "..."
}

// Pluralize pluralizes the last word of phrase.
func Pluralize(phrase string) string {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return phrase
	}
	head, word := "", phrase
	if i := strings.LastIndex(phrase, " "); i >= 0 {
		head, word = phrase[:i+1], phrase[i+1:]
	}
	return head + english.PluralWord(2, word, "")
}
