package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
)

var (
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrNoOpenChat      = errors.New("no conversation open, use 'open <number>'")
	ErrMissingArgument = errors.New("missing argument")
)

const timeLayout = "2006-01-02 15:04"

func (a *App) requireChat() (chatSession, error) {
	chat := a.activeChat()
	if chat == nil {
		return nil, ErrNotLoggedIn
	}
	return chat, nil
}

// List prints the conversation list, most recent first.
func (a *App) List(ctx context.Context) error {
	chat, err := a.requireChat()
	if err != nil {
		return err
	}
	convs, err := chat.Conversations(ctx)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		a.printf("No conversations")
		return nil
	}
	for _, c := range convs {
		a.printf("%s", formatConversation(c))
	}
	return nil
}

// Open focuses the conversation with args[0] and prints its history.
func (a *App) Open(ctx context.Context, args []string) error {
	chat, err := a.requireChat()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: open <number>", ErrMissingArgument)
	}
	counterpart := args[0]

	msgs, err := chat.OpenConversation(ctx, counterpart)
	if err != nil {
		return err
	}
	a.setOpenConversation(counterpart)
	if len(msgs) == 0 {
		a.printf("No messages with %s yet", counterpart)
	}
	for _, m := range msgs {
		a.printf("%s", formatMessage(m))
	}
	return nil
}

// Send sends the rest of the line to the open conversation. A leading
// media=<url> argument attaches media.
func (a *App) Send(ctx context.Context, args []string) error {
	chat, counterpart, err := a.focused()
	if err != nil {
		return err
	}
	var media string
	if len(args) > 0 && strings.HasPrefix(args[0], "media=") {
		media = strings.TrimPrefix(args[0], "media=")
		args = args[1:]
	}
	body := strings.Join(args, " ")

	m, err := chat.Send(ctx, counterpart, body, media)
	if err != nil {
		return err
	}
	a.printf("%s", formatMessage(m))
	return nil
}

// Type signals to the open conversation that the user is typing.
func (a *App) Type(context.Context) error {
	chat, counterpart, err := a.focused()
	if err != nil {
		return err
	}
	return chat.Typing(counterpart)
}

// Who prints the presence of args[0], or of the open conversation.
func (a *App) Who(ctx context.Context, args []string) error {
	chat, err := a.requireChat()
	if err != nil {
		return err
	}
	counterpart := a.openConversation()
	if len(args) > 0 {
		counterpart = args[0]
	}
	if counterpart == "" {
		return fmt.Errorf("%w: who <number>", ErrMissingArgument)
	}

	st, err := chat.PresenceOf(ctx, counterpart)
	if err != nil {
		return err
	}
	a.printf("%s is %s", counterpart, formatPresence(st))
	return nil
}

// Delete hides message args[0] of the open conversation on this device.
func (a *App) Delete(ctx context.Context, args []string) error {
	chat, counterpart, err := a.focused()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: delete <id>", ErrMissingArgument)
	}
	if err := chat.DeleteLocally(ctx, identity.Key(counterpart), args[0]); err != nil {
		return err
	}
	a.printf("Deleted %s on this device", args[0])
	return nil
}

// Unsend deletes sent message args[0] for everyone.
func (a *App) Unsend(ctx context.Context, args []string) error {
	chat, counterpart, err := a.focused()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: unsend <id>", ErrMissingArgument)
	}
	if err := chat.RequestDeleteForEveryone(ctx, identity.Key(counterpart), args[0]); err != nil {
		return err
	}
	a.printf("Deleted %s for everyone", args[0])
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	chat, err := a.requireChat()
	if err != nil {
		return err
	}
	if err := chat.Refresh(ctx); err != nil {
		return err
	}
	return a.List(ctx)
}

// Start opens an empty conversation with args[0], optionally named by the
// remaining arguments.
func (a *App) Start(ctx context.Context, args []string) error {
	chat, err := a.requireChat()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: start <number> [name]", ErrMissingArgument)
	}
	c, err := chat.StartConversation(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	if _, err := chat.OpenConversation(ctx, args[0]); err != nil {
		return err
	}
	a.setOpenConversation(args[0])
	a.printf("Started conversation with %s", c.Title())
	return nil
}

func (a *App) focused() (chatSession, string, error) {
	chat, err := a.requireChat()
	if err != nil {
		return nil, "", err
	}
	counterpart := a.openConversation()
	if counterpart == "" {
		return nil, "", ErrNoOpenChat
	}
	return chat, counterpart, nil
}

func formatConversation(c models.Conversation) string {
	var b strings.Builder
	b.WriteString(c.Title())
	if c.UnreadCount > 0 {
		fmt.Fprintf(&b, " [%d unread]", c.UnreadCount)
	}
	if !c.LastActivityAt.IsZero() {
		fmt.Fprintf(&b, " %s", c.LastActivityAt.Local().Format(timeLayout))
	}
	if c.LastMessagePreview != "" {
		fmt.Fprintf(&b, ": %s", c.LastMessagePreview)
	}
	return b.String()
}

func formatMessage(m models.Message) string {
	who := m.From
	if m.Direction == models.DirectionSelf {
		who = "you"
	}
	line := fmt.Sprintf("%s %s %s: %s", m.ID, m.SentAt.Local().Format(timeLayout), who, m.Preview())
	if m.MediaURL != "" && m.Body != "" {
		line += " [" + m.MediaURL + "]"
	}
	if m.Direction == models.DirectionSelf && !m.Deleted {
		line += " (" + string(m.Status) + ")"
		if m.Error != "" {
			line += " " + m.Error
		}
	}
	return line
}

func formatPresence(st models.PresenceState) string {
	switch {
	case st.Typing:
		return "typing"
	case st.Online:
		return "online"
	case !st.LastSeenAt.IsZero():
		return "offline, last seen " + st.LastSeenAt.Local().Format(timeLayout)
	default:
		return "offline"
	}
}
