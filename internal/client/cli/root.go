package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/engine"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/services"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
)

func (a *App) getStatus() string {
	s := ""
	if n := a.ownNumber(); n != "" {
		s = n + " "
	}
	if c := a.openConversation(); c != "" {
		s = s + "@" + c + " "
	}
	if m := a.mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	a.printf("Welcome to the dialer CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	_ = a.Login(ctx)

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	runREPL(ctx, a, a.getStatus, scanner)

	if chat := a.activeChat(); chat != nil {
		a.endChat(chat)
	}
}

// watchChat prints what the user should notice without asking: messages
// arriving outside the open conversation, status changes inside it, and
// session notices.
func (a *App) watchChat(ctx context.Context, chat chatSession) {
	changes := chat.Changes()
	notices := chat.Notices()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-changes:
			a.printChange(c)
		case n := <-notices:
			a.printNotice(n)
		}
	}
}

func (a *App) printChange(c engine.Change) {
	if c.Kind != engine.ChangeIncoming {
		return
	}
	m := c.Message
	if open := a.openConversation(); open != "" && identity.Key(open) == c.Key {
		a.printf("%s", formatMessage(m))
		return
	}
	a.printf("New message from %s: %s", m.From, m.Preview())
}

func (a *App) printNotice(n services.Notice) {
	a.printf("! %s", n)
}
