package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/services"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// Login establishes a session and starts the chat session for it.
//
// A token from the configuration wins. Otherwise the session saved by a
// previous run is restored, and only when there is none the user is asked
// for a token. The own number comes from the configuration, else from the
// token's phone claim, else from a prompt.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		a.printf("Already logged in as %s", a.ownNumber())
		return nil
	}

	sess, err := a.authenticate(ctx)
	if err != nil {
		a.printf("Login unsuccessful: %s", err)
		return err
	}

	a.startChat(ctx, sess)
	a.printf("Logged in as %s", sess.OwnNumber)
	return nil
}

func (a *App) authenticate(ctx context.Context) (services.Session, error) {
	if a.config.AccessToken != "" {
		return a.loginWithToken(ctx, a.config.AccessToken)
	}

	sess, err := a.authService.Restore(ctx, a.config.OwnNumber)
	if err == nil {
		a.logger.Info(ctx, "session restored", "own_number", sess.OwnNumber)
		return sess, nil
	}
	if !errors.Is(err, services.ErrNoSession) {
		return services.Session{}, err
	}

	token, err := getSecret("Enter access token", a.out)
	if err != nil {
		return services.Session{}, err
	}
	return a.loginWithToken(ctx, token)
}

func (a *App) loginWithToken(ctx context.Context, token string) (services.Session, error) {
	sess, err := a.authService.Login(ctx, token, a.config.OwnNumber)
	if !errors.Is(err, services.ErrNoOwnNumber) {
		return sess, err
	}

	number, err := getSimpleText(a.reader, "Enter your phone number", a.out)
	if err != nil {
		return services.Session{}, err
	}
	return a.authService.Login(ctx, token, number)
}

// startChat runs the chat session in the background until it ends or the
// user logs out. Incoming messages and notices are printed as they arrive.
func (a *App) startChat(ctx context.Context, sess services.Session) {
	chat := a.newChat(sess.OwnNumber)
	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.session = sess
	a.chat = chat
	a.stopChat = cancel
	a.current = ""
	a.mu.Unlock()

	go a.watchChat(ctx, chat)
	go func() {
		err := chat.Run(ctx)
		if err != nil && ctx.Err() == nil {
			a.logger.Error(ctx, "chat session ended", "error", err)
			a.printf("Session ended: %s", err)
		}
		a.endChat(chat)
	}()
}

// endChat forgets chat if it is still the active session.
func (a *App) endChat(chat chatSession) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.chat != chat {
		return
	}
	if a.stopChat != nil {
		a.stopChat()
	}
	a.chat = nil
	a.stopChat = nil
	a.current = ""
}

// Logout stops the chat session, then forgets the saved session and the
// cached conversations.
func (a *App) Logout(ctx context.Context) error {
	if chat := a.activeChat(); chat != nil {
		a.endChat(chat)
	}
	if err := a.authService.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	a.mu.Lock()
	a.session = services.Session{}
	a.mu.Unlock()
	a.printf("Logged out")
	return nil
}
