package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	List(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	Type(ctx context.Context) error
	Who(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Unsend(ctx context.Context, args []string) error
	Refresh(ctx context.Context) error
	Start(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the dialer CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF
// or when the user types "exit" or "quit". Session commands are refused
// until a login succeeded.
//
// Errors returned by command handlers are printed and otherwise ignored so
// one failed command never ends the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("dialer %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, open, send, type, who, delete, unsend, refresh, start, logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}
			continue

		case "login":
			err = a.Login(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "l", "list", "open", "send", "type", "who", "delete", "unsend", "refresh", "start", "logout":
			if !a.isLoggedIn() {
				printlnFn("Not logged in, type 'login' first")
				continue
			}
			err = dispatch(ctx, a, cmd, args)

		default:
			printlnFn("Unknown command:", cmd)
			continue
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "l", "list":
		return a.List(ctx)
	case "open":
		return a.Open(ctx, args)
	case "send":
		return a.Send(ctx, args)
	case "type":
		return a.Type(ctx)
	case "who":
		return a.Who(ctx, args)
	case "delete":
		return a.Delete(ctx, args)
	case "unsend":
		return a.Unsend(ctx, args)
	case "refresh":
		return a.Refresh(ctx)
	case "start":
		return a.Start(ctx, args)
	case "logout":
		return a.Logout(ctx)
	}
	return nil
}
