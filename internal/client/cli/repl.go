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
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	List(ctx context.Context) error
	Upload(ctx context.Context, path string) error
	Download(ctx context.Context, id string) error
	Share(ctx context.Context, id, email string) error
	Remove(ctx context.Context, id string) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the cipherdrive CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		fmt.Printf("cdrive %s> ", statusFn())
		if !scanner.Scan() {
			break
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			break
		}

		if !a.isLoggedIn() {
			switch cmd {
			case "help":
				printlnFn("Commands: register, login, exit")
			case "register":
				a.Register(ctx)
			case "login":
				a.Login(ctx)
			default:
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "help":
			printlnFn("Commands: ls, upload <path>, download <id>, share <id> <email>, rm <id>, logout, exit")
		case "ls":
			a.List(ctx)
		case "upload":
			if len(args) != 1 {
				printlnFn("Usage: upload <path>")
				continue
			}
			a.Upload(ctx, args[0])
		case "download":
			if len(args) != 1 {
				printlnFn("Usage: download <id>")
				continue
			}
			a.Download(ctx, args[0])
		case "share":
			if len(args) != 2 {
				printlnFn("Usage: share <id> <email>")
				continue
			}
			a.Share(ctx, args[0], args[1])
		case "rm":
			if len(args) != 1 {
				printlnFn("Usage: rm <id>")
				continue
			}
			a.Remove(ctx, args[0])
		case "logout":
			a.Logout(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
