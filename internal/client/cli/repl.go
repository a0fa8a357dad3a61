package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Pick(ctx context.Context) error
	Shoot(ctx context.Context) error
	Upload(ctx context.Context) error
	Group(ctx context.Context, primary int) error
	AddToGroup(ctx context.Context, groupID string) error
	Retry(ctx context.Context, n int) error
	List(ctx context.Context) error
	Stats(ctx context.Context) error
	History(ctx context.Context) error
	Clear(ctx context.Context) error
	Token(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the PhotoVault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands
//
//	pick               — select files from the gallery directory
//	shoot              — grab the newest camera capture
//	upload             — upload queued files independently
//	group [primary]    — upload queued files as one group
//	addtogroup <id>    — upload queued files into an existing group
//	retry <n>          — re-run a failed item by its list number
//	list | l           — show the queue with per-item progress
//	stats              — session totals
//	history            — recent confirmed uploads from the local journal
//	clear              — discard the session queue
//	token              — set the API access token (read without echo)
//	exit | quit        — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// report their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("pv> %s > ", statusFn()))
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

		switch cmd {
		case "help":
			printlnFn("Available commands: pick, shoot, upload, group [primary], addtogroup <id>, retry <n>, (l)ist, stats, history, clear, token, exit")

		case "pick":
			_ = a.Pick(ctx)

		case "shoot":
			_ = a.Shoot(ctx)

		case "upload":
			_ = a.Upload(ctx)

		case "group":
			primary := 0
			if len(args) > 0 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					printlnFn("Usage: group [primary-index]")
					continue
				}
				primary = v
			}
			_ = a.Group(ctx, primary)

		case "addtogroup":
			if len(args) == 0 {
				printlnFn("Usage: addtogroup <group-id>")
				continue
			}
			_ = a.AddToGroup(ctx, args[0])

		case "retry":
			if len(args) == 0 {
				printlnFn("Usage: retry <n>")
				continue
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				printlnFn("Usage: retry <n>")
				continue
			}
			_ = a.Retry(ctx, n)

		case "l", "list":
			_ = a.List(ctx)

		case "stats":
			_ = a.Stats(ctx)

		case "history":
			_ = a.History(ctx)

		case "clear":
			_ = a.Clear(ctx)

		case "token":
			_ = a.Token(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
