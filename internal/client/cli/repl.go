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
	AddExpense(ctx context.Context) error
	ListExpenses(ctx context.Context) error
	EditExpense(ctx context.Context) error
	DeleteExpense(ctx context.Context) error
	Stats(ctx context.Context) error
	AddBudget(ctx context.Context) error
	Budgets(ctx context.Context) error
	DeleteBudget(ctx context.Context) error
	Alerts(ctx context.Context) error
	DismissAlert(ctx context.Context) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	Backup(ctx context.Context) error
	Logout(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: add, (l)ist, edit, delete, stats, addbudget, budgets, delbudget, " +
		"alerts, dismiss, sync, status, backup, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the spendsync CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that need a signed-in user are
// refused until login. The loop exits on EOF, on ctx cancellation or when
// the user types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("spendsync %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		case "register":
			_ = a.Register(ctx)
			continue
		case "login":
			_ = a.Login(ctx)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		handler, ok := loggedInCommands(a)[cmd]
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if !a.isLoggedIn() {
			printlnFn("Please login first")
			continue
		}
		_ = handler(ctx)
	}
}

func loggedInCommands(a execIface) map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"add":       a.AddExpense,
		"l":         a.ListExpenses,
		"list":      a.ListExpenses,
		"edit":      a.EditExpense,
		"delete":    a.DeleteExpense,
		"stats":     a.Stats,
		"addbudget": a.AddBudget,
		"budgets":   a.Budgets,
		"delbudget": a.DeleteBudget,
		"alerts":    a.Alerts,
		"dismiss":   a.DismissAlert,
		"sync":      a.Sync,
		"status":    a.Status,
		"backup":    a.Backup,
		"logout":    a.Logout,
	}
}
