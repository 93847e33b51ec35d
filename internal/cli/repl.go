package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// printlnFn and printFn are test seams for REPL output that is not tied to
// a command. They write to the writer runREPL was given.
var (
	printlnFn = fmt.Fprintln
	printFn   = fmt.Fprint
)

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Order(ctx context.Context, arg string) error
	New(ctx context.Context) error
	Open(ctx context.Context, arg string) error
	Show(ctx context.Context) error
	Title(ctx context.Context, text string) error
	Content(ctx context.Context) error
	Date(ctx context.Context, date string) error
	Save(ctx context.Context) error
	Reset(ctx context.Context) error
	Clear(ctx context.Context) error
}

const helpText = `Available commands:
  list              show entries in the current order
  order asc|desc    change the listing order
  new               start a new entry dated today
  open <id>         select a saved entry
  show              print the selected entry
  title [text]      set the title
  content           set the content (multi-line)
  date [YYYY-MM-DD] set the date
  save              save the selected entry
  reset             replace all entries with the examples
  clear             delete all entries
  exit | quit       leave the program`

// runREPL reads a line from reader, parses the first token as the command
// and dispatches to methods on a. The rest of the line is the argument.
// The loop exits on EOF, when ctx is done or when the user types "exit" or
// "quit".
//
// Errors returned by command handlers are printed to w and the loop goes on.
func runREPL(ctx context.Context, a execIface, promptFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if p := promptFn(); p != "" {
			printFn(w, p)
		}
		if ctx.Err() != nil {
			return
		}
		line, err := readLine(reader)
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		if cmd == "" {
			continue
		}

		switch cmd {
		case "help":
			printlnFn(w, helpText)
		case "l", "list":
			err = a.List(ctx)
		case "order":
			err = a.Order(ctx, arg)
		case "new":
			err = a.New(ctx)
		case "open":
			err = a.Open(ctx, arg)
		case "show":
			err = a.Show(ctx)
		case "title":
			err = a.Title(ctx, arg)
		case "content":
			err = a.Content(ctx)
		case "date":
			err = a.Date(ctx, arg)
		case "save":
			err = a.Save(ctx)
		case "reset":
			err = a.Reset(ctx)
		case "clear":
			err = a.Clear(ctx)
		case "exit", "quit":
			printlnFn(w, "Bye!")
			return
		default:
			printlnFn(w, "Unknown command:", cmd)
		}

		if err != nil {
			printlnFn(w, "error:", err)
		}
	}
}
