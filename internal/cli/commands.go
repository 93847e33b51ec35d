package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophdiary/internal/models"
)

// await waits for a background operation. Its failure has already been
// published on the view-model's error channel, so only cancellation is
// returned as an error.
func (a *App) await(ctx context.Context, ch <-chan error) (bool, error) {
	select {
	case err := <-ch:
		return err == nil, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (a *App) List(ctx context.Context) error {
	l := a.current()
	if l == nil {
		return errLoopStopped
	}
	select {
	case <-l.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	return a.onLoop(ctx, func() {
		if len(l.entries) == 0 {
			a.printf("no entries\n")
			return
		}
		a.printf("%d entries, %s:\n", len(l.entries), l.order)
		for _, e := range l.entries {
			a.printf("%4d  %s  %s\n", e.ID, e.Date, e.Title)
		}
	})
}

func (a *App) Order(ctx context.Context, arg string) error {
	switch strings.ToLower(arg) {
	case "asc", "ascending":
		a.watch(models.Ascending)
	case "desc", "descending", "":
		a.watch(models.Descending)
	default:
		return fmt.Errorf("unknown order %q, use asc or desc", arg)
	}
	return nil
}

func (a *App) New(ctx context.Context) error {
	a.vm.BeginNewEntry()
	a.printf("new entry dated %s\n", a.vm.Selected().Date)
	return nil
}

func (a *App) Open(ctx context.Context, arg string) error {
	if arg == "" {
		return errors.New("usage: open <id>")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid id %q", arg)
	}
	ok, err := a.await(ctx, a.vm.SelectByID(id))
	if ok {
		return a.Show(ctx)
	}
	return err
}

func (a *App) Show(ctx context.Context) error {
	e := a.vm.Selected()
	if e.IsDraft() {
		a.printf("(unsaved) %s\n", e.Date)
	} else {
		a.printf("#%d %s\n", e.ID, e.Date)
	}
	a.printf("%s\n\n%s\n", e.Title, e.Content)
	return nil
}

func (a *App) Title(ctx context.Context, text string) error {
	if text == "" {
		var err error
		if text, err = GetSimpleText(a.reader, "Title", a.out); err != nil {
			return err
		}
	}
	a.vm.EditTitle(text)
	return nil
}

func (a *App) Content(ctx context.Context) error {
	text, err := GetMultiline(a.reader, "Content", a.out)
	if err != nil {
		return err
	}
	a.vm.EditContent(text)
	return nil
}

func (a *App) Date(ctx context.Context, date string) error {
	if date == "" {
		var err error
		if date, err = GetSimpleText(a.reader, "Date (YYYY-MM-DD)", a.out); err != nil {
			return err
		}
	}
	if !models.ValidDate(date) {
		a.printf("warning: %q is not a YYYY-MM-DD date, it will sort as text\n", date)
	}
	a.vm.EditDate(date)
	return nil
}

func (a *App) Save(ctx context.Context) error {
	ok, err := a.await(ctx, a.vm.Commit())
	if ok {
		a.refresh()
		a.printf("saved #%d\n", a.vm.Selected().ID)
	}
	return err
}

func (a *App) Reset(ctx context.Context) error {
	ok, err := a.await(ctx, a.vm.ResetToSeed())
	if ok {
		a.refresh()
		a.printf("entries reset to examples\n")
	}
	return err
}

func (a *App) Clear(ctx context.Context) error {
	ok, err := a.await(ctx, a.vm.DeleteAll())
	if ok {
		a.refresh()
		a.printf("all entries deleted\n")
	}
	return err
}
