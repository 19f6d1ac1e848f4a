package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/rbrowse/internal/conventions"
	"github.com/slok/rbrowse/internal/storage/sqlite"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	limit  int
	clear  bool
	format string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "Show the task journal.")
	c.Cmd.Flag("limit", "Maximum number of tasks shown, 0 shows all.").Short('n').Default("50").IntVar(&c.limit)
	c.Cmd.Flag("clear", "Delete the journal.").BoolVar(&c.clear)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: conventions.DBPath(c.rootCmd.DataDir),
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	p := newPrinter(c.format, c.rootCmd.Stdout)

	if c.clear {
		if err := repo.DeleteTaskRecords(ctx); err != nil {
			return fmt.Errorf("could not clear journal: %w", err)
		}
		return p.PrintMessage("Task journal cleared")
	}

	recs, err := repo.ListTaskRecords(ctx, c.limit)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	if err := p.PrintHistory(recs); err != nil {
		return fmt.Errorf("could not print history: %w", err)
	}

	return nil
}
