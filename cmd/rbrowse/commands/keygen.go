package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/rbrowse/internal/conventions"
	"github.com/slok/rbrowse/internal/ssh"
)

type KeygenCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	force bool
}

// NewKeygenCommand returns the keygen command.
func NewKeygenCommand(rootCmd *RootCommand, app *kingpin.Application) *KeygenCommand {
	c := &KeygenCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("keygen", "Create the rbrowse SSH identity and print its public key.")
	c.Cmd.Flag("force", "Replace the existing identity.").BoolVar(&c.force)

	return c
}

func (c KeygenCommand) Name() string { return c.Cmd.FullCommand() }

func (c KeygenCommand) Run(ctx context.Context) error {
	km := ssh.NewKeyManager(conventions.SSHKeyDir(c.rootCmd.DataDir))

	var (
		pub string
		err error
	)
	if c.force {
		pub, err = km.GenerateKeys()
	} else {
		pub, err = km.EnsureKeys()
	}
	if err != nil {
		return fmt.Errorf("could not get identity: %w", err)
	}

	c.rootCmd.Logger.Infof("Identity at %s, add the public key to the remote authorized keys", km.PrivateKeyPath())
	fmt.Fprintln(c.rootCmd.Stdout, strings.TrimSpace(pub))

	return nil
}
