package model

// CommandResult contains the result of a remote command.
type CommandResult struct {
	// Out is the textual output of the command.
	Out string
	// ExitCode is the exit code of the executed command.
	ExitCode int
}
