package model

import (
	"fmt"
	"time"
)

// TaskKind is the closed set of task variants.
type TaskKind string

const (
	TaskKindDownload TaskKind = "download"
	TaskKindUpload   TaskKind = "upload"
	TaskKindCommand  TaskKind = "command"
)

// TaskState represents the state of a task.
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
)

// IsTerminal returns true for completed and failed states.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// TaskID identifies a task while it is active.
type TaskID uint64

// Task is a single asynchronous unit of remote work.
//
// Only the parameters of its kind are set:
//   - Download: RemotePath (source) and DestDir (local directory).
//   - Upload: LocalPath (source) and DestDir (remote directory).
//   - Command: Command.
type Task struct {
	ID         TaskID
	Kind       TaskKind
	RemotePath string
	LocalPath  string
	DestDir    string
	Command    string

	State TaskState
	Err   error
}

// NewDownloadTask returns a task that fetches a remote file into a local directory.
func NewDownloadTask(remotePath, localDir string) Task {
	return Task{Kind: TaskKindDownload, RemotePath: remotePath, DestDir: localDir, State: TaskStatePending}
}

// NewUploadTask returns a task that sends a local file into a remote directory.
func NewUploadTask(localPath, remoteDir string) Task {
	return Task{Kind: TaskKindUpload, LocalPath: localPath, DestDir: remoteDir, State: TaskStatePending}
}

// NewCommandTask returns a task that runs a remote command.
func NewCommandTask(command string) Task {
	return Task{Kind: TaskKindCommand, Command: command, State: TaskStatePending}
}

// Validate checks the task has the parameters its kind needs.
func (t Task) Validate() error {
	switch t.Kind {
	case TaskKindDownload:
		if t.RemotePath == "" {
			return fmt.Errorf("download remote path is required: %w", ErrNotValid)
		}
	case TaskKindUpload:
		if t.LocalPath == "" {
			return fmt.Errorf("upload local path is required: %w", ErrNotValid)
		}
	case TaskKindCommand:
		if t.Command == "" {
			return fmt.Errorf("command is required: %w", ErrNotValid)
		}
	default:
		return fmt.Errorf("unknown task kind %q: %w", t.Kind, ErrNotValid)
	}

	return nil
}

// Target returns a short human description of what the task acts on.
func (t Task) Target() string {
	switch t.Kind {
	case TaskKindDownload:
		return fmt.Sprintf("%s -> %s", t.RemotePath, t.DestDir)
	case TaskKindUpload:
		return fmt.Sprintf("%s -> %s", t.LocalPath, t.DestDir)
	case TaskKindCommand:
		return t.Command
	}
	return ""
}

// TaskRecord is the persisted journal entry of a task.
type TaskRecord struct {
	ID         string
	TaskID     TaskID
	Kind       TaskKind
	Target     string
	Status     TaskState
	Error      string
	CreatedAt  time.Time
	FinishedAt *time.Time
}
