package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/stocksync/internal/logging"
)

// ErrControllerClosed is returned by Start after Close.
var ErrControllerClosed = errors.New("upload controller closed")

// ErrCommit wraps a failure to store a successful upload's result.
var ErrCommit = errors.New("commit upload result")

// Uploader sends a file to the comparison service.
type Uploader interface {
	Upload(ctx context.Context, file *UploadFile) (*UploadResult, error)
}

// UploaderFunc adapts a function to the Uploader interface.
type UploaderFunc func(ctx context.Context, file *UploadFile) (*UploadResult, error)

// Upload calls f(ctx, file).
func (f UploaderFunc) Upload(ctx context.Context, file *UploadFile) (*UploadResult, error) {
	return f(ctx, file)
}

// ControllerOption configures an UploadController.
type ControllerOption func(*UploadController)

// WithProgress reports bytes sent for every upload.
func WithProgress(fn ProgressFunc) ControllerOption {
	return func(c *UploadController) {
		c.progress = fn
	}
}

// OnSelectionCleared registers a callback that runs after a successful
// upload clears the selected file.
func OnSelectionCleared(fn func()) ControllerOption {
	return func(c *UploadController) {
		c.onCleared = fn
	}
}

// UploadController runs at most one upload at a time.
//
// Starting a new upload cancels the one in flight. The outcome of every
// operation is decided under the controller lock, so an operation that was
// cancelled reports StatusCancelled even if the service already answered.
type UploadController struct {
	uploader  Uploader
	progress  ProgressFunc
	onCleared func()

	mu        sync.Mutex
	active    *activeUpload
	selected  *UploadFile
	listeners []chan Outcome
	closed    bool
}

type activeUpload struct {
	ID        string
	FileName  string
	Cancel    context.CancelFunc
	cancelled bool
	Done      chan struct{}
}

// NewUploadController creates a controller that sends files with uploader.
func NewUploadController(uploader Uploader, opts ...ControllerOption) *UploadController {
	c := &UploadController{uploader: uploader}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CommitFunc persists a successful result. It runs after the outcome is
// decided and before it is published, so subscribers never see success for
// a result that was not stored. A commit error turns the outcome into
// StatusFailed.
type CommitFunc func(ctx context.Context, result *UploadResult) error

// Start uploads file and blocks until the operation reaches a terminal
// state. A nil file returns ErrNoFile without contacting the service.
// Cancellation (Cancel, a newer Start, or ctx) yields StatusCancelled with
// a nil error.
func (c *UploadController) Start(ctx context.Context, file *UploadFile) (Outcome, error) {
	return c.StartWithCommit(ctx, file, nil)
}

// StartWithCommit is Start with a commit step for a successful result.
// The commit runs without the caller's cancellation: once the service has
// answered and the upload was not cancelled, the result is stored in full.
func (c *UploadController) StartWithCommit(ctx context.Context, file *UploadFile, commit CommitFunc) (Outcome, error) {
	if file == nil || file.Reader == nil {
		return Outcome{}, ErrNoFile
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	upload := &activeUpload{
		ID:       uuid.New().String(),
		FileName: file.Name,
		Cancel:   cancel,
		Done:     make(chan struct{}),
	}
	defer close(upload.Done)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{}, ErrControllerClosed
	}
	if prev := c.active; prev != nil {
		prev.cancelled = true
		prev.Cancel()
		slog.Info("upload superseded", "upload_id", prev.ID, "by", upload.ID)
	}
	c.active = upload
	c.mu.Unlock()

	logger := logging.WithFields(ctx, "upload_id", upload.ID, "file", file.Name)
	logger.Info("upload started", "size", file.Size)

	send := *file
	if c.progress != nil {
		send.Reader = NewCountingReader(file.Reader, file.Size, c.progress)
	}

	start := time.Now()
	result, err := c.uploader.Upload(uploadCtx, &send)

	c.mu.Lock()
	out := Outcome{
		UploadID: upload.ID,
		FileName: file.Name,
	}
	switch {
	case upload.cancelled || errors.Is(ctx.Err(), context.Canceled):
		out.Status = StatusCancelled
		out.Err = ErrUploadCancelled
	case err != nil:
		out.Status = StatusFailed
		out.Reason = FailureReason(err)
		out.Err = err
	case result == nil:
		out.Status = StatusFailed
		out.Reason = GenericUploadFailure
		out.Err = errors.New("empty upload response")
	default:
		out.Status = StatusSucceeded
		out.Result = result
	}
	// Past this point the operation can no longer be cancelled.
	if c.active == upload {
		c.active = nil
	}
	c.mu.Unlock()

	if out.Status == StatusSucceeded && commit != nil {
		if err := commit(context.WithoutCancel(ctx), result); err != nil {
			out.Status = StatusFailed
			out.Result = nil
			out.Reason = GenericUploadFailure
			out.Err = fmt.Errorf("%w: %w", ErrCommit, err)
		}
	}
	out.Duration = time.Since(start)

	c.mu.Lock()
	if out.Status == StatusSucceeded {
		c.selected = nil
		out.SelectionCleared = true
	}
	c.broadcast(out)
	onCleared := c.onCleared
	c.mu.Unlock()

	switch out.Status {
	case StatusSucceeded:
		logger.Info("upload succeeded",
			"records_inserted", result.RecordsInserted,
			"missing", result.MissingRecordsCount,
			"duration", out.Duration)
	case StatusCancelled:
		logger.Info("upload cancelled", "duration", out.Duration)
	case StatusFailed:
		logger.Warn("upload failed", "reason", out.Reason, "error", out.Err)
	}

	if out.SelectionCleared && onCleared != nil {
		onCleared()
	}
	return out, nil
}

// Cancel aborts the upload in flight. It reports false when there is
// nothing to cancel.
func (c *UploadController) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return false
	}
	c.active.cancelled = true
	c.active.Cancel()
	return true
}

// State reports whether an upload is in flight.
func (c *UploadController) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return StateUploading
	}
	return StateIdle
}

// ActiveID returns the id of the upload in flight, or "".
func (c *UploadController) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ""
	}
	return c.active.ID
}

// Subscribe returns a channel that receives every terminal Outcome.
// Outcomes are dropped for a subscriber that falls behind. The channel is
// closed by Close.
func (c *UploadController) Subscribe() <-chan Outcome {
	ch := make(chan Outcome, 10)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		close(ch)
		return ch
	}
	c.listeners = append(c.listeners, ch)
	return ch
}

// broadcast must be called with c.mu held.
func (c *UploadController) broadcast(out Outcome) {
	for _, ch := range c.listeners {
		select {
		case ch <- out:
		default:
			// Listener is slow, skip this outcome
		}
	}
}

// Close cancels any upload in flight and closes all subscriber channels.
func (c *UploadController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.active != nil {
		c.active.cancelled = true
		c.active.Cancel()
	}
	for _, ch := range c.listeners {
		close(ch)
	}
	c.listeners = nil
}

// Select remembers file as the current selection.
func (c *UploadController) Select(file *UploadFile) {
	c.mu.Lock()
	c.selected = file
	c.mu.Unlock()
}

// Selected returns the current selection, or nil.
func (c *UploadController) Selected() *UploadFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// ClearSelection drops the current selection.
func (c *UploadController) ClearSelection() {
	c.mu.Lock()
	c.selected = nil
	c.mu.Unlock()
}
