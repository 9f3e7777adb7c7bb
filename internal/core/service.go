package core

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LastRecordTimeout bounds a last-record lookup.
var LastRecordTimeout = 15 * time.Second

// StockAPI is the comparison service as seen by the Service.
type StockAPI interface {
	Uploader
	LastRecord(ctx context.Context) (*LastRecord, error)
	DeleteStockTable(ctx context.Context) (string, error)
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Policy Policy
	Phone  string // Share recipient for locally built links
	Mobile bool   // Build whatsapp:// links instead of web links
}

// UploadReport is the result of Service.Upload.
type UploadReport struct {
	Outcome        Outcome         `json:"outcome"`
	Reconciliation *Reconciliation `json:"reconciliation,omitempty"`
	ShareLink      string          `json:"shareLink,omitempty"`
}

// Service wires the upload controller, the coordinator and the record
// store together for the CLI, TUI and web frontends.
type Service struct {
	api         StockAPI
	records     *RecordStore
	controller  *UploadController
	coordinator *Coordinator
	phone       string
	mobile      bool

	// reconcileMu orders store writes of uploads that finish back to back.
	reconcileMu sync.Mutex
}

// NewService creates a Service. Controller options such as WithProgress
// are passed through to the upload controller.
func NewService(api StockAPI, records *RecordStore, opts ServiceOptions, ctrlOpts ...ControllerOption) *Service {
	return &Service{
		api:         api,
		records:     records,
		controller:  NewUploadController(api, ctrlOpts...),
		coordinator: NewCoordinator(records, opts.Policy),
		phone:       opts.Phone,
		mobile:      opts.Mobile,
	}
}

// Controller exposes the upload controller for selection and subscriptions.
func (s *Service) Controller() *UploadController {
	return s.controller
}

// Upload sends file and, only when the upload succeeded, reconciles the
// result into the record store before the outcome is published. A store
// failure turns the outcome into StatusFailed, so subscribers never see a
// success that was not persisted. The returned error is either ErrNoFile
// or a store failure; upload failures are reported in the Outcome.
func (s *Service) Upload(ctx context.Context, file *UploadFile) (UploadReport, error) {
	var (
		rec       Reconciliation
		commitErr error
	)
	commit := func(ctx context.Context, result *UploadResult) error {
		s.reconcileMu.Lock()
		defer s.reconcileMu.Unlock()
		rec, commitErr = s.coordinator.Reconcile(ctx, *result)
		return commitErr
	}

	out, err := s.controller.StartWithCommit(ctx, file, commit)
	if err != nil {
		return UploadReport{}, err
	}

	report := UploadReport{Outcome: out}
	if commitErr != nil {
		slog.Error("persist upload result failed", "upload_id", out.UploadID, "error", commitErr)
		return report, commitErr
	}
	if out.Status != StatusSucceeded {
		return report, nil
	}

	report.Reconciliation = &rec
	report.ShareLink = ShareLink(rec.Share, s.phone, s.mobile)
	return report, nil
}

// Cancel aborts the upload in flight, if any.
func (s *Service) Cancel() bool {
	return s.controller.Cancel()
}

// Records returns the persisted collections and share message.
func (s *Service) Records(ctx context.Context) Reconciliation {
	share, _ := s.records.Share(ctx)
	return Reconciliation{
		Inserted: s.records.Inserted(ctx),
		Missing:  s.records.Missing(ctx),
		Share:    share,
	}
}

// ShareView is the stored share report as presented to the user.
type ShareView struct {
	Text    string `json:"text"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
}

// Share returns the persisted report, its preview summary and the link
// that opens it. mobile overrides the configured client kind when non-nil.
func (s *Service) Share(ctx context.Context, mobile *bool) ShareView {
	share, _ := s.records.Share(ctx)
	m := s.mobile
	if mobile != nil {
		m = *mobile
	}
	return ShareView{
		Text:    share.Text,
		Summary: share.Summary(),
		Link:    ShareLink(share, s.phone, m),
	}
}

// ShareLink returns the persisted share text and the link that opens it.
func (s *Service) ShareLink(ctx context.Context, mobile *bool) (text, link string) {
	v := s.Share(ctx, mobile)
	return v.Text, v.Link
}

// Clear removes all persisted state and returns the cleared keys.
func (s *Service) Clear(ctx context.Context) ([]string, error) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	keys, err := s.records.Clear(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("local state cleared", "keys", keys)
	return keys, nil
}

// LastRecord fetches the most recent row of the remote stock table.
func (s *Service) LastRecord(ctx context.Context) (*LastRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, LastRecordTimeout)
	defer cancel()
	return s.api.LastRecord(ctx)
}

// DeleteTable deletes the remote stock table and returns the server's
// confirmation message.
func (s *Service) DeleteTable(ctx context.Context) (string, error) {
	msg, err := s.api.DeleteStockTable(ctx)
	if err != nil {
		return "", err
	}
	slog.Info("remote stock table deleted", "message", msg)
	return msg, nil
}

// Close cancels any upload in flight and releases subscribers.
func (s *Service) Close() {
	s.controller.Close()
}
