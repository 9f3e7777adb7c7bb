package web

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/JonMunkholm/stocksync/internal/api"
	"github.com/JonMunkholm/stocksync/internal/core"
	"github.com/JonMunkholm/stocksync/internal/logging"
)

// multipartOverhead allows for form boundaries and headers on top of the
// file itself.
const multipartOverhead = 1 << 20

// handleUpload streams the "file" part straight through to the comparison
// service without buffering it. The request context is the upload's
// context, so a client that disconnects cancels the upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	if r.ContentLength > maxSize+multipartOverhead {
		s.respondError(w, r, errFileTooLarge, 0)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		s.respondError(w, r, core.ErrNoFile, 0)
		return
	}

	var (
		file *core.UploadFile
		body *sizeCheckedReader
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.respondError(w, r, core.ErrNoFile, 0)
			return
		}
		if part.FormName() == api.FileField && part.FileName() != "" {
			body = &sizeCheckedReader{r: part}
			file = &core.UploadFile{
				Name:   filepath.Base(part.FileName()),
				Reader: body,
			}
			break
		}
		part.Close()
	}
	if file == nil {
		s.respondError(w, r, core.ErrNoFile, 0)
		return
	}
	if !s.allowedExtension(file.Name) {
		s.respondError(w, r, errUnsupportedType, 0)
		return
	}

	logger := logging.FromContext(r.Context())
	logger.Debug("upload received", "file", file.Name)

	report, err := s.service.Upload(r.Context(), file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	// Without a Content-Length the size limit is only hit mid-stream.
	if report.Outcome.Status == core.StatusFailed && body.tooLarge.Load() {
		s.respondError(w, r, errFileTooLarge, 0)
		return
	}

	status := http.StatusOK
	if report.Outcome.Status == core.StatusFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, toUploadResponse(report))
}

// sizeCheckedReader notes when the request body limit cut the file short.
type sizeCheckedReader struct {
	r        io.Reader
	tooLarge atomic.Bool
}

func (s *sizeCheckedReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.tooLarge.Store(true)
	}
	return n, err
}

func (s *Server) allowedExtension(name string) bool {
	allowed := s.cfg.Upload.AllowedExtensions
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

// UploadResponse is the JSON answer to POST /api/upload.
type UploadResponse struct {
	UploadID         string                `json:"uploadId"`
	Status           core.UploadStatus     `json:"status"`
	Message          string                `json:"message,omitempty"`
	Reason           string                `json:"reason,omitempty"`
	SelectionCleared bool                  `json:"selectionCleared"`
	DurationMS       int64                 `json:"durationMs"`
	Result           *core.UploadResult    `json:"result,omitempty"`
	Inserted         core.RecordCollection `json:"inserted,omitempty"`
	Missing          core.RecordCollection `json:"missing,omitempty"`
	ShareText        string                `json:"shareText,omitempty"`
	ShareLink        string                `json:"shareLink,omitempty"`
}

func toUploadResponse(report core.UploadReport) UploadResponse {
	out := report.Outcome
	resp := UploadResponse{
		UploadID:         out.UploadID,
		Status:           out.Status,
		Message:          out.SuccessMessage(),
		Reason:           out.Reason,
		SelectionCleared: out.SelectionCleared,
		DurationMS:       out.Duration.Milliseconds(),
		Result:           out.Result,
		ShareLink:        report.ShareLink,
	}
	if rec := report.Reconciliation; rec != nil {
		resp.Inserted = rec.Inserted
		resp.Missing = rec.Missing
		resp.ShareText = rec.Share.Text
	}
	return resp
}

// handleCancelUpload aborts the upload in flight. Cancelling when idle is
// a no-op and reports cancelled=false.
func (s *Server) handleCancelUpload(w http.ResponseWriter, r *http.Request) {
	cancelled := s.service.Cancel()
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// handleUploadStatus reports whether an upload is in flight.
func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	ctrl := s.service.Controller()
	writeJSON(w, http.StatusOK, map[string]string{
		"state":    string(ctrl.State()),
		"uploadId": ctrl.ActiveID(),
	})
}
