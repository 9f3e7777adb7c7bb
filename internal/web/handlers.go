package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/stocksync/internal/core"
	"github.com/JonMunkholm/stocksync/internal/export"
	"github.com/JonMunkholm/stocksync/internal/logging"
	"github.com/JonMunkholm/stocksync/internal/web/templates"
)

// handleIndex renders the page with the stored collections. The last
// record is fetched by the page itself so a slow service cannot block it.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := templates.PageData{
		Records: s.service.Records(ctx),
	}
	_, data.ShareLink = s.service.ShareLink(ctx, nil)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render page", "error", err)
	}
}

// handleRecords returns the stored collections and share message.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Records(r.Context()))
}

// handleClearRecords removes all local state and lists the cleared keys so
// the page can reset its tables.
func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	keys, err := s.service.Clear(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cleared": keys,
		"message": "Cache cleared!",
	})
}

// handleShare returns the share text, its summary and the link. ?mobile=true|false
// overrides the configured client kind.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var mobile *bool
	if v := r.URL.Query().Get("mobile"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, r, &core.ValidationError{Field: "mobile", Message: "mobile must be true or false"}, 0)
			return
		}
		mobile = &b
	}
	writeJSON(w, http.StatusOK, s.service.Share(r.Context(), mobile))
}

// handleExport downloads the inserted (default) or missing records.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		s.respondError(w, r, &core.ValidationError{Field: "format", Message: err.Error()}, 0)
		return
	}

	kind := export.KindInserted
	records := s.service.Records(r.Context())
	rows := records.Inserted
	if q.Get("kind") == string(export.KindMissing) {
		kind = export.KindMissing
		rows = records.Missing
	}
	if len(rows) == 0 {
		s.respondError(w, r, export.ErrNothingToExport, 0)
		return
	}

	name := export.FileName(kind, format, s.now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.Write(w, kind, format, rows); err != nil {
		logging.FromContext(r.Context()).Error("export failed", "file", name, "error", err)
	}
}

// LastRecordResponse is the JSON answer to GET /api/last-record.
type LastRecordResponse struct {
	core.LastRecord
	CreatedAtIST string `json:"created_at_ist"`
}

// handleLastRecord returns the newest remote row. Failures are logged and
// answered with 204 so the page just leaves the field empty.
func (s *Server) handleLastRecord(w http.ResponseWriter, r *http.Request) {
	last, err := s.service.LastRecord(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Warn("last record unavailable", "error", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, LastRecordResponse{
		LastRecord:   *last,
		CreatedAtIST: core.FormatTimestampIST(last.CreatedAt),
	})
}

// handleDeleteTable deletes the remote stock table. Local state is kept.
func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	msg, err := s.service.DeleteTable(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
