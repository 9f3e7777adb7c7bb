package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/stocksync/internal/core"
)

func newTestClient(t *testing.T, h http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL + "/"
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "://bad", ""} {
		if _, err := New(Options{BaseURL: raw}); err == nil {
			t.Errorf("New(%q) error = nil, want error", raw)
		}
	}
}

func TestUpload_Success(t *testing.T) {
	var gotName, gotContent string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != UploadPath {
			t.Errorf("request = %s %s, want POST %s", r.Method, r.URL.Path, UploadPath)
		}
		f, hdr, err := r.FormFile(FileField)
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotContent = hdr.Filename, string(data)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"recordsInserted": 2,
			"insertedRecords": [{"sr": 1, "scan_code": "A"}, {"sr": 2, "scan_code": "B"}],
			"missingRecordsCount": 1,
			"missingRecords": [{"sr": 3, "scan_code": "C", "created_at": "2025-03-01T10:00:00Z"}],
			"whatsappLink": "https://wa.me/1"
		}`)
	})
	c := newTestClient(t, h, Options{})

	res, err := c.Upload(context.Background(), &core.UploadFile{
		Name:   "stock.xlsx",
		Reader: strings.NewReader("sheet-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if gotName != "stock.xlsx" || gotContent != "sheet-bytes" {
		t.Errorf("server got file %q = %q", gotName, gotContent)
	}
	if res.RecordsInserted != 2 || len(res.InsertedRecords) != 2 {
		t.Errorf("inserted = %d/%d, want 2/2", res.RecordsInserted, len(res.InsertedRecords))
	}
	if res.MissingRecords[0].CreatedAt == nil {
		t.Error("missing record created_at not decoded")
	}
	if res.WhatsappLink != "https://wa.me/1" {
		t.Errorf("WhatsappLink = %q", res.WhatsappLink)
	}
}

func TestUpload_EmptyCollections(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		io.WriteString(w, `{"recordsInserted": 0}`)
	})
	c := newTestClient(t, h, Options{})

	res, err := c.Upload(context.Background(), &core.UploadFile{Name: "a.csv", Reader: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.InsertedRecords == nil || res.MissingRecords == nil {
		t.Error("absent collections should decode as empty, not nil")
	}
}

func TestUpload_ServerError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"json message", http.StatusBadRequest, `{"message": "Invalid file format"}`, "Invalid file format"},
		{"json without message", http.StatusInternalServerError, `{"error": true}`, ""},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			c := newTestClient(t, h, Options{})

			_, err := c.Upload(context.Background(), &core.UploadFile{Name: "a.xlsx", Reader: strings.NewReader("x")})
			var srvErr *core.ServerError
			if !errors.As(err, &srvErr) {
				t.Fatalf("Upload() error = %v, want *core.ServerError", err)
			}
			if srvErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", srvErr.StatusCode, tt.status)
			}
			if srvErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", srvErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestUpload_Cancel(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
	})
	c := newTestClient(t, h, Options{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Upload(ctx, &core.UploadFile{Name: "a.xlsx", Reader: strings.NewReader("x")})
		errc <- err
	}()

	<-arrived
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Upload() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Upload did not return after cancel")
	}
}

func TestUpload_NoFile(t *testing.T) {
	c, err := New(Options{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Upload(context.Background(), nil); !errors.Is(err, core.ErrNoFile) {
		t.Errorf("Upload(nil) error = %v, want ErrNoFile", err)
	}
}

func TestLastRecord(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSr  int
		wantErr bool
	}{
		{"top level", `{"sr": 5, "scan_code": "X", "created_at": "2025-03-01T10:00:00Z"}`, 5, false},
		{"wrapped", `{"data": {"sr": 6, "scan_code": "Y", "created_at": "2025-03-01T10:00:00Z"}}`, 6, false},
		{"no timestamp", `{"sr": 1}`, 0, true},
		{"not json", `oops`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != LastRecordPath {
					t.Errorf("path = %q, want %q", r.URL.Path, LastRecordPath)
				}
				io.WriteString(w, tt.body)
			})
			c := newTestClient(t, h, Options{Timeout: time.Second})

			rec, err := c.LastRecord(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("LastRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && rec.Sr != tt.wantSr {
				t.Errorf("Sr = %d, want %d", rec.Sr, tt.wantSr)
			}
		})
	}
}

func TestLastRecord_Cached(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(LastRecordPath, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"sr": 1, "scan_code": "A", "created_at": "2025-03-01T10:00:00Z"}`)
	})
	mux.HandleFunc(DeleteTablePath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := newTestClient(t, mux, Options{LastRecordTTL: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := c.LastRecord(context.Background()); err != nil {
			t.Fatalf("LastRecord() error = %v", err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}

	if _, err := c.DeleteStockTable(context.Background()); err != nil {
		t.Fatalf("DeleteStockTable() error = %v", err)
	}
	if _, err := c.LastRecord(context.Background()); err != nil {
		t.Fatalf("LastRecord() error = %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hits after delete = %d, want 2", n)
	}
}

func TestDeleteStockTable(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"message", http.StatusOK, `{"message": "Table dropped"}`, "Table dropped", false},
		{"empty body", http.StatusOK, ``, DefaultDeleteMessage, false},
		{"server error", http.StatusInternalServerError, `{"message": "locked"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete || r.URL.Path != DeleteTablePath {
					t.Errorf("request = %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			c := newTestClient(t, h, Options{})

			got, err := c.DeleteStockTable(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("DeleteStockTable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DeleteStockTable() = %q, want %q", got, tt.want)
			}
		})
	}
}
