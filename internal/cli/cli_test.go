package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/stocksync/internal/config"
	"github.com/JonMunkholm/stocksync/internal/core"
	"github.com/JonMunkholm/stocksync/internal/store"
)

type fakeAPI struct {
	result    *core.UploadResult
	uploadErr error
	last      *core.LastRecord
	lastErr   error
	deleteMsg string
}

func (f *fakeAPI) Upload(ctx context.Context, file *core.UploadFile) (*core.UploadResult, error) {
	if _, err := io.Copy(io.Discard, file.Reader); err != nil {
		return nil, err
	}
	return f.result, f.uploadErr
}

func (f *fakeAPI) LastRecord(context.Context) (*core.LastRecord, error) {
	return f.last, f.lastErr
}

func (f *fakeAPI) DeleteStockTable(context.Context) (string, error) {
	return f.deleteMsg, nil
}

// fakeBuilder shares one in-memory backend across invocations, like the
// file backend does between runs.
func fakeBuilder(api *fakeAPI, backend *store.Memory) Builder {
	return func(ctx context.Context, cfg *config.Config, opts ...core.ControllerOption) (*core.Service, func() error, error) {
		svc := core.NewService(api, core.NewRecordStore(backend), core.ServiceOptions{
			Policy: core.PolicyReplace,
			Phone:  cfg.Share.Phone,
		}, opts...)
		return svc, func() error { return nil }, nil
	}
}

func run(t *testing.T, build Builder, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_KIND", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SHARE_PHONE", "911234567890")

	var out bytes.Buffer
	root := NewRootCmd(build)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func successAPI() *fakeAPI {
	return &fakeAPI{result: &core.UploadResult{
		RecordsInserted:     2,
		InsertedRecords:     core.RecordCollection{{Sr: 1, ScanCode: "SC-1"}, {Sr: 2, ScanCode: "SC-2"}},
		MissingRecordsCount: 1,
		MissingRecords:      core.RecordCollection{{Sr: 1, ScanCode: "SC-9"}},
	}}
}

func TestUpload_SuccessThenRecords(t *testing.T) {
	backend := store.NewMemory()
	build := fakeBuilder(successAPI(), backend)
	path := writeTempFile(t, "stock.xlsx", "data")

	out, err := run(t, build, "upload", path)
	if err != nil {
		t.Fatalf("upload error = %v", err)
	}
	for _, want := range []string{
		"File uploaded successfully! 2 records inserted.",
		"SC-1",
		"SC-9",
		"https://web.whatsapp.com/send?phone=911234567890&text=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("upload output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, build, "records")
	if err != nil {
		t.Fatalf("records error = %v", err)
	}
	if !strings.Contains(out, "Newly Stock (In) (2)") || !strings.Contains(out, "Stock Sold (Out) (1)") {
		t.Errorf("records output:\n%s", out)
	}

	out, err = run(t, build, "share")
	if err != nil {
		t.Fatalf("share error = %v", err)
	}
	if !strings.Contains(out, "Stock Update Report") {
		t.Errorf("share output missing report:\n%s", out)
	}
	if !strings.Contains(out, "✅ Inserted: 2\n❌ Missing: 1") {
		t.Errorf("share output missing summary:\n%s", out)
	}

	out, err = run(t, build, "share", "--mobile")
	if err != nil {
		t.Fatalf("share --mobile error = %v", err)
	}
	if !strings.Contains(out, "whatsapp://send?phone=911234567890") {
		t.Errorf("share --mobile output missing deep link:\n%s", out)
	}

	if _, err := run(t, build, "clear"); err != nil {
		t.Fatalf("clear error = %v", err)
	}
	out, _ = run(t, build, "share")
	if !strings.Contains(out, "No report yet") {
		t.Errorf("share after clear:\n%s", out)
	}
}

func TestUpload_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr error
	}{
		{"unsupported extension", "notes.txt", nil, errUnsupportedType},
		{"too large", "stock.xlsx", map[string]string{"UPLOAD_MAX_FILE_SIZE": "2"}, errFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			api := successAPI()
			backend := store.NewMemory()
			path := writeTempFile(t, tt.file, "data")

			_, err := run(t, fakeBuilder(api, backend), "upload", path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("upload error = %v, want %v", err, tt.wantErr)
			}
			if len(backend.Snapshot()) != 0 {
				t.Error("rejected upload touched the store")
			}
		})
	}
}

func TestUpload_ServerFailure(t *testing.T) {
	api := &fakeAPI{uploadErr: &core.ServerError{StatusCode: 400, Message: "Invalid file format"}}
	backend := store.NewMemory()
	path := writeTempFile(t, "stock.xlsx", "data")

	_, err := run(t, fakeBuilder(api, backend), "upload", path)
	var srvErr *core.ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("upload error = %v, want *core.ServerError", err)
	}
	if got := core.FormatUserError(err); !strings.Contains(got, "Invalid file format") {
		t.Errorf("FormatUserError() = %q", got)
	}
	if len(backend.Snapshot()) != 0 {
		t.Error("failed upload touched the store")
	}
}

func TestUpload_MissingFile(t *testing.T) {
	_, err := run(t, fakeBuilder(successAPI(), store.NewMemory()), "upload", filepath.Join(t.TempDir(), "nope.xlsx"))
	if err == nil || !strings.Contains(err.Error(), "open upload file") {
		t.Fatalf("upload error = %v, want open error", err)
	}
}

func TestExport(t *testing.T) {
	backend := store.NewMemory()
	build := fakeBuilder(successAPI(), backend)
	dir := t.TempDir()

	if _, err := run(t, build, "export", "--dir", dir); err == nil {
		t.Fatal("export with no records succeeded")
	}

	if _, err := run(t, build, "upload", writeTempFile(t, "stock.csv", "data")); err != nil {
		t.Fatalf("upload error = %v", err)
	}
	out, err := run(t, build, "export", "--missing", "--format", "csv", "--dir", dir)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out, "Exported 1 records") {
		t.Errorf("export output:\n%s", out)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "Missing_Records_*.csv"))
	if len(matches) != 1 {
		t.Fatalf("exported files = %v, want one csv", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "SC-9") {
		t.Errorf("csv content:\n%s", data)
	}
}

func TestLastRecord(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		api  *fakeAPI
		want string
	}{
		{"found", &fakeAPI{last: &core.LastRecord{Sr: 7, ScanCode: "SC-7", CreatedAt: created}}, "Last upload: 01 March 2025, 03:34:05 pm (scan code SC-7)"},
		{"unavailable", &fakeAPI{lastErr: errors.New("connection refused")}, "Last upload: unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, fakeBuilder(tt.api, store.NewMemory()), "last-record")
			if err != nil {
				t.Fatalf("last-record error = %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestDeleteTable(t *testing.T) {
	api := &fakeAPI{deleteMsg: "DB Table is deleted."}
	build := fakeBuilder(api, store.NewMemory())

	if _, err := run(t, build, "delete-table"); err == nil {
		t.Error("delete-table without --yes succeeded")
	}

	out, err := run(t, build, "delete-table", "--yes")
	if err != nil {
		t.Fatalf("delete-table error = %v", err)
	}
	if !strings.Contains(out, "DB Table is deleted.") {
		t.Errorf("output = %q", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, nil, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "stocksync dev") {
		t.Errorf("output = %q", out)
	}
}

func TestCheckUploadFile(t *testing.T) {
	cfg := config.UploadConfig{MaxFileSize: 10, AllowedExtensions: []string{".xlsx", ".csv"}}

	tests := []struct {
		name    string
		file    core.UploadFile
		wantErr error
	}{
		{"ok", core.UploadFile{Name: "a.xlsx", Size: 10}, nil},
		{"upper case extension", core.UploadFile{Name: "A.XLSX", Size: 1}, nil},
		{"too large", core.UploadFile{Name: "a.xlsx", Size: 11}, errFileTooLarge},
		{"wrong type", core.UploadFile{Name: "a.pdf", Size: 1}, errUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkUploadFile(cfg, &tt.file)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkUploadFile() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
