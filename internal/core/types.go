package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Record is one stock item identified by its scan code.
type Record struct {
	Sr        int        `json:"sr" csv:"sr"`
	ScanCode  string     `json:"scan_code" csv:"scan_code"`
	CreatedAt *time.Time `json:"created_at,omitempty" csv:"created_at,omitempty"`
}

// RecordCollection is an ordered list of records unique by scan code.
// Insertion order is the display order.
type RecordCollection []Record

// Keys returns the scan codes in collection order.
func (c RecordCollection) Keys() []string {
	keys := make([]string, len(c))
	for i, r := range c {
		keys[i] = r.ScanCode
	}
	return keys
}

// Contains reports whether a record with scanCode is present.
func (c RecordCollection) Contains(scanCode string) bool {
	for _, r := range c {
		if r.ScanCode == scanCode {
			return true
		}
	}
	return false
}

// Dedup collapses duplicate scan codes. The last occurrence supplies the
// value, the first occurrence fixes the position.
func (c RecordCollection) Dedup() RecordCollection {
	return Merge(nil, c)
}

// UploadResult is the comparison service's response body.
type UploadResult struct {
	RecordsInserted     int              `json:"recordsInserted"`
	InsertedRecords     RecordCollection `json:"insertedRecords"`
	MissingRecordsCount int              `json:"missingRecordsCount"`
	MissingRecords      RecordCollection `json:"missingRecords"`
	WhatsappLink        string           `json:"whatsappLink,omitempty"`
}

// ShareMessage is the persisted share payload. It can be re-sent without
// uploading again.
type ShareMessage struct {
	Text                string           `json:"text"`
	RecordsInserted     int              `json:"recordsInserted"`
	InsertedRecords     RecordCollection `json:"insertedRecords"`
	MissingRecordsCount int              `json:"missingRecordsCount"`
	MissingRecords      RecordCollection `json:"missingRecords"`
	WhatsappLink        string           `json:"whatsappLink,omitempty"`
}

// LastRecord is the most recent row of the remote stock table.
type LastRecord struct {
	Sr        int       `json:"sr"`
	ScanCode  string    `json:"scan_code"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadFile is a spreadsheet selected for upload.
type UploadFile struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// OpenUploadFile opens path for upload. The caller closes the returned file.
func OpenUploadFile(path string) (*UploadFile, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open upload file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat upload file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("open upload file: %s is a directory", path)
	}
	return &UploadFile{
		Name:   filepath.Base(path),
		Size:   info.Size(),
		Reader: f,
	}, f, nil
}

// UploadStatus is the terminal state of an upload operation.
type UploadStatus string

const (
	StatusSucceeded UploadStatus = "succeeded"
	StatusFailed    UploadStatus = "failed"
	StatusCancelled UploadStatus = "cancelled"
)

// ControllerState is the upload controller's current state.
type ControllerState string

const (
	StateIdle      ControllerState = "idle"
	StateUploading ControllerState = "uploading"
)

// Outcome is the terminal result of one upload operation.
type Outcome struct {
	UploadID string        `json:"uploadId"`
	FileName string        `json:"fileName"`
	Status   UploadStatus  `json:"status"`
	Result   *UploadResult `json:"result,omitempty"`
	Reason   string        `json:"reason,omitempty"` // Non-empty if Status is StatusFailed
	Err      error         `json:"-"`

	// SelectionCleared tells the presentation layer to reset its file input.
	SelectionCleared bool          `json:"selectionCleared"`
	Duration         time.Duration `json:"duration"`
}

// SuccessMessage returns the inline message shown after a successful upload.
func (o Outcome) SuccessMessage() string {
	if o.Status != StatusSucceeded || o.Result == nil {
		return ""
	}
	return fmt.Sprintf("File uploaded successfully! %d records inserted.", o.Result.RecordsInserted)
}

// ProgressFunc receives the number of bytes sent and the total, which is
// 0 when unknown.
type ProgressFunc func(sent, total int64)
