// Package core provides the business logic for stock reconciliation uploads.
//
// This package has no UI dependencies. The CLI, the terminal UI and the
// local web server all drive it through [Service].
//
// # Architecture
//
//   - Upload Controller: runs at most one upload at a time. A newer upload
//     or an explicit cancel aborts the one in flight, and its outcome is
//     reported as cancelled even if the comparison service already answered.
//   - Coordinator: turns a successful [UploadResult] into the persisted
//     inserted and missing collections plus the share message, written in
//     one atomic batch.
//   - Merge: deduplicates records by scan code. The last occurrence wins,
//     the first occurrence keeps its position.
//   - Record Store: typed access to the persisted keys with documented
//     defaults for missing or malformed entries.
//
// # Upload flow
//
//	svc := core.NewService(client, core.NewRecordStore(backend), core.ServiceOptions{})
//	report, err := svc.Upload(ctx, file)
//	if err != nil {
//	    // ErrNoFile or a store failure
//	}
//	switch report.Outcome.Status {
//	case core.StatusSucceeded:
//	    // report.Reconciliation holds the stored collections
//	case core.StatusFailed:
//	    // report.Outcome.Reason is the message to show
//	case core.StatusCancelled:
//	    // nothing was persisted
//	}
//
// # Error Handling
//
// Technical errors are mapped to coded user messages by [MapError]:
//
//	msg := core.MapError(err)
//	fmt.Println(msg.Message, msg.Action, msg.Code)
package core
