package cli

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stocksync/internal/config"
	"github.com/JonMunkholm/stocksync/internal/core"
	"github.com/JonMunkholm/stocksync/internal/tui"
)

var (
	errFileTooLarge    = errors.New("file too large")
	errUnsupportedType = errors.New("unsupported file type")
)

func newUploadCmd(a *app) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a spreadsheet and reconcile the result",
		Long: `Upload a spreadsheet to the comparison service. On success the inserted
and missing records replace the stored ones and the share link is printed.
Ctrl+C cancels the transfer; nothing is saved for a cancelled upload.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, f, err := core.OpenUploadFile(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if err := checkUploadFile(a.cfg.Upload, file); err != nil {
				return err
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			if interactive {
				report, err := tui.Run(cmd.Context(), svc, file, a.relay)
				if err != nil {
					return err
				}
				return outcomeError(report.Outcome)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploading %s (%d bytes)...\n", file.Name, file.Size)

			report, err := svc.Upload(ctx, file)
			if err != nil {
				return err
			}
			printReport(out, report)
			return outcomeError(report.Outcome)
		},
	}

	cmd.Flags().BoolVar(&interactive, "tui", false, "show an interactive progress screen (Esc cancels)")
	return cmd
}

func checkUploadFile(cfg config.UploadConfig, file *core.UploadFile) error {
	if cfg.MaxFileSize > 0 && file.Size > cfg.MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", errFileTooLarge, file.Name, file.Size, cfg.MaxFileSize)
	}
	if len(cfg.AllowedExtensions) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(file.Name))
	if !slices.Contains(cfg.AllowedExtensions, ext) {
		return fmt.Errorf("%w: %q", errUnsupportedType, ext)
	}
	return nil
}

// outcomeError turns a failed outcome into a command error so the exit
// status is non-zero. A cancelled upload is not an error.
func outcomeError(out core.Outcome) error {
	if out.Status == core.StatusFailed {
		return out.Err
	}
	return nil
}

func printReport(w io.Writer, report core.UploadReport) {
	out := report.Outcome
	switch out.Status {
	case core.StatusCancelled:
		fmt.Fprintln(w, "Upload cancelled. Nothing was saved.")
		return
	case core.StatusFailed:
		// Reported by the command error.
		return
	}

	fmt.Fprintln(w, out.SuccessMessage())
	if rec := report.Reconciliation; rec != nil {
		fmt.Fprintln(w)
		printRecords(w, *rec)
	}
	if report.ShareLink != "" {
		fmt.Fprintf(w, "\nShare: %s\n", report.ShareLink)
	}
}

func printRecords(w io.Writer, rec core.Reconciliation) {
	fmt.Fprint(w, tui.RecordTable("Newly Stock (In)", rec.Inserted))
	fmt.Fprintln(w)
	fmt.Fprint(w, tui.RecordTable("Stock Sold (Out)", rec.Missing))
}
