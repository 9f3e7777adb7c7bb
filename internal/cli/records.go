package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stocksync/internal/core"
	"github.com/JonMunkholm/stocksync/internal/export"
)

func newRecordsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "Show the stored inserted and missing records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), svc.Records(cmd.Context()))
			return nil
		},
	}
}

func newShareCmd(a *app) *cobra.Command {
	var mobile bool

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print the stored share report and its WhatsApp link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			var override *bool
			if cmd.Flags().Changed("mobile") {
				override = &mobile
			}
			view := svc.Share(cmd.Context(), override)

			out := cmd.OutOrStdout()
			if view.Text == "" {
				fmt.Fprintln(out, "No report yet. Upload a file first.")
				return nil
			}
			fmt.Fprintln(out, view.Summary)
			fmt.Fprintln(out)
			fmt.Fprintln(out, view.Text)
			fmt.Fprintf(out, "\n%s\n", view.Link)
			return nil
		},
	}

	cmd.Flags().BoolVar(&mobile, "mobile", false, "build a whatsapp:// link for mobile clients")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the stored records and share report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := svc.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared!")
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		missing bool
		format  string
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored inserted (or missing) records to a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			rec := svc.Records(cmd.Context())
			kind, records := export.KindInserted, rec.Inserted
			if missing {
				kind, records = export.KindMissing, rec.Missing
			}

			path, err := export.ToFile(dir, kind, f, records, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(records), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&missing, "missing", false, "export missing records instead of inserted ones")
	cmd.Flags().StringVar(&format, "format", string(export.FormatXLSX), "output format: xlsx or csv")
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	return cmd
}

// lastRecordLine formats a last-record lookup for display.
func lastRecordLine(rec *core.LastRecord) string {
	return fmt.Sprintf("Last upload: %s (scan code %s)", core.FormatTimestampIST(rec.CreatedAt), rec.ScanCode)
}

func newLastRecordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "last-record",
		Short: "Show when the stock table was last updated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := svc.LastRecord(cmd.Context())
			if err != nil {
				slog.Warn("last record lookup failed", "error", err)
				fmt.Fprintln(cmd.OutOrStdout(), "Last upload: unavailable")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), lastRecordLine(rec))
			return nil
		},
	}
}

func newDeleteTableCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-table",
		Short: "Delete the remote stock table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete the stock table without --yes")
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := svc.DeleteTable(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
