package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

var (
	auditLimit int
	auditTitle string
	auditJSON  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect processed change events",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently processed events",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

func init() {
	auditListCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "maximum number of records")
	auditListCmd.Flags().StringVar(&auditTitle, "title", "", "only records of this file")
	auditListCmd.Flags().BoolVar(&auditJSON, "json", false, "output records as JSON")
	auditCmd.AddCommand(auditListCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditList(cmd *cobra.Command, _ []string) error {
	if auditService == nil {
		return errNotConfigured("audit")
	}

	var (
		records []domain.AuditRecord
		err     error
	)
	if auditTitle != "" {
		records, err = auditService.ForTitle(cmd.Context(), auditTitle)
	} else {
		records, err = auditService.Recent(cmd.Context(), auditLimit)
	}
	if err != nil {
		return fmt.Errorf("failed to list audit records: %w", err)
	}

	if auditJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal records: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(records) == 0 {
		cmd.Println("No processed events.")
		return nil
	}

	for i := range records {
		r := &records[i]
		cmd.Printf("%s  %s  %s\n", r.ProcessedAt.Local().Format(time.DateTime), r.Title, r.Outcome.Description())
		if r.Uploader != "" {
			cmd.Printf("    Uploader: %s, revision %s\n", r.Uploader, r.RevisionTimestamp.UTC().Format(time.RFC3339))
		}
		if len(r.Findings) > 0 {
			cmd.Printf("    Findings: %d, first at offset %d\n", len(r.Findings), r.Findings[0].Offset)
		}
		if r.Error != "" {
			cmd.Printf("    Error: %s\n", r.Error)
		}
	}
	return nil
}
