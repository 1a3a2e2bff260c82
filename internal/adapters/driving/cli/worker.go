package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

var (
	eventImgTimestamp string
	eventTimestamp    int64
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume change events and remediate suspicious uploads",
	Long: `Pops "file changed" events from the configured queue, downloads the
uploaded revision, runs boundary detection on it and, when trailing data is
found, overwrites, deletes, revision-deletes or flags the file.

Stops cleanly on SIGINT or SIGTERM after outstanding follow-up deletions.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

var processCmd = &cobra.Command{
	Use:   "process <title>",
	Short: "Process one file without going through the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <title>",
	Short: "Push a change event onto the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnqueue,
}

func init() {
	for _, cmd := range []*cobra.Command{processCmd, enqueueCmd} {
		cmd.Flags().StringVar(&eventImgTimestamp, "img-timestamp", "",
			"uploaded revision timestamp (YYYYMMDDhhmmss)")
		cmd.Flags().Int64Var(&eventTimestamp, "timestamp", 0, "event time in unix seconds (default now)")
	}
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(enqueueCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if workerService == nil {
		return errNotConfigured("worker")
	}
	return workerService.Run(cmd.Context())
}

func eventFromFlags(title string) domain.ChangeEvent {
	ts := eventTimestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	return domain.ChangeEvent{
		Title:     title,
		Timestamp: ts,
		LogParams: domain.LogParams{ImgTimestamp: eventImgTimestamp},
	}
}

func runProcess(cmd *cobra.Command, args []string) error {
	if workerService == nil {
		return errNotConfigured("worker")
	}

	record, err := workerService.Process(cmd.Context(), eventFromFlags(args[0]))
	if record == nil {
		if err != nil {
			return err
		}
		cmd.Printf("%s: skipped\n", args[0])
		return nil
	}

	cmd.Printf("%s: %s\n", record.Title, record.Outcome.Description())
	if record.Action != "" {
		cmd.Printf("  Action: %s\n", record.Action)
	}
	if record.Error != "" {
		cmd.Printf("  Error: %s\n", record.Error)
	}
	return err
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	if workerService == nil {
		return errNotConfigured("worker")
	}

	event := eventFromFlags(args[0])
	if err := workerService.Enqueue(cmd.Context(), event); err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	cmd.Printf("Queued %s\n", event.Title)
	return nil
}
