package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/services"
)

var detectJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect <file>...",
	Short: "Inspect local files for trailing data",
	Long: `Runs boundary detection on local files and prints where the declared
format ends and what follows it. Nothing is sent to the wiki.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(detectCmd)
}

// detectResult is one file's outcome.
type detectResult struct {
	Path      string            `json:"path"`
	Digest    string            `json:"digest,omitempty"`
	Detection *domain.Detection `json:"detection,omitempty"`
	Report    string            `json:"report,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	if detector == nil {
		return errNotConfigured("detection")
	}

	results := make([]detectResult, 0, len(args))
	failed := 0
	for _, path := range args {
		res := detectResult{Path: path}

		digest, err := fileDigest(path)
		if err == nil {
			res.Digest = digest
			res.Detection, err = detector.DetectFile(cmd.Context(), path)
		}
		if err != nil {
			res.Error = err.Error()
			failed++
		} else if res.Detection.Suspicious() {
			res.Report = services.ReportMessage(res.Detection.Findings)
		}
		results = append(results, res)
	}

	if detectJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	} else {
		for i := range results {
			printDetectResult(cmd, &results[i])
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be inspected", failed, len(args))
	}
	return nil
}

func printDetectResult(cmd *cobra.Command, res *detectResult) {
	if res.Error != "" {
		cmd.Printf("%s: error: %s\n", res.Path, res.Error)
		return
	}

	d := res.Detection
	cmd.Printf("%s: %s, %s, xxhash %s\n", res.Path, d.MIME, humanize.IBytes(uint64(d.Size)), res.Digest)
	if !d.Suspicious() {
		cmd.Println("  No trailing data")
		return
	}

	cmd.Printf("  Suspicious: %s\n", res.Report)
	for i, f := range d.Findings {
		kind := "exact"
		if !f.Exact {
			kind = "approximate"
		}
		typ := "unidentified"
		if f.MIME != nil {
			typ = f.MIME.String()
		}
		cmd.Printf("  [%d] offset %d (%s): %s\n", i+1, f.Offset, kind, typ)
	}
}

// fileDigest returns the xxhash64 of a file as 16 hex digits.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
