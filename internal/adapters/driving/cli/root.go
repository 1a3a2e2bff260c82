// Package cli implements the embedscan command line with cobra.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/embedscan/internal/core/ports/driving"
)

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

// version is set by Execute.
var version = "dev"

var (
	verbose   bool
	configDir string
	dryRun    bool
)

// Services are the driving ports the commands use.
type Services struct {
	Detector driving.Detector
	Worker   driving.Worker
	Audit    driving.AuditService
	Settings driving.SettingsService

	// Close releases the adapters behind the services. Optional.
	Close func() error
}

// Options carries the global flags to the bootstrap function.
type Options struct {
	ConfigDir string
	Verbose   bool
	DryRun    bool
}

// Bootstrap builds the services once global flags are parsed.
type Bootstrap func(opts Options) (*Services, error)

var (
	bootstrap       Bootstrap
	closeServices   func() error
	detector        driving.Detector
	workerService   driving.Worker
	auditService    driving.AuditService
	settingsService driving.SettingsService
)

var rootCmd = &cobra.Command{
	Use:   "embedscan",
	Short: "Detect and remediate data smuggled after the end of uploaded files",
	Long: `embedscan inspects uploaded files for trailing data appended after the
logical end of their format, such as an archive glued to a JPEG, and applies a
remediation policy on the wiki hosting them.

Run 'embedscan worker' to consume change events, or 'embedscan detect' to
inspect local files.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.embedscan)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log wiki writes instead of executing them")
}

// Execute runs the root command.
func Execute(ctx context.Context, v string, boot Bootstrap) error {
	version = v
	bootstrap = boot
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	if bootstrap == nil || cmd.Annotations[skipBootstrap] != "" {
		return nil
	}

	svc, err := bootstrap(Options{ConfigDir: configDir, Verbose: verbose, DryRun: dryRun})
	if err != nil {
		return err
	}
	detector = svc.Detector
	workerService = svc.Worker
	auditService = svc.Audit
	settingsService = svc.Settings
	closeServices = svc.Close
	return nil
}

func teardownServices(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// errNotConfigured reports a command run without its service.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
