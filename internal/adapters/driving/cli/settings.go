package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// accessTokenKey is the configuration key of the wiki OAuth token.
//
//nolint:gosec // G101: a key name, not a credential.
const accessTokenKey = "wiki.access_token"

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the configuration stored in config.toml.

Use 'settings keys' to list every key and 'settings set' to change one.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	RunE:  runSettingsShow,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys and their stored values",
	RunE:  runSettingsKeys,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Long: `Set a configuration key. Lists are comma-separated, durations are in the
unit named by the key (retry_delay_ms, followup_interval_s, self_request_days).`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Store the wiki OAuth access token",
	Long:  `Prompts for an owner-only OAuth 2 access token without echoing it.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsToken,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsTokenCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("File: %s\n", settingsService.Path())
	cmd.Println()

	cmd.Println("[Queue]")
	cmd.Printf("  Backend: %s\n", s.Queue.Backend.Description())
	cmd.Printf("  Redis: %s (db %d)\n", s.Queue.RedisAddr, s.Queue.RedisDB)
	cmd.Printf("  Key: %s\n", s.Queue.Key)
	cmd.Printf("  Spool: %s\n", s.Queue.SpoolDir)
	cmd.Println()

	cmd.Println("[Wiki]")
	cmd.Printf("  API: %s\n", s.Wiki.APIURL)
	cmd.Printf("  Account: %s\n", s.Wiki.Username)
	if s.Wiki.AccessToken != "" {
		cmd.Printf("  Access Token: %s\n", maskAPIKey(s.Wiki.AccessToken))
	} else {
		cmd.Printf("  Access Token: (not set)\n")
	}
	cmd.Printf("  Throttle: %.1f req/s\n", s.Wiki.RequestsPerSecond)
	cmd.Println()

	cmd.Println("[Worker]")
	cmd.Printf("  Scratch Root: %s\n", s.Worker.ScratchRoot)
	cmd.Printf("  Max Edit Count: %d\n", s.Worker.MaxEditCount)
	cmd.Printf("  Dry Run: %t\n", s.Worker.DryRun)
	cmd.Println()

	cmd.Println("[Detection]")
	cmd.Printf("  Classifier: %s\n", s.Detection.Classifier)
	cmd.Printf("  Majority Threshold: %.2f\n", s.Detection.MajorityThreshold)
	cmd.Printf("  Max Depth: %d\n", s.Detection.MaxDepth)
	cmd.Println()

	cmd.Println("[Remediation]")
	cmd.Printf("  Attempts: %d every %s\n", s.Remediation.MaxAttempts, s.Remediation.RetryDelay)
	cmd.Printf("  Protection: %s for %s\n", s.Remediation.ProtectLevel, s.Remediation.ProtectExpiry)
	cmd.Printf("  Follow-up Deletes: %d every %s\n", s.Remediation.FollowupDeletes, s.Remediation.FollowupInterval)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	for _, key := range settingsService.Keys() {
		val := settingsService.DisplayValue(key)
		if val == "" {
			val = "(default)"
		}
		cmd.Printf("  %s = %s\n", key, val)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s = %s\n", key, settingsService.DisplayValue(key))
	return nil
}

func runSettingsToken(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	cmd.Print("Access token: ")
	token := readPassword()
	cmd.Println()
	if token == "" {
		return errors.New("no token entered")
	}

	if err := settingsService.Set(accessTokenKey, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	cmd.Println("Access token saved.")
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
