package services

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyVerbose           = "logging.verbose"
	keyQueueBackend      = "queue.backend"
	keyRedisAddr         = "queue.redis_addr"
	keyRedisPassword     = "queue.redis_password"
	keyRedisDB           = "queue.redis_db"
	keyQueueKey          = "queue.key"
	keySpoolDir          = "queue.spool_dir"
	keyWikiAPIURL        = "wiki.api_url"
	keyWikiUsername      = "wiki.username"
	keyWikiAccessToken   = "wiki.access_token"
	keyWikiUserAgent     = "wiki.user_agent"
	keyWikiRPS           = "wiki.requests_per_second"
	keyWikiTransient     = "wiki.transient_codes"
	keyScratchRoot       = "worker.scratch_root"
	keyMaxEditCount      = "worker.max_edit_count"
	keyDownloadAttempts  = "worker.download_attempts"
	keyDryRun            = "worker.dry_run"
	keyClassifier        = "detection.classifier"
	keyFileBinary        = "detection.file_binary"
	keyFFmpegBinary      = "detection.ffmpeg_binary"
	keyChunkSize         = "detection.chunk_size"
	keyRemainderWindow   = "detection.remainder_window"
	keyMajorityThreshold = "detection.majority_threshold"
	keyMaxDepth          = "detection.max_depth"
	keyMaxAttempts       = "remediation.max_attempts"
	keyRetryDelay        = "remediation.retry_delay_ms"
	keyArchiveTypes      = "remediation.archive_types"
	keyProtectLevel      = "remediation.protect_level"
	keyProtectExpiry     = "remediation.protect_expiry"
	keyFollowupDeletes   = "remediation.followup_deletes"
	keyFollowupInterval  = "remediation.followup_interval_s"
	keySelfRequestDays   = "remediation.self_request_days"
	keyAuditDataDir      = "audit.data_dir"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindList
)

var settingKinds = map[string]valueKind{
	keyVerbose:           kindBool,
	keyQueueBackend:      kindString,
	keyRedisAddr:         kindString,
	keyRedisPassword:     kindString,
	keyRedisDB:           kindInt,
	keyQueueKey:          kindString,
	keySpoolDir:          kindString,
	keyWikiAPIURL:        kindString,
	keyWikiUsername:      kindString,
	keyWikiAccessToken:   kindString,
	keyWikiUserAgent:     kindString,
	keyWikiRPS:           kindFloat,
	keyWikiTransient:     kindList,
	keyScratchRoot:       kindString,
	keyMaxEditCount:      kindInt,
	keyDownloadAttempts:  kindInt,
	keyDryRun:            kindBool,
	keyClassifier:        kindString,
	keyFileBinary:        kindString,
	keyFFmpegBinary:      kindString,
	keyChunkSize:         kindInt,
	keyRemainderWindow:   kindInt,
	keyMajorityThreshold: kindFloat,
	keyMaxDepth:          kindInt,
	keyMaxAttempts:       kindInt,
	keyRetryDelay:        kindInt,
	keyArchiveTypes:      kindList,
	keyProtectLevel:      kindString,
	keyProtectExpiry:     kindString,
	keyFollowupDeletes:   kindInt,
	keyFollowupInterval:  kindInt,
	keySelfRequestDays:   kindInt,
	keyAuditDataDir:      kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		Logging: domain.LoggingSettings{
			Verbose: s.getBool(keyVerbose, d.Logging.Verbose),
		},
		Queue: domain.QueueSettings{
			Backend:       s.getQueueBackend(d.Queue.Backend),
			RedisAddr:     s.getString(keyRedisAddr, d.Queue.RedisAddr),
			RedisPassword: s.configStore.GetString(keyRedisPassword),
			RedisDB:       s.configStore.GetInt(keyRedisDB),
			Key:           s.getString(keyQueueKey, d.Queue.Key),
			SpoolDir:      s.getString(keySpoolDir, d.Queue.SpoolDir),
		},
		Wiki: domain.WikiSettings{
			APIURL:            s.getString(keyWikiAPIURL, d.Wiki.APIURL),
			Username:          s.getString(keyWikiUsername, d.Wiki.Username),
			AccessToken:       s.configStore.GetString(keyWikiAccessToken),
			UserAgent:         s.getString(keyWikiUserAgent, d.Wiki.UserAgent),
			RequestsPerSecond: s.getFloat(keyWikiRPS, d.Wiki.RequestsPerSecond),
			TransientCodes:    s.getStringSlice(keyWikiTransient, d.Wiki.TransientCodes),
		},
		Worker: domain.WorkerSettings{
			ScratchRoot:      s.getString(keyScratchRoot, d.Worker.ScratchRoot),
			MaxEditCount:     s.getInt(keyMaxEditCount, d.Worker.MaxEditCount),
			DownloadAttempts: s.getInt(keyDownloadAttempts, d.Worker.DownloadAttempts),
			DryRun:           s.getBool(keyDryRun, d.Worker.DryRun),
		},
		Detection: domain.DetectionSettings{
			Classifier:        s.getClassifier(d.Detection.Classifier),
			FileBinary:        s.getString(keyFileBinary, d.Detection.FileBinary),
			FFmpegBinary:      s.getString(keyFFmpegBinary, d.Detection.FFmpegBinary),
			ChunkSize:         s.getInt(keyChunkSize, d.Detection.ChunkSize),
			RemainderWindow:   int64(s.getInt(keyRemainderWindow, int(d.Detection.RemainderWindow))),
			MajorityThreshold: s.getFloat(keyMajorityThreshold, d.Detection.MajorityThreshold),
			MaxDepth:          s.getInt(keyMaxDepth, d.Detection.MaxDepth),
		},
		Remediation: domain.RemediationSettings{
			MaxAttempts:       s.getInt(keyMaxAttempts, d.Remediation.MaxAttempts),
			RetryDelay:        s.getMillis(keyRetryDelay, d.Remediation.RetryDelay),
			ArchiveTypes:      s.getStringSlice(keyArchiveTypes, d.Remediation.ArchiveTypes),
			ProtectLevel:      s.getString(keyProtectLevel, d.Remediation.ProtectLevel),
			ProtectExpiry:     s.getString(keyProtectExpiry, d.Remediation.ProtectExpiry),
			FollowupDeletes:   s.getInt(keyFollowupDeletes, d.Remediation.FollowupDeletes),
			FollowupInterval:  s.getSeconds(keyFollowupInterval, d.Remediation.FollowupInterval),
			SelfRequestWindow: s.getDays(keySelfRequestDays, d.Remediation.SelfRequestWindow),
		},
		Audit: domain.AuditSettings{
			DataDir: s.getString(keyAuditDataDir, d.Audit.DataDir),
		},
	}

	return settings, nil
}

// Set parses value according to the type of key and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		parsed = items
	default:
		parsed = value
	}

	if err := s.validateValue(key, parsed); err != nil {
		return err
	}
	return s.configStore.Set(key, parsed)
}

func (s *SettingsService) validateValue(key string, value any) error {
	switch key {
	case keyQueueBackend:
		if !domain.QueueBackend(value.(string)).IsValid() {
			return fmt.Errorf("%w: queue backend must be redis or spool", domain.ErrInvalidInput)
		}
	case keyClassifier:
		if !domain.ClassifierKind(value.(string)).IsValid() {
			return fmt.Errorf("%w: classifier must be file or magic", domain.ErrInvalidInput)
		}
	case keyMajorityThreshold:
		if f := value.(float64); f <= 0 || f >= 1 {
			return fmt.Errorf("%w: majority threshold must be between 0 and 1", domain.ErrInvalidInput)
		}
	}
	return nil
}

// Keys returns every recognised configuration key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if current settings are usable by the worker.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if u, err := url.Parse(settings.Wiki.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid wiki API URL: %q", settings.Wiki.APIURL)
	}
	if settings.Queue.Backend == domain.QueueBackendSpool && settings.Queue.SpoolDir == "" {
		return fmt.Errorf("queue backend %q requires %s", settings.Queue.Backend.Description(), keySpoolDir)
	}
	if settings.Remediation.MaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive", keyMaxAttempts)
	}
	if settings.Detection.MaxDepth <= 0 {
		return fmt.Errorf("%s must be positive", keyMaxDepth)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Path returns where settings are persisted.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if val := s.configStore.GetStringSlice(key); len(val) > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Millisecond
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Second
}

func (s *SettingsService) getDays(key string, defaultVal time.Duration) time.Duration {
	if n := s.configStore.GetInt(key); n > 0 {
		return time.Duration(n) * 24 * time.Hour
	}
	return defaultVal
}

func (s *SettingsService) getQueueBackend(defaultVal domain.QueueBackend) domain.QueueBackend {
	backend := domain.QueueBackend(s.configStore.GetString(keyQueueBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getClassifier(defaultVal domain.ClassifierKind) domain.ClassifierKind {
	kind := domain.ClassifierKind(s.configStore.GetString(keyClassifier))
	if !kind.IsValid() {
		return defaultVal
	}
	return kind
}

// maskedValue replaces secrets in displayed settings.
const maskedValue = "********"

// DisplayValue returns the value of key for display, masking secrets.
func (s *SettingsService) DisplayValue(key string) string {
	val, ok := s.configStore.Get(key)
	if !ok {
		return ""
	}
	if key == keyWikiAccessToken || key == keyRedisPassword {
		if str, _ := val.(string); str != "" {
			return maskedValue
		}
		return ""
	}
	switch v := val.(type) {
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
