package domain

import (
	"os"
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// QueueBackend identifies where change events are consumed from.
type QueueBackend string

// Available queue backends.
const (
	// QueueBackendRedis pops events from a Redis list.
	QueueBackendRedis QueueBackend = "redis"

	// QueueBackendSpool consumes JSON files dropped into a directory.
	QueueBackendSpool QueueBackend = "spool"
)

// IsValid returns true if the backend is recognised.
func (b QueueBackend) IsValid() bool {
	switch b {
	case QueueBackendRedis, QueueBackendSpool:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b QueueBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b QueueBackend) Description() string {
	switch b {
	case QueueBackendRedis:
		return "Redis list (BLPOP)"
	case QueueBackendSpool:
		return "Spool directory"
	default:
		return unknownDescription
	}
}

// ClassifierKind identifies the MIME classifier implementation.
type ClassifierKind string

// Available classifiers.
const (
	// ClassifierFile runs the external file(1) utility.
	ClassifierFile ClassifierKind = "file"

	// ClassifierMagic matches magic bytes in-process.
	ClassifierMagic ClassifierKind = "magic"
)

// IsValid returns true if the classifier is recognised.
func (k ClassifierKind) IsValid() bool {
	return k == ClassifierFile || k == ClassifierMagic
}

// String returns the string representation.
func (k ClassifierKind) String() string {
	return string(k)
}

// LoggingSettings holds logging configuration.
type LoggingSettings struct {
	Verbose bool
}

// QueueSettings holds event queue configuration.
type QueueSettings struct {
	Backend       QueueBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Key is the Redis list key.
	Key string

	// SpoolDir is watched for event files when Backend is spool.
	SpoolDir string
}

// WikiSettings holds platform client configuration.
type WikiSettings struct {
	APIURL      string
	Username    string
	AccessToken string
	UserAgent   string

	// RequestsPerSecond throttles all API calls client-side.
	RequestsPerSecond float64

	// TransientCodes are the API error codes treated as retryable conflicts.
	TransientCodes []string
}

// WorkerSettings holds worker loop configuration.
type WorkerSettings struct {
	// ScratchRoot is the parent of the per-process scratch directory.
	ScratchRoot string

	// MaxEditCount skips uploaders with more edits than this.
	MaxEditCount int

	// DownloadAttempts bounds download retries.
	DownloadAttempts int

	// DryRun logs platform writes instead of executing them.
	DryRun bool
}

// DetectionSettings holds boundary detection configuration.
type DetectionSettings struct {
	Classifier   ClassifierKind
	FileBinary   string
	FFmpegBinary string

	// ChunkSize is the chunk size of the seekable proxy.
	ChunkSize int

	// RemainderWindow is how many bytes of a remainder are classified.
	RemainderWindow int64

	// MajorityThreshold is the fraction of the file the legitimate part must
	// exceed for an unidentifiable remainder to be ignored.
	MajorityThreshold float64

	// MaxDepth bounds recursion into trailing payloads.
	MaxDepth int
}

// RemediationSettings holds remediation policy configuration.
type RemediationSettings struct {
	MaxAttempts int
	RetryDelay  time.Duration

	// ArchiveTypes is the archive-family MIME set.
	ArchiveTypes []string

	ProtectLevel  string
	ProtectExpiry string

	FollowupDeletes  int
	FollowupInterval time.Duration

	// SelfRequestWindow is how young a file must be for the uploader exemption.
	SelfRequestWindow time.Duration
}

// AuditSettings holds audit store configuration.
type AuditSettings struct {
	DataDir string
}

// Settings holds all application settings.
type Settings struct {
	Logging     LoggingSettings
	Queue       QueueSettings
	Wiki        WikiSettings
	Worker      WorkerSettings
	Detection   DetectionSettings
	Remediation RemediationSettings
	Audit       AuditSettings
}

// DefaultArchiveTypes returns the archive-family MIME types.
func DefaultArchiveTypes() []string {
	return []string{
		"application/zip",
		"application/x-zip-compressed",
		"application/java-archive",
		"application/x-rar",
		"application/x-rar-compressed",
		"application/vnd.rar",
		"application/x-7z-compressed",
		"application/gzip",
		"application/x-gzip",
		"application/x-tar",
		"application/x-bzip2",
		"application/x-xz",
		"application/x-lzma",
		"application/x-lzip",
		"application/zstd",
		"application/x-archive",
		"application/x-cpio",
		"application/vnd.ms-cab-compressed",
	}
}

// DefaultTransientCodes returns the API error codes treated as transient.
func DefaultTransientCodes() []string {
	return []string{
		"editconflict",
		"ratelimited",
		"maxlag",
		"readonly",
		"lockmanager-fail-conflict",
		"filebackend-fail-lock",
		"internal_api_error_DBQueryError",
	}
}

// DefaultSettings returns settings with sensible defaults.
// The wiki access token is left empty; without it only read calls work.
func DefaultSettings() Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	base := filepath.Join(home, ".embedscan")

	return Settings{
		Queue: QueueSettings{
			Backend:   QueueBackendRedis,
			RedisAddr: "localhost:6379",
			Key:       "embeddeddata",
			SpoolDir:  filepath.Join(base, "spool"),
		},
		Wiki: WikiSettings{
			APIURL:            "https://commons.wikimedia.org/w/api.php",
			Username:          "Embedded Data Bot",
			UserAgent:         "embedscan",
			RequestsPerSecond: 2,
			TransientCodes:    DefaultTransientCodes(),
		},
		Worker: WorkerSettings{
			ScratchRoot:      os.TempDir(),
			MaxEditCount:     200,
			DownloadAttempts: 8,
		},
		Detection: DetectionSettings{
			Classifier:        ClassifierFile,
			FileBinary:        "file",
			FFmpegBinary:      "ffmpeg",
			ChunkSize:         1 << 16,
			RemainderWindow:   1 << 20,
			MajorityThreshold: 0.5,
			MaxDepth:          4,
		},
		Remediation: RemediationSettings{
			MaxAttempts:       8,
			RetryDelay:        5 * time.Second,
			ArchiveTypes:      DefaultArchiveTypes(),
			ProtectLevel:      "autoconfirmed",
			ProtectExpiry:     "1 minute",
			FollowupDeletes:   8,
			FollowupInterval:  8 * time.Second,
			SelfRequestWindow: 7 * 24 * time.Hour,
		},
		Audit: AuditSettings{
			DataDir: filepath.Join(base, "data"),
		},
	}
}
