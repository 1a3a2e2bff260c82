package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/embedscan/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/embedscan/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults, *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("queue.backend", "spool")
	_ = store.Set("queue.spool_dir", "/var/spool/embedscan")
	_ = store.Set("wiki.access_token", "tok")
	_ = store.Set("wiki.requests_per_second", 0.5)
	_ = store.Set("worker.max_edit_count", 50)
	_ = store.Set("worker.dry_run", true)
	_ = store.Set("detection.classifier", "magic")
	_ = store.Set("detection.majority_threshold", 0.75)
	_ = store.Set("remediation.retry_delay_ms", 250)
	_ = store.Set("remediation.followup_interval_s", 3)
	_ = store.Set("remediation.self_request_days", 2)
	_ = store.Set("remediation.archive_types", []string{"application/zip"})
	service := NewSettingsService(store)

	s, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.QueueBackendSpool, s.Queue.Backend)
	assert.Equal(t, "/var/spool/embedscan", s.Queue.SpoolDir)
	assert.Equal(t, "tok", s.Wiki.AccessToken)
	assert.InDelta(t, 0.5, s.Wiki.RequestsPerSecond, 1e-9)
	assert.Equal(t, 50, s.Worker.MaxEditCount)
	assert.True(t, s.Worker.DryRun)
	assert.Equal(t, domain.ClassifierMagic, s.Detection.Classifier)
	assert.InDelta(t, 0.75, s.Detection.MajorityThreshold, 1e-9)
	assert.Equal(t, 250*time.Millisecond, s.Remediation.RetryDelay)
	assert.Equal(t, 3*time.Second, s.Remediation.FollowupInterval)
	assert.Equal(t, 48*time.Hour, s.Remediation.SelfRequestWindow)
	assert.Equal(t, []string{"application/zip"}, s.Remediation.ArchiveTypes)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("queue.backend", "kafka")
	_ = store.Set("detection.classifier", "guess")
	service := NewSettingsService(store)

	s, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.QueueBackendRedis, s.Queue.Backend)
	assert.Equal(t, domain.ClassifierFile, s.Detection.Classifier)
}

func TestSettingsService_Get_ZeroRetryDelayIsKept(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("remediation.retry_delay_ms", 0)
	service := NewSettingsService(store)

	s, err := service.Get()
	require.NoError(t, err)
	assert.Zero(t, s.Remediation.RetryDelay)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  any
	}{
		{"queue.key", "uploads", "uploads"},
		{"queue.redis_db", " 3 ", 3},
		{"wiki.requests_per_second", "1.5", 1.5},
		{"worker.dry_run", "true", true},
		{"wiki.transient_codes", "maxlag, readonly,,", []string{"maxlag", "readonly"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store)

			require.NoError(t, service.Set(tt.key, tt.value))
			got, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_Set_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"not an integer", "worker.max_edit_count", "many"},
		{"not a number", "wiki.requests_per_second", "fast"},
		{"not a bool", "worker.dry_run", "maybe"},
		{"unknown backend", "queue.backend", "kafka"},
		{"unknown classifier", "detection.classifier", "guess"},
		{"threshold too large", "detection.majority_threshold", "1"},
		{"threshold too small", "detection.majority_threshold", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store)

			err := service.Set(tt.key, tt.value)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, ok := store.Get(tt.key)
			assert.False(t, ok)
		})
	}
}

// failingConfigStore fails every write.
type failingConfigStore struct {
	*memory.ConfigStore
}

func (f *failingConfigStore) Set(string, any) error {
	return errors.New("read-only file system")
}

func TestSettingsService_Set_StoreError(t *testing.T) {
	service := NewSettingsService(&failingConfigStore{memory.NewConfigStore()})

	err := service.Set("queue.key", "x")
	assert.EqualError(t, err, "read-only file system")
}

func TestSettingsService_Keys(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	keys := service.Keys()
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "wiki.access_token")
	assert.Contains(t, keys, "detection.majority_threshold")
	assert.Len(t, keys, len(settingKinds))
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore())
		assert.NoError(t, service.Validate())
	})

	t.Run("relative API URL", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("wiki.api_url", "/w/api.php")
		assert.Error(t, NewSettingsService(store).Validate())
	})

	t.Run("negative attempts", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("remediation.max_attempts", -1)
		assert.Error(t, NewSettingsService(store).Validate())
	})

	t.Run("negative depth", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("detection.max_depth", -2)
		assert.Error(t, NewSettingsService(store).Validate())
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())
	assert.Equal(t, domain.DefaultSettings(), service.GetDefaults())
}

func TestSettingsService_DisplayValue(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("wiki.access_token", "secret")
	_ = store.Set("queue.redis_password", "")
	_ = store.Set("wiki.transient_codes", []string{"maxlag", "readonly"})
	_ = store.Set("worker.max_edit_count", 7)
	service := NewSettingsService(store)

	assert.Equal(t, "********", service.DisplayValue("wiki.access_token"))
	assert.Equal(t, "", service.DisplayValue("queue.redis_password"))
	assert.Equal(t, "maxlag,readonly", service.DisplayValue("wiki.transient_codes"))
	assert.Equal(t, "7", service.DisplayValue("worker.max_edit_count"))
	assert.Equal(t, "", service.DisplayValue("queue.key"))
}

func TestSettingsService_Path(t *testing.T) {
	store := memory.NewConfigStore()
	assert.Equal(t, store.Path(), NewSettingsService(store).Path())
}
