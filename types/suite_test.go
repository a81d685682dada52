package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSuiteConfig_Unmarshal(t *testing.T) {
	raw := `
suite: devine-smoke
checks:
  - id: interrupt-handling
    timeout: 60s
  - id: vfs-operations
    disabled: true
  - id: task-scheduler
`
	var cfg SuiteConfig
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "devine-smoke", cfg.Suite)
	require.Len(t, cfg.Checks, 3)

	assert.Equal(t, "interrupt-handling", cfg.Checks[0].ID)
	require.NotNil(t, cfg.Checks[0].Timeout)
	assert.Equal(t, time.Minute, cfg.Checks[0].Timeout.Std())

	assert.True(t, cfg.Checks[1].Disabled)
	assert.Nil(t, cfg.Checks[1].Timeout)

	assert.False(t, cfg.Checks[2].Disabled)
}

func TestDuration_UnmarshalForms(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Std())

	require.NoError(t, yaml.Unmarshal([]byte(`5000000000`), &d))
	assert.Equal(t, 5*time.Second, d.Std())

	err := yaml.Unmarshal([]byte(`"not-a-duration"`), &d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}
