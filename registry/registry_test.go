package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/devine-os/kern-acceptor/types"
)

type stubCheck struct {
	meta types.CheckMetadata
	err  error
}

func (s *stubCheck) Metadata() types.CheckMetadata { return s.meta }
func (s *stubCheck) Run(ctx context.Context) error { return s.err }

func newStub(id string) *stubCheck {
	return &stubCheck{meta: types.CheckMetadata{ID: id, Name: id, Kind: types.CheckKindLogical}}
}

func writeSuiteFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func checkIDs(r *Registry) []string {
	var ids []string
	for _, chk := range r.Checks() {
		ids = append(ids, chk.Metadata().ID)
	}
	return ids
}

func TestNewRegistry_RequiresChecks(t *testing.T) {
	_, err := NewRegistry(Config{Log: zaptest.NewLogger(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one check")
}

func TestNewRegistry_RejectsEmptyID(t *testing.T) {
	_, err := NewRegistry(Config{
		Log:    zaptest.NewLogger(t),
		Checks: []Check{&stubCheck{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty ID")
}

func TestNewRegistry_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewRegistry(Config{
		Log:    zaptest.NewLogger(t),
		Checks: []Check{newStub("boot"), newStub("boot")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate check ID")
}

func TestNewRegistry_PreservesRegistrationOrder(t *testing.T) {
	r, err := NewRegistry(Config{
		Log:    zaptest.NewLogger(t),
		Checks: []Check{newStub("a"), newStub("b"), newStub("c")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, checkIDs(r))
	assert.Equal(t, 3, r.Len())
}

func TestSuiteFile_SelectsAndOrders(t *testing.T) {
	path := writeSuiteFile(t, `
suite: smoke
checks:
  - id: c
  - id: a
`)
	r, err := NewRegistry(Config{
		Log:       zaptest.NewLogger(t),
		Checks:    []Check{newStub("a"), newStub("b"), newStub("c")},
		SuiteFile: path,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, checkIDs(r))

	for _, chk := range r.Checks() {
		assert.Equal(t, "smoke", chk.Metadata().Suite)
	}
}

func TestSuiteFile_DisablesChecks(t *testing.T) {
	path := writeSuiteFile(t, `
checks:
  - id: a
  - id: b
    disabled: true
`)
	r, err := NewRegistry(Config{
		Log:       zaptest.NewLogger(t),
		Checks:    []Check{newStub("a"), newStub("b")},
		SuiteFile: path,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, checkIDs(r))
}

func TestSuiteFile_OverridesTimeout(t *testing.T) {
	path := writeSuiteFile(t, `
checks:
  - id: a
    timeout: 90s
  - id: b
`)
	r, err := NewRegistry(Config{
		Log:            zaptest.NewLogger(t),
		Checks:         []Check{newStub("a"), newStub("b")},
		SuiteFile:      path,
		DefaultTimeout: 2 * time.Minute,
	})
	require.NoError(t, err)

	checks := r.Checks()
	assert.Equal(t, 90*time.Second, checks[0].Metadata().Timeout)
	assert.Equal(t, 2*time.Minute, checks[1].Metadata().Timeout)
}

func TestSuiteFile_UnknownIDIsError(t *testing.T) {
	path := writeSuiteFile(t, `
checks:
  - id: no-such-check
`)
	_, err := NewRegistry(Config{
		Log:       zaptest.NewLogger(t),
		Checks:    []Check{newStub("a")},
		SuiteFile: path,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown check")
}

func TestSuiteFile_AllDisabledIsError(t *testing.T) {
	path := writeSuiteFile(t, `
checks:
  - id: a
    disabled: true
`)
	_, err := NewRegistry(Config{
		Log:       zaptest.NewLogger(t),
		Checks:    []Check{newStub("a")},
		SuiteFile: path,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disables every check")
}

func TestSuiteFile_EmptyFallsBackToDefaults(t *testing.T) {
	path := writeSuiteFile(t, "suite: smoke\n")
	r, err := NewRegistry(Config{
		Log:       zaptest.NewLogger(t),
		Checks:    []Check{newStub("a"), newStub("b")},
		SuiteFile: path,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, checkIDs(r))
}

func TestSuiteFile_Missing(t *testing.T) {
	_, err := NewRegistry(Config{
		Log:       zaptest.NewLogger(t),
		Checks:    []Check{newStub("a")},
		SuiteFile: filepath.Join(t.TempDir(), "nope.yaml"),
	})
	require.Error(t, err)
}

func TestDefaultTimeout_AppliedWhereUnset(t *testing.T) {
	withTimeout := newStub("slow")
	withTimeout.meta.Timeout = time.Minute

	r, err := NewRegistry(Config{
		Log:            zaptest.NewLogger(t),
		Checks:         []Check{newStub("a"), withTimeout},
		DefaultTimeout: 30 * time.Second,
	})
	require.NoError(t, err)

	checks := r.Checks()
	assert.Equal(t, 30*time.Second, checks[0].Metadata().Timeout)
	assert.Equal(t, time.Minute, checks[1].Metadata().Timeout)
}
