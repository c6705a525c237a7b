package main

import (
	"errors"
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/quickie-platform/migrations"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

type fakeMigrator struct {
	upErr    error
	steps    []int
	forced   []int
	version  uint
	dirty    bool
	verErr   error
	upCalled int
}

func (f *fakeMigrator) Up() error                    { f.upCalled++; return f.upErr }
func (f *fakeMigrator) Steps(n int) error            { f.steps = append(f.steps, n); return nil }
func (f *fakeMigrator) Force(v int) error            { f.forced = append(f.forced, v); return nil }
func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, f.verErr }

func quietLogger() *logging.Logger {
	return logging.NewWithOptions(logging.Options{Level: "error", Output: io.Discard})
}

func TestRunDefaultsToUpAndIgnoresNoChange(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	require.NoError(t, run(m, nil, quietLogger()))
	assert.Equal(t, 1, m.upCalled)
}

func TestRunUpFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("boom")}
	err := run(m, []string{"up"}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate up")
}

func TestRunDownDefaultsToOneStep(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, run(m, []string{"down"}, quietLogger()))
	require.NoError(t, run(m, []string{"down", "2"}, quietLogger()))
	assert.Equal(t, []int{-1, -2}, m.steps)
}

func TestRunForceRequiresVersion(t *testing.T) {
	m := &fakeMigrator{}
	require.Error(t, run(m, []string{"force"}, quietLogger()))
	require.Error(t, run(m, []string{"force", "x"}, quietLogger()))
	require.NoError(t, run(m, []string{"force", "2"}, quietLogger()))
	assert.Equal(t, []int{2}, m.forced)
}

func TestRunVersionWithoutMigrations(t *testing.T) {
	m := &fakeMigrator{verErr: migrate.ErrNilVersion}
	require.NoError(t, run(m, []string{"version"}, quietLogger()))
}

func TestRunUnknownCommand(t *testing.T) {
	require.Error(t, run(&fakeMigrator{}, []string{"sideways"}, quietLogger()))
}

func TestEmbeddedMigrationsPaired(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	for _, base := range []string{"000001_site_schema", "000002_table_changes"} {
		assert.True(t, names[base+".up.sql"], base+" up")
		assert.True(t, names[base+".down.sql"], base+" down")
	}
}
