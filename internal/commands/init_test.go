package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountsCSV "github.com/cleared-dev/ucto/internal/accounts"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "ucto-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "ucto")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/ucto")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runUcto(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, err := runUcto(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	expectedDirs := []string{
		"accounts",
		"logs",
		"journal",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	_, err = os.Stat(filepath.Join(dir, "ucto.db"))
	require.NoError(t, err, "database should exist")
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runUcto(t, "init", dir, "--name", "My Company", "--year", "2025")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "ucto.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "id: my-company")
	assert.Contains(t, contents, "name: My Company")
	assert.Contains(t, contents, "entity_type: sro")
	assert.Contains(t, contents, "year: 2025")
}

func TestInit_Accounts(t *testing.T) {
	dir := t.TempDir()
	_, err := runUcto(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	path := filepath.Join(dir, "accounts", "chart-of-accounts.csv")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	accts, err := accountsCSV.ReadAccounts(f)
	require.NoError(t, err)
	assert.Len(t, accts, 17, "default s.r.o. chart has 17 accounts")
}

func TestInit_Gitignore(t *testing.T) {
	dir := t.TempDir()
	_, err := runUcto(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	contents := string(data)

	for _, pattern := range []string{"ucto.db", ".env"} {
		assert.Contains(t, contents, pattern, ".gitignore should contain %s", pattern)
	}
}

func TestInit_RequiresName(t *testing.T) {
	dir := t.TempDir()
	_, err := runUcto(t, "init", dir)
	require.Error(t, err, "init without --name should fail")
}

func TestLock_ThroughBinary(t *testing.T) {
	dir := t.TempDir()
	_, err := runUcto(t, "init", dir, "--name", "Test Biz", "--company", "biz")
	require.NoError(t, err)

	out, err := runUcto(t, "lock", "2025-01", "--repo", dir, "--user", "anna")
	require.NoError(t, err, out)
	assert.Contains(t, out, "CLOSE_LOCK_CONSEQUENCE")
	assert.Contains(t, out, "Locked 2025-01")

	out, err = runUcto(t, "lock", "2025-01", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "CLOSE_ALREADY_LOCKED")

	out, err = runUcto(t, "unlock", "2025-01", "--repo", dir)
	require.NoError(t, err, out)
}

func TestMetricsFile(t *testing.T) {
	dir := t.TempDir()
	_, err := runUcto(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	metricsPath := filepath.Join(dir, "metrics.prom")
	out, err := runUcto(t, "lock", "2025-02", "--repo", dir, "--metrics-file", metricsPath)
	require.NoError(t, err, out)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ucto_validations_total{entity="period_closing",outcome="valid"} 1`)
}
