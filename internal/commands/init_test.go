package commands_test

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbooks/clinicbooks/internal/accounts"
	"github.com/clinicbooks/clinicbooks/internal/commands"
	"github.com/clinicbooks/clinicbooks/internal/config"
	"github.com/clinicbooks/clinicbooks/internal/tax"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out, logs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		t.Logf("stderr:\n%s", logs.String())
	}
	return out.String(), err
}

// createdID returns the id printed on the line starting with prefix.
func createdID(t *testing.T, out, prefix string) string {
	t.Helper()
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if rest, ok := strings.CutPrefix(sc.Text(), prefix); ok {
			return strings.Fields(rest)[0]
		}
	}
	t.Fatalf("no %q line in output:\n%s", prefix, out)
	return ""
}

func TestInit_CreatesPractice(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, "init", dir, "--name", "Sorriso Odontologia")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized practice")

	for _, d := range []string{"data", "logs"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "Sorriso Odontologia", cfg.Practice.Name)
	assert.Equal(t, config.DriverFile, cfg.Store.Driver)

	params, err := tax.LoadParameters(filepath.Join(dir, "tax-parameters.yaml"))
	require.NoError(t, err)
	assert.Equal(t, tax.DefaultParameters().Version, params.Version)

	f, err := os.Open(filepath.Join(dir, "data", "chart-of-accounts.csv"))
	require.NoError(t, err)
	defer f.Close()
	accts, err := accounts.ReadAccounts(f)
	require.NoError(t, err)
	assert.Len(t, accts, len(accounts.DefaultChart("clinic-1")))
}

func TestInit_ClinicID(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "init", dir, "--name", "Sorriso", "--clinic-id", "centro")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "clinic_id: centro")

	f, err := os.Open(filepath.Join(dir, "data", "chart-of-accounts.csv"))
	require.NoError(t, err)
	defer f.Close()
	accts, err := accounts.ReadAccounts(f)
	require.NoError(t, err)
	require.NotEmpty(t, accts)
	for _, a := range accts {
		assert.Equal(t, "centro", a.ClinicID)
	}
}

func TestInit_RequiresName(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "init", dir)
	require.Error(t, err, "init without --name should fail")
}

func TestInit_RefusesExistingPractice(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "init", dir, "--name", "Sorriso")
	require.NoError(t, err)

	_, err = runCLI(t, "init", dir, "--name", "Sorriso")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "commit:")
}
