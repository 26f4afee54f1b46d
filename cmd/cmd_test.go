package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steadydb/internal/runner"
	"steadydb/internal/stats"
	"steadydb/internal/storage"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateFacts(t *testing.T) {
	valid := writeFile(t, "valid.json", `[{
		"Company": "Banco Exemplo S.A.", "Date": "2026-04-10", "Type": "Result Announcement",
		"Local": {"Country": "Brazil", "City": "Sao Paulo"}
	}]`)
	assert.NoError(t, validateFacts(valid))

	invalid := writeFile(t, "invalid.json", `{"Company": "", "Date": "2026-04-10", "Type": "Other", "Local": {}}`)
	assert.Error(t, validateFacts(invalid))

	malformed := writeFile(t, "malformed.json", `{"Type": "Rumour"}`)
	assert.Error(t, validateFacts(malformed))
}

func TestDisclosureValidateCommand(t *testing.T) {
	good := writeFile(t, "good.json", `{"Company": "X", "Date": "2026-01-02", "Type": "Other", "Local": {"Country": "Brazil"}}`)
	bad := writeFile(t, "bad.json", `{"Company": "X", "Date": "2026-01-02", "Type": "Other", "Local": {}}`)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"disclosure", "validate", good, bad})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.ErrorIs(t, err, errInvalidFacts)
	assert.Contains(t, out.String(), "✅ "+good)
	assert.Contains(t, out.String(), "❌ "+bad)
	assert.Contains(t, out.String(), "address country is required")
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	printHistory(&out, nil)
	assert.Contains(t, out.String(), "No runs recorded yet.")

	out.Reset()
	printHistory(&out, []storage.HistoryItem{{
		ID:        "0b7c1d1e-7f2a-4d55-9a55-3c4a1f2e9b10",
		Timestamp: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		Target:    "root@localhost:3306/bank_db",
		Config:    runner.Config{Duration: 10 * time.Second, TargetQPS: 100, Workers: 10},
		Summary:   stats.RunStats{Total: 1000, Success: 990, SuccessRate: 0.99, AchievedQPS: 99.5},
	}})
	assert.Contains(t, out.String(), "0b7c1d1e-7f2a-4d55-9a55-3c4a1f2e9b10")
	assert.Contains(t, out.String(), "root@localhost:3306/bank_db")
	assert.Contains(t, out.String(), "99.0%")
	assert.Contains(t, out.String(), "99.50")
}

func TestLoadQueries(t *testing.T) {
	queries, err := loadQueries("", "ACCOUNTS")
	require.NoError(t, err)
	require.Len(t, queries, 4)
	assert.Contains(t, queries[0], "`ACCOUNTS`")

	path := writeFile(t, "q.sql", "SELECT 1\n")
	queries, err = loadQueries(path, "ignored")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1"}, queries)
}
