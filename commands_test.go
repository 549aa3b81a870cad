package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mc.backtest/models"
)

func writeTable(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	portfolio := writeTable(t, dir, "portfolio.csv", "date,open,high,low,close,volume\n"+
		"2025-01-02,1,1,1,100,1\n2025-01-03,1,1,1,101,1\n2025-01-06,1,1,1,99.5,1\n2025-01-07,1,1,1,102,1\n")
	benchmark := writeTable(t, dir, "benchmark.csv", "date,open,high,low,close,volume\n"+
		"2025-01-02,1,1,1,50,1\n2025-01-03,1,1,1,50.3,1\n2025-01-06,1,1,1,50.1,1\n2025-01-07,1,1,1,50.8,1\n")
	rates := writeTable(t, dir, "rates.csv", "Date,1 Mo,3 Mo\n01/02/2025,4.3,4.35\n01/03/2025,4.31,4.36\n")

	out, err := execute(t, "run",
		"--portfolio", portfolio,
		"--benchmark", benchmark,
		"--risk-free", rates,
		"--simulations", "50",
		"--seed", "11",
		"--format", "json",
		"--log-level", "error",
	)
	require.NoError(t, err)

	var rep models.BacktestReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 3, rep.Portfolio.Returns)
	assert.Equal(t, models.RiskFreeSourceFile, rep.RiskFree.Source)
	assert.Equal(t, 2, rep.RiskFree.Periods)
	require.NotNil(t, rep.Sharpe)
	assert.Equal(t, uint64(11), rep.Sharpe.Seed)
	assert.True(t, rep.Beta.Valid)
	assert.True(t, rep.Alpha.Valid)
}

func TestRunCommandTextReport(t *testing.T) {
	dir := t.TempDir()
	prices := "date,open,high,low,close,volume\n2025-01-02,1,1,1,10,1\n2025-01-03,1,1,1,11,1\n2025-01-06,1,1,1,10.5,1\n"
	portfolio := writeTable(t, dir, "p.csv", prices)
	benchmark := writeTable(t, dir, "b.csv", prices)

	out, err := execute(t, "run", "--portfolio", portfolio, "--benchmark", benchmark, "--simulations", "10", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Average Daily Return:")
	assert.Contains(t, out, "Monte Carlo Average SR:")
}

func TestRunCommandErrors(t *testing.T) {
	dir := t.TempDir()
	benchmark := writeTable(t, dir, "b.csv", "date,open,high,low,close,volume\n2025-01-02,1,1,1,10,1\n")

	_, err := execute(t, "run", "--benchmark", benchmark, "--log-level", "error")
	assert.ErrorContains(t, err, "portfolio")

	_, err = execute(t, "run", "--portfolio", filepath.Join(dir, "missing.csv"), "--benchmark", benchmark, "--log-level", "error")
	assert.Error(t, err)

	_, err = execute(t, "run", "--portfolio", benchmark, "--benchmark", benchmark, "--format", "xml")
	assert.Error(t, err)
}
