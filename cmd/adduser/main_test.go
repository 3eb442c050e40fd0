package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCreatesUser(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "users.db"))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-email", "Ana@Example.com", "-name", "Ana"},
		strings.NewReader("s3cret\n"), &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.Contains(t, stdout.String(), "User ana@example.com created successfully")

	err = run(context.Background(), []string{"-email", "ana@example.com", "-password", "other"},
		strings.NewReader(""), &stdout, &stderr)
	assert.ErrorContains(t, err, "already registered")
}

func TestRunValidatesInput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr)
	assert.ErrorContains(t, err, "missing required flags")

	err = run(context.Background(), []string{"-email", "a@b.c"}, strings.NewReader("   \n"), &stdout, &stderr)
	assert.ErrorContains(t, err, "password cannot be empty")

	t.Setenv("DATA_BACKEND", "memory")
	err = run(context.Background(), []string{"-email", "a@b.c", "-password", "pw"}, strings.NewReader(""), &stdout, &stderr)
	assert.ErrorContains(t, err, "does not persist")
}
