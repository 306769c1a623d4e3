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

func setupEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CLASSIFIER_PROVIDER", "keyword")
	t.Setenv("CATEGORY_PROFILES_PATH", "")
	return filepath.Join(t.TempDir(), "ctl.db")
}

func TestRun_AccountLifecycle(t *testing.T) {
	db := setupEnv(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"create-parent", "--db-path", db, "--email", "Ana@Example.com", "--password", "s3cret"}, &out))
	parentID := strings.TrimSpace(out.String())
	assert.Len(t, parentID, 36)

	out.Reset()
	err := run(ctx, []string{"create-parent", "--db-path", db, "--email", "ana@example.com", "--password", "other"}, &out)
	assert.ErrorContains(t, err, "already exists")

	out.Reset()
	require.NoError(t, run(ctx, []string{"create-child", "--db-path", db, "--email", "ana@example.com", "--name", "Sam"}, &out))
	childID := strings.TrimSpace(out.String())

	out.Reset()
	require.NoError(t, run(ctx, []string{"list-children", "--db-path", db, "--email", "ana@example.com"}, &out))
	assert.Contains(t, out.String(), childID)
	assert.Contains(t, out.String(), "Sam")

	err = run(ctx, []string{"list-children", "--db-path", db, "--email", "nobody@example.com"}, &out)
	assert.ErrorContains(t, err, "no parent")
}

func TestRun_Reclassify(t *testing.T) {
	db := setupEnv(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"reclassify", "--db-path", db, "--domain", "https://www.megacasino.example/"}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "megacasino.example\t"), out.String())
}

func TestRun_Usage(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer
	assert.Error(t, run(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "usage: parentctl")

	out.Reset()
	assert.ErrorContains(t, run(context.Background(), []string{"frobnicate", "--db-path", filepath.Join(t.TempDir(), "x.db")}, &out), "unknown command")
	assert.ErrorContains(t, run(context.Background(), []string{"create-child", "--db-path", filepath.Join(t.TempDir(), "y.db"), "--email", "a@b.c"}, &out), "--name")
}
