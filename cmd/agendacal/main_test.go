package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendacal/internal/config"
	"agendacal/internal/model"
)

func TestFeedsFromConfig(t *testing.T) {
	feeds := feedsFromConfig([]config.ICSConfig{
		{ID: "team", URL: "https://example.com/team.ics", Color: "teal"},
		{Name: "Congés", URL: "./conges.ics"},
		{ID: "empty"},
	})
	require.Len(t, feeds, 2)
	assert.Equal(t, "team", feeds[0].ID)
	assert.Equal(t, model.ColorTeal, feeds[0].Color)
	assert.Equal(t, "Congés", feeds[1].ID)
}

func TestRunOncePrintsAgendaAndExports(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.Timezone = "UTC"

	a, err := newApp(cfg)
	require.NoError(t, err)

	var out bytes.Buffer
	icsPath := filepath.Join(dir, "week.ics")
	require.NoError(t, a.runOnce(context.Background(), &out, "14/04 - 20/04", icsPath))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Semaine 14/04 - 20/04 (2025-04-14)"))
	assert.Contains(t, text, "Lundi 14/04")
	assert.Contains(t, text, "09:00-10:00  Réunion d'équipe @ Salle A [users]")
	assert.Contains(t, text, "Samedi 19/04\n  -")

	data, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(string(data), "BEGIN:VEVENT"))
}

func TestNewAppRejectsMissingDirectory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Directory = filepath.Join(t.TempDir(), "absent.yaml")
	_, err := newApp(cfg)
	assert.Error(t, err)
}
