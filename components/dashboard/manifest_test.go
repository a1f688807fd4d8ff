package dashboard

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
version: "1"
name: ops-pack
dashboards:
  - id: ops-overview
    title: Ops Overview
    description: Service health at a glance.
    time_restore: true
    time_from: now-24h
    time_to: now
    query:
      query: "service:api"
      language: kuery
    panels:
      - panel_index: "1"
        type: visualization
        id: vis-latency
        embeddable_config: {}
        grid_data: {x: 0, y: 0, w: 24, h: 15, i: "1"}
  - id: empty
    title: Empty
`

func TestDecodeManifest(t *testing.T) {
	doc, err := DecodeManifest(strings.NewReader(sampleManifest))
	require.NoError(t, err)
	require.Len(t, doc.Dashboards, 2)

	ops := doc.Dashboards[0].Serialized()
	assert.Equal(t, "ops-overview", ops.ID)
	assert.Equal(t, "now-24h", ops.TimeFrom)
	assert.Equal(t, Query{Query: "service:api", Language: "kuery"}, ops.Query)
	require.Len(t, ops.Panels, 1)
	assert.Equal(t, GridData{W: 24, H: 15, I: "1"}, ops.Panels[0].GridData)
	assert.True(t, ops.Options.UseMargins)

	empty := doc.Dashboards[1].Serialized()
	assert.NotNil(t, empty.Panels)
	assert.Equal(t, DefaultQueryLanguage, empty.Query.Language)
	assert.Equal(t, "", empty.TimeFrom)
}

func TestDecodeManifestRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"version":   "version: \"2\"\ndashboards: []\n",
		"unknown":   "version: \"1\"\nwidgets: []\n",
		"id":        "dashboards:\n  - title: x\n",
		"title":     "dashboards:\n  - id: x\n",
		"duplicate": "dashboards:\n  - {id: a, title: A}\n  - {id: a, title: B}\n",
		"panel":     "dashboards:\n  - id: a\n    title: A\n    panels:\n      - type: visualization\n",
	}
	for name, payload := range cases {
		_, err := DecodeManifest(strings.NewReader(payload))
		assert.Errorf(t, err, "case %s expected error", name)
	}
	_, err := DecodeManifest(strings.NewReader(""))
	require.ErrorContains(t, err, "empty")
}

func TestReadManifestAndEncode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o600))
	doc, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)

	var buf bytes.Buffer
	require.NoError(t, EncodeManifest(&buf, doc))
	again, err := DecodeManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc.Dashboards, again.Dashboards)
}

func TestSeedDashboards(t *testing.T) {
	doc, err := DecodeManifest(strings.NewReader(sampleManifest))
	require.NoError(t, err)
	loader := NewInMemoryLoader()
	ids, err := SeedDashboards(context.Background(), loader, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"ops-overview", "empty"}, ids)

	saved, err := loader.Get(context.Background(), "ops-overview")
	require.NoError(t, err)
	serialized, err := ConvertToSerialized(saved)
	require.NoError(t, err)
	assert.Equal(t, "Ops Overview", serialized.Title)
	assert.Len(t, serialized.Panels, 1)

	_, err = SeedDashboards(context.Background(), nil, doc)
	require.Error(t, err)
}
