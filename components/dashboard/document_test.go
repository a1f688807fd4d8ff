package dashboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSavedDashboardDefaults(t *testing.T) {
	fresh := NewSavedDashboard("")
	assert.Equal(t, "[]", fresh.PanelsJSON)
	assert.JSONEq(t, `{"useMargins":true,"hidePanelTitles":false}`, fresh.OptionsJSON)
	assert.Equal(t, 1, fresh.Version)
	assert.False(t, fresh.TimeRestore)

	existing := NewSavedDashboard("abc")
	assert.JSONEq(t, `{"useMargins":false,"hidePanelTitles":false}`, existing.OptionsJSON)
}

func TestConvertRoundTrip(t *testing.T) {
	in := sampleSerialized()
	doc, err := ConvertFromSerialized(in)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Contains(t, doc.PanelsJSON, `"panelIndex":"1"`)

	out, err := ConvertToSerialized(doc)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Panels[0].GridData, out.Panels[0].GridData)
	assert.Equal(t, in.Query, out.Query)
	assert.Equal(t, in.Options, out.Options)
	assert.Equal(t, in.Filters[0].Meta.Key, out.Filters[0].Meta.Key)
	assert.Equal(t, in.RefreshInterval, out.RefreshInterval)
}

func TestConvertRoundTripPanelWithoutConfig(t *testing.T) {
	in := SerializedDashboard{
		ID:     "bare-panel",
		Title:  "Bare",
		Panels: []Panel{{PanelIndex: "1", Type: "visualization", GridData: GridData{W: 4, H: 4, I: "1"}}},
	}
	doc, err := ConvertFromSerialized(in)
	require.NoError(t, err)
	assert.Contains(t, doc.PanelsJSON, `"embeddableConfig":{}`)
	assert.Nil(t, in.Panels[0].EmbeddableConfig)

	out, err := ConvertToSerialized(doc)
	require.NoError(t, err)
	require.Len(t, out.Panels, 1)
	assert.Equal(t, map[string]any{}, out.Panels[0].EmbeddableConfig)

	legacy, err := ConvertToSerialized(&SavedDashboard{
		ID:         "legacy",
		PanelsJSON: `[{"panelIndex":"1","embeddableConfig":null,"gridData":{"x":0,"y":0,"w":4,"h":4}}]`,
	})
	require.NoError(t, err)
	assert.NotNil(t, legacy.Panels[0].EmbeddableConfig)
}

func TestConvertToSerializedDefaultsEmptyFields(t *testing.T) {
	out, err := ConvertToSerialized(&SavedDashboard{ID: "x", Title: "Bare"})
	require.NoError(t, err)
	assert.Empty(t, out.Panels)
	assert.NotNil(t, out.Panels)
	assert.NotNil(t, out.Filters)
	assert.NotNil(t, out.UIState)
	assert.Equal(t, Query{Language: DefaultQueryLanguage}, out.Query)
}

func TestConvertToSerializedMigratesLegacyQuery(t *testing.T) {
	out, err := ConvertToSerialized(&SavedDashboard{
		ID:               "x",
		SearchSourceJSON: `{"query":"status:200","filter":[]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, Query{Query: "status:200", Language: "kuery"}, out.Query)
}

func TestConvertToSerializedKeepsObjectQuery(t *testing.T) {
	out, err := ConvertToSerialized(&SavedDashboard{
		ID:               "dsl",
		SearchSourceJSON: `{"query":{"query":{"match_all":{}},"language":"lucene"},"filter":[]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "lucene", out.Query.Language)
	assert.Equal(t, map[string]any{"match_all": map[string]any{}}, out.Query.Query)
	assert.Equal(t, `{"match_all":{}}`, out.Query.Text())

	doc, err := ConvertFromSerialized(out)
	require.NoError(t, err)
	again, err := ConvertToSerialized(doc)
	require.NoError(t, err)
	assert.Equal(t, out.Query, again.Query)
}

func TestConvertToSerializedRejectsMalformedFields(t *testing.T) {
	cases := map[string]*SavedDashboard{
		"panelsJSON":  {PanelsJSON: `[{"panelIndex":`},
		"optionsJSON": {OptionsJSON: `{"useMargins":"yes"}`},
		"uiStateJSON": {UIStateJSON: `[1,2]`},
	}
	for field, doc := range cases {
		_, err := ConvertToSerialized(doc)
		var convErr *ConversionError
		require.Truef(t, errors.As(err, &convErr), "%s: expected ConversionError, got %v", field, err)
		assert.Equal(t, field, convErr.Field)
	}
}

func TestConvertToSerializedValidatesPanelShape(t *testing.T) {
	_, err := ConvertToSerialized(&SavedDashboard{PanelsJSON: `[{"panelIndex":"1","gridData":{"x":0,"y":0,"w":0,"h":4}}]`})
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "panelsJSON", convErr.Field)

	_, err = ConvertToSerialized(&SavedDashboard{PanelsJSON: `[{"type":"visualization"}]`})
	require.ErrorAs(t, err, &convErr)
}

func TestSavedDashboardDestroyRunsOnce(t *testing.T) {
	doc := NewSavedDashboard("abc")
	calls := 0
	doc.OnDestroy(func() { calls++ })
	doc.Destroy()
	doc.Destroy()
	assert.Equal(t, 1, calls)

	var nilDoc *SavedDashboard
	nilDoc.Destroy()

	copied := doc.Copy()
	copied.Destroy()
	assert.Equal(t, 1, calls)
}
