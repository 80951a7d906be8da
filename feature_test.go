package stacsync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureID(t *testing.T) {
	t.Run("document", func(t *testing.T) {
		f, err := ParseFeature([]byte(`{"type":"Feature","id":"scene-001","properties":{}}`))
		require.NoError(t, err)
		id, err := f.ID()
		require.NoError(t, err)
		assert.Equal(t, "scene-001", id)
		_, ok := f.Document()
		assert.True(t, ok)
		assert.Equal(t, "item scene-001", f.String())
	})

	t.Run("bare identifier", func(t *testing.T) {
		f := FeatureID("scene-002")
		id, err := f.ID()
		require.NoError(t, err)
		assert.Equal(t, "scene-002", id)
		_, ok := f.Document()
		assert.False(t, ok)
		assert.Equal(t, "id scene-002", f.String())
	})

	t.Run("missing id", func(t *testing.T) {
		for _, f := range []Feature{
			{},
			FeatureID(""),
			NewFeature(map[string]any{}),
			NewFeature(map[string]any{"id": ""}),
			NewFeature(map[string]any{"id": 7}),
		} {
			_, err := f.ID()
			assert.ErrorIs(t, err, ErrMissingFeatureID)
		}
		assert.True(t, Feature{}.IsZero())
		assert.Equal(t, "<feature without id>", Feature{}.String())
	})
}

func TestParseFeatureErrors(t *testing.T) {
	for _, in := range []string{``, `[]`, `"id"`, `null`, `{`} {
		_, err := ParseFeature([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestFeatureMarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewFeature(map[string]any{"id": "a"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a"}`, string(data))

	data, err = json.Marshal(FeatureID("b"))
	require.NoError(t, err)
	assert.JSONEq(t, `"b"`, string(data))
}

func TestEndpointPath(t *testing.T) {
	req := TransactionRequest{CollectionID: "sentinel2", Feature: FeatureID("x")}
	assert.Equal(t, "http://cat/collections/sentinel2/items/", req.EndpointPath("http://cat"))
	assert.Equal(t, "http://cat/api/collections/sentinel2/items/", req.EndpointPath("http://cat/api/"))

	req.CatalogURL = "https://other"
	assert.Equal(t, "https://other/collections/sentinel2/items/", req.EndpointPath("http://cat"))

	id, err := req.FeatureID()
	require.NoError(t, err)
	assert.Equal(t, "x", id)
}
