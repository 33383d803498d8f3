package document

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentValue(t *testing.T) {
	doc := New(map[string]string{
		"last_name":  "Doe",
		"first_name": "N/A",
		"gender":     "",
	})

	v, ok := doc.Value("last_name")
	assert.True(t, ok)
	assert.Equal(t, "Doe", v)

	_, ok = doc.Value("first_name")
	assert.False(t, ok, "N/A must read as absent")

	_, ok = doc.Value("gender")
	assert.False(t, ok, "empty must read as absent")

	_, ok = doc.Value("missing")
	assert.False(t, ok)

	raw, ok := doc.Raw("first_name")
	assert.True(t, ok)
	assert.Equal(t, "N/A", raw)
}

func TestNewCopiesInput(t *testing.T) {
	src := map[string]string{"city": "Los Angeles"}
	doc := New(src)
	src["city"] = "Boston"

	v, _ := doc.Value("city")
	assert.Equal(t, "Los Angeles", v)
}

func TestZeroDocument(t *testing.T) {
	var doc Document
	_, ok := doc.Value("anything")
	assert.False(t, ok)
	assert.Equal(t, 0, doc.Len())

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(out))
}

func TestFromMapStringifies(t *testing.T) {
	doc := FromMap(map[string]interface{}{
		"attorney_zip": float64(90001),
		"ratio":        1.5,
		"verified":     true,
		"fax":          nil,
		"name":         "Jane Smith",
	})

	zip, _ := doc.Value("attorney_zip")
	assert.Equal(t, "90001", zip)
	ratio, _ := doc.Value("ratio")
	assert.Equal(t, "1.5", ratio)
	verified, _ := doc.Value("verified")
	assert.Equal(t, "true", verified)
	_, ok := doc.Raw("fax")
	assert.False(t, ok)
	assert.Equal(t, []string{"attorney_zip", "name", "ratio", "verified"}, doc.Keys())
}

func TestParse(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		doc, err := Parse([]byte(`{"last_name": "DOE", "date_of_birth": "1990-01-15"}`))
		require.NoError(t, err)
		v, _ := doc.Value("last_name")
		assert.Equal(t, "DOE", v)
	})

	t.Run("json fence", func(t *testing.T) {
		doc, err := Parse([]byte("```json\n{\"bar_number\": \"123456\"}\n```"))
		require.NoError(t, err)
		v, _ := doc.Value("bar_number")
		assert.Equal(t, "123456", v)
	})

	t.Run("bare fence", func(t *testing.T) {
		doc, err := Parse([]byte("```\n{\"city\": \"Austin\"}\n```"))
		require.NoError(t, err)
		v, _ := doc.Value("city")
		assert.Equal(t, "Austin", v)
	})

	t.Run("surrounding prose", func(t *testing.T) {
		doc, err := Parse([]byte(`Here is the data: {"gender": "Female"} hope it helps`))
		require.NoError(t, err)
		v, _ := doc.Value("gender")
		assert.Equal(t, "Female", v)
	})

	t.Run("error marker", func(t *testing.T) {
		_, err := Parse([]byte(`{"error": "API call failed: quota"}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrExtractionFailed))
		assert.Contains(t, err.Error(), "quota")
	})

	t.Run("error marker with raw response", func(t *testing.T) {
		_, err := Parse([]byte(`{"error": "Failed to parse response", "raw_response": "garbage"}`))
		assert.ErrorIs(t, err, ErrExtractionFailed)
	})

	t.Run("error key alongside data is data", func(t *testing.T) {
		doc, err := Parse([]byte(`{"error": "none", "last_name": "Doe"}`))
		require.NoError(t, err)
		v, _ := doc.Value("last_name")
		assert.Equal(t, "Doe", v)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Parse([]byte("no object here"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "passport.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"passport_number": "AB1234567"}`), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	v, _ := doc.Value("passport_number")
	assert.Equal(t, "AB1234567", v)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
