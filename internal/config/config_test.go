package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSourcesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSources(t *testing.T) {
	t.Run("Valid file", func(t *testing.T) {
		path := writeSourcesFile(t, `{
			"categories": [
				{"code": "apartment_block_1r", "name": "Blocks of flats, one room"},
				{"code": "terraced_house", "name": "Terraced houses"}
			],
			"sources": [
				{
					"name": "statfi",
					"table_url": "https://statfin.example/api/table/13mq",
					"mappings": [
						{"source_code": "1", "source_label": "Kerrostalo yksiöt", "canonical_code": "apartment_block_1r"},
						{"source_code": "4", "source_label": "Rivitalot", "canonical_code": "terraced_house"}
					]
				}
			]
		}`)

		sources, err := LoadSources(path)
		require.NoError(t, err)
		require.Len(t, sources.Sources, 1)
		assert.Equal(t, "statfi", sources.Sources[0].Name)
		assert.Len(t, sources.Sources[0].Mappings, 2)
		assert.Equal(t, "apartment_block_1r", sources.Sources[0].Mappings[0].CanonicalCode)
		require.Len(t, sources.Categories, 2)
	})

	t.Run("Empty mapping list is allowed", func(t *testing.T) {
		path := writeSourcesFile(t, `{"sources": [{"name": "statfi", "table_url": "https://example/t", "mappings": []}]}`)
		sources, err := LoadSources(path)
		require.NoError(t, err)
		assert.Empty(t, sources.Sources[0].Mappings)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadSources(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read sources file")
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		path := writeSourcesFile(t, "{not json")
		_, err := LoadSources(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse sources file")
	})

	t.Run("Source without name", func(t *testing.T) {
		path := writeSourcesFile(t, `{"sources": [{"table_url": "https://example/t"}]}`)
		_, err := LoadSources(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no name")
	})

	t.Run("Source without table_url", func(t *testing.T) {
		path := writeSourcesFile(t, `{"sources": [{"name": "statfi"}]}`)
		_, err := LoadSources(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no table_url")
	})

	t.Run("Mapping without canonical code", func(t *testing.T) {
		path := writeSourcesFile(t, `{"sources": [{"name": "statfi", "table_url": "https://example/t",
			"mappings": [{"source_code": "1"}]}]}`)
		_, err := LoadSources(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing source_code or canonical_code")
	})
}

func TestConfigDSN(t *testing.T) {
	c := Config{
		DBHost: "db.internal", DBPort: "5433", DBUser: "app",
		DBPassword: "secret", DBName: "housing",
	}
	assert.Equal(t,
		"host=db.internal user=app password=secret dbname=housing port=5433 sslmode=disable TimeZone=UTC",
		c.DSN())
}
