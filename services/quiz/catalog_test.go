package quiz

import (
	"os"
	"path/filepath"
	"testing"

	"mlassistant/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "1.1", "question": "What is a model?"},
		{"id": "1.2", "question": "What is a loss function?"}
	]`), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())
	assert.Equal(t, models.Topic{ID: "1.2", Question: "What is a loss function?"}, catalog.Topics()[1])
}

func TestLoadCatalog_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCatalog(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read topic catalog")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id": "1"}`), 0o600))
	_, err = LoadCatalog(bad)
	assert.ErrorContains(t, err, "failed to parse topic catalog")

	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`[{"id": "", "question": "?"}]`), 0o600))
	_, err = LoadCatalog(noID)
	assert.ErrorContains(t, err, "has no id")
}

func TestLoadCatalog_ShippedCatalog(t *testing.T) {
	catalog, err := LoadCatalog(filepath.Join("..", "..", "course_materials", "discussion_topics.json"))
	require.NoError(t, err)
	assert.Greater(t, catalog.Len(), 0)
}

func TestCatalog_IsImmutable(t *testing.T) {
	topics := []models.Topic{{ID: "1.1", Question: "a"}}
	catalog := NewCatalog(topics)
	topics[0].ID = "changed"

	returned := catalog.Topics()
	returned[0].ID = "also changed"

	assert.Equal(t, "1.1", catalog.Topics()[0].ID)
}

func TestCatalog_ByChapter(t *testing.T) {
	catalog := NewCatalog([]models.Topic{
		{ID: "1", Question: "intro"},
		{ID: "1.3", Question: "a"},
		{ID: "10.1", Question: "b"},
		{ID: "2.1", Question: "c"},
	})

	assert.Equal(t, []string{"1", "1.3", "10.1"}, ids(catalog.ByChapter("1")), "prefix match includes 10.1")
	assert.Equal(t, []string{"2.1"}, ids(catalog.ByChapter("2")))
	assert.Empty(t, catalog.ByChapter("9"))
	assert.Len(t, catalog.ByChapter(""), 4)
}

func TestCatalog_Search(t *testing.T) {
	catalog := NewCatalog([]models.Topic{
		{ID: "1.1", Question: "What is supervised learning?"},
		{ID: "2.1", Question: "How does gradient descent work?"},
		{ID: "3.1", Question: "Describe regularization."},
	})

	got := catalog.Search("gradient")
	require.Len(t, got, 1)
	assert.Equal(t, "2.1", got[0].ID)

	assert.Empty(t, catalog.Search("transformer"))
}
