package quiz

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"mlassistant/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// Catalog is the read-only list of discussion topics quizzes are built from.
// It is safe for concurrent use because nothing mutates it after construction.
type Catalog struct {
	topics []models.Topic
}

func NewCatalog(topics []models.Topic) *Catalog {
	copied := make([]models.Topic, len(topics))
	copy(copied, topics)
	return &Catalog{topics: copied}
}

// LoadCatalog reads a JSON array of {"id", "question"} records.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic catalog %s: %w", path, err)
	}

	var topics []models.Topic
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("failed to parse topic catalog %s: %w", path, err)
	}

	for i, topic := range topics {
		if strings.TrimSpace(topic.ID) == "" {
			return nil, fmt.Errorf("topic %d in %s has no id", i, path)
		}
	}

	return NewCatalog(topics), nil
}

func (c *Catalog) Len() int {
	return len(c.topics)
}

// Topics returns a copy of the catalog in file order.
func (c *Catalog) Topics() []models.Topic {
	return c.ByChapter("")
}

// ByChapter keeps topics whose id starts with chapter, in catalog order. Chapter "1" matches
// both "1" and "1.3". An empty chapter keeps everything.
func (c *Catalog) ByChapter(chapter string) []models.Topic {
	return lo.Filter(c.topics, func(topic models.Topic, _ int) bool {
		return strings.HasPrefix(topic.ID, chapter)
	})
}

// Search ranks topics whose question fuzzily contains term, closest match first.
func (c *Catalog) Search(term string) []models.Topic {
	questions := lo.Map(c.topics, func(topic models.Topic, _ int) string {
		return topic.Question
	})

	ranks := fuzzy.RankFindFold(term, questions)
	sort.Stable(ranks)

	return lo.Map([]fuzzy.Rank(ranks), func(rank fuzzy.Rank, _ int) models.Topic {
		return c.topics[rank.OriginalIndex]
	})
}
