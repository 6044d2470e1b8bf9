package docindex

import (
	"fmt"
	"regexp"
	"strings"
)

const untitledHeading = "Document Content"

var headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

type Chunk struct {
	ID          string
	Source      string
	ChunkIndex  int
	Heading     string
	HeadingPath []string // parent headings leading to this chunk, outermost first
	Content     string
}

// IDPrefix is shared by every chunk ID of source, so a document can be replaced as a unit.
func IDPrefix(source string) string {
	return source + "#chunk_"
}

func chunkID(source string, index int) string {
	return fmt.Sprintf("%s%d", IDPrefix(source), index)
}

// ChunkMarkdown splits content at every markdown heading. Each chunk keeps its heading line and
// the body up to the next heading. Text before the first heading becomes its own chunk. A
// document with no headings is a single chunk.
func ChunkMarkdown(source, content string) []Chunk {
	lines := strings.Split(content, "\n")

	var chunks []Chunk
	var current strings.Builder
	var currentHeading string
	var headingStack []string

	flush := func() {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text == "" {
			return
		}
		heading := currentHeading
		if heading == "" {
			heading = untitledHeading
		}
		chunks = append(chunks, Chunk{
			ID:          chunkID(source, len(chunks)),
			Source:      source,
			ChunkIndex:  len(chunks),
			Heading:     heading,
			HeadingPath: append([]string{}, headingStack...),
			Content:     text,
		})
	}

	for _, line := range lines {
		if match := headingRegex.FindStringSubmatch(strings.TrimRight(line, "\r")); match != nil {
			flush()

			level := len(match[1])
			currentHeading = strings.TrimSpace(match[2])
			if level <= len(headingStack) {
				headingStack = headingStack[:level-1]
			}
			headingStack = append(headingStack, currentHeading)
		}
		current.WriteString(line + "\n")
	}
	flush()

	return chunks
}

// EmbeddingText is what gets embedded for a chunk: the heading path gives short sections
// enough context to be found.
func (c Chunk) EmbeddingText() string {
	if len(c.HeadingPath) == 0 {
		return c.Content
	}
	return fmt.Sprintf("Section: %s\n\n%s", strings.Join(c.HeadingPath, " → "), c.Content)
}
