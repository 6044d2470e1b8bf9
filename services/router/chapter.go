package router

import "regexp"

// Dotted form first so "2.5" wins over "2" at the same position.
var chapterPattern = regexp.MustCompile(`\b(\d+\.\d+|\d+)\b`)

// ExtractChapter returns the first chapter or chapter.section numeral in text.
func ExtractChapter(text string) (string, bool) {
	match := chapterPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}
