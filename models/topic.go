package models

// Topic is one quiz seed from the course catalog. ID is a chapter or chapter.section string.
type Topic struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}
