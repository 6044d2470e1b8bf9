package router

const classifierSystemPrompt = `Classify the user's message strictly as one of:
- rag_query   (asks about course documents/slides)
- general_explanation   (asks for ML explanation)

Respond with EXACTLY one label, no numbering, no punctuation.`

var quizKeywords = []string{"quiz", "questions", "test me", "practice", "exam"}
