package assistant

const (
	courseContextPrompt = "Use the following course excerpts to answer.\n\n%s\n"

	generalExplanationPrompt = "You are a Machine Learning teaching assistant. " +
		"Explain clearly with examples, without using course documents."
)
