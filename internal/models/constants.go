package models

const (
	// NoResultsAnswer is returned when the index has nothing relevant.
	NoResultsAnswer = "No relevant documents were found to answer your question. Please try rephrasing your query or verify that documents related to the topic exist."

	// ProcessingErrorAnswer is returned when retrieval fails internally.
	ProcessingErrorAnswer = "Sorry, an error occurred processing your question. Please try again later."

	// DefaultSystemPrompt instructs the model to answer from context only.
	DefaultSystemPrompt = `Based on the following document information, answer the user's question clearly and precisely.

INSTRUCTIONS:
- Use only the information provided in the context
- If the information is not sufficient, say so clearly
- Be concise but complete in your answer
- If there are multiple sources, you may mention them with their pages
- Keep a professional and helpful tone`

	// ResumePromptTemplate asks for a terse paraphrase of a question.
	ResumePromptTemplate = "Summarize the following question in at most 5 words. Answer only with the summary and nothing else.\n\nQuestion: %s"
)
