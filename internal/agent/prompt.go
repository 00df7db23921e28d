package agent

import "fmt"

// DefaultInstruction is used when the agent is run without an instruction.
const DefaultInstruction = "I want to add these sentences to the database : 'The weather is nice today', " +
	"'I enjoy reading science fiction books'. What is the closest sentence that you have to " +
	"'I love reading fantasy novels'?"

const promptTemplate = `You have two tools: add_documents and search_documents.
Analyze this user query: %q.
- If the user wants to add sentences, extract them in a JSON format: {"action": "add", "sentences": ["sentence1", "sentence2"]}.
- If the user wants to search, return: {"action": "search", "query": "search phrase"}.
- If both, return: {"action": "both", "sentences": ["sentence1"], "query": "search phrase"}.
Only return JSON format, nothing else.`

// BuildPrompt returns the classification prompt for instruction.
func BuildPrompt(instruction string) string {
	return fmt.Sprintf(promptTemplate, instruction)
}
