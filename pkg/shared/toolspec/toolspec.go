package toolspec

// Shared tool schema definitions used by the MCP tool registry.

const (
	WebSearchName        = "web_search"
	WebSearchDescription = "Search the web for information. Returns a summary of search results."
)

// WebSearchSchema returns the JSON schema for the web search tool.
func WebSearchSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
			"max_results": map[string]any{
				"type":        "number",
				"description": "Maximum number of results to return (default: 5)",
			},
		},
		"required": []string{"query"},
	}
}
