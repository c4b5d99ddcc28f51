package sqlagent

import (
	"encoding/json"
	"regexp"
	"strings"
)

const SystemPrompt = "You are a SQL expert. Generate SQL queries based on natural language questions and database schema context."

// BuildPrompt renders the user turn sent to the model.
func BuildPrompt(question string, schemas []TableSchema) string {
	if schemas == nil {
		schemas = []TableSchema{}
	}
	b, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		b = []byte("[]")
	}
	var sb strings.Builder
	sb.WriteString("Table Schemas:\n")
	sb.Write(b)
	sb.WriteString("\n\nNatural Language Query:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nGenerate a SQL query that answers this question. Return only the SQL.")
	return sb.String()
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")

// ExtractSQL returns the body of the first fenced code block, or the whole
// text when there is none, trimmed.
func ExtractSQL(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(text), "`"))
}
