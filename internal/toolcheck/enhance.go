package toolcheck

// FailurePayload replaces an invalid or failed tool result before it is
// handed back to the model. The instruction field tells the model what it
// may and may not do with it.
type FailurePayload struct {
	Tool        string   `json:"tool"`
	Error       string   `json:"error"`
	Details     []string `json:"details,omitempty"`
	Instruction string   `json:"instruction"`
}

// NewFailurePayload builds the replacement payload for a failed tool.
func NewFailurePayload(toolName, reason string, details []string) FailurePayload {
	return FailurePayload{
		Tool:    toolName,
		Error:   reason,
		Details: details,
		Instruction: "This data failed validation and must not be used. " +
			"Tell the user plainly that the information could not be retrieved or processed. " +
			"Do not invent, estimate or repeat any figures for this part of the answer.",
	}
}

// AnnotatedPayload wraps a valid-with-warnings result with a data-quality
// note the model must surface in its answer.
type AnnotatedPayload struct {
	Data            any      `json:"data"`
	DataQualityNote string   `json:"dataQualityNote"`
	Warnings        []string `json:"warnings"`
}

// Annotate attaches the warnings of a Report to a payload.
func Annotate(result ToolResult, warnings []string) AnnotatedPayload {
	return AnnotatedPayload{
		Data:     result,
		Warnings: warnings,
		DataQualityNote: "This data has quality warnings. Mention the relevant " +
			"limitation to the user when citing it.",
	}
}
