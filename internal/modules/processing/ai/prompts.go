package ai

import "fmt"

const systemPrompt = "You are an assistant helping to draft responses to comments in a document. " +
	"Provide concise, constructive responses that address the comment directly."

func buildUserPrompt(commentText, contextExcerpt string) string {
	return fmt.Sprintf(
		"Document context: %s\n\nComment: %s\n\nPlease draft a response to this comment that is professional, helpful, and addresses the comment directly.",
		contextExcerpt, commentText,
	)
}
