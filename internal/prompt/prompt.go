package prompt

import "fmt"

const promptTemplate = `Given the following Reddit post title for an image editing request, generate a clear, concise, and effective prompt for an AI image editing model. You may use the title and image context if available.

Title: %s
Image URL: %s

Prompt:`

// BuildPrompt fills the prompt-writing instruction with the request title and
// image URL. When refining a prompt the previous prompt is passed as title.
func BuildPrompt(title, imageURL string) string {
	return fmt.Sprintf(promptTemplate, title, imageURL)
}
