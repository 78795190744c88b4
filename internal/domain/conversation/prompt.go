package conversation

// ComposePrompt appends attachment context to the user's message.
func ComposePrompt(message, filename, extracted string) string {
	if extracted == "" {
		return message + "\n\n[Attachment: " + filename + "] (could not extract text)"
	}
	return message + "\n\n[Attachment: " + filename + "]\n" + extracted
}
