package gemini

// BirthdayPromptTemplate is the user turn sent to the model. The format
// string expects one parameter: the member's display name.
const BirthdayPromptTemplate = `Today is the birthday of @%s, a member of our group chat.

Write a single congratulation message for the group to read. Keep it under 300 characters and mention the member as @ followed by their name exactly as written above.

[CRITICAL] Reply with the message text only. No quotes, no preamble, no hashtags.`
