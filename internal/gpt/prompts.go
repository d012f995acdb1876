package gpt

import (
	"fmt"

	"github.com/fedutinova/vidshelf/internal/models"
)

const narrativePrompt = "Summarize the YouTube video transcript you are given in 2-4 concise paragraphs. " +
	"Cover the key topics, the main arguments and any notable conclusions."

const structuredPrompt = "You extract technical facts from YouTube video transcripts into FAQ-style notes. " +
	"Answer with these markdown sections, each a list of `- Field: value` lines:\n\n" +
	"## Project Overview (Name, Purpose, Target Users)\n" +
	"## Tech Stack (Operating System, Programming Languages, Backend Framework, Frontend Framework, " +
	"UI Library, Database, APIs Used, AI Models Used, Cloud Provider, Deployment Platform)\n" +
	"## Architecture (Pattern Used, Infrastructure, Authentication, Data Storage Strategy)\n" +
	"## DevOps (CI/CD, Containerization, Environment Variables Mentioned)\n" +
	"## Features (Core Features, Integrations, Security Features)\n" +
	"## Monetization (Pricing Model, Subscription / Credits / Pay-per-use)\n" +
	"## Known Issues / Limitations\n\n" +
	"Write \"Not specified.\" for anything the transcript does not mention. " +
	"Extract facts only; do not write a narrative summary."

func systemPrompt(style string) string {
	if style == models.SummaryNarrative {
		return narrativePrompt
	}
	return structuredPrompt
}

func userPrompt(title, transcript string) string {
	if title == "" {
		title = "Unknown"
	}
	return fmt.Sprintf("Video Title: %s\n\nTranscript:\n%s", title, transcript)
}

const chatPrompt = "You are a helpful assistant that answers questions from a knowledge base of YouTube video transcripts. " +
	"Use the context below to answer the user's question. If the context does not contain the answer, say so honestly. " +
	"Mention which video(s) your answer is based on when applicable.\n\nKnowledge Base Context:\n"

func chatSystemPrompt(knowledge string) string {
	return chatPrompt + knowledge
}
