// Package llm talks to the chat models that extract tasks from threads.
//
// Three backends sit behind the Provider interface:
//   - openrouter: a small hand-rolled client for the OpenRouter chat
//     completions endpoint, with Bearer auth and attribution headers
//   - ollama: an eino chat model against a local Ollama server
//   - openai: an eino chat model against the OpenAI API or any compatible
//     base URL
//
// # Entry Points
//
// NewProvider: build a Provider for a Kind from Config.
// Provider.Complete: send one system and one user message, return the text.
// ListOllamaModels: list the models installed on an Ollama server.
//
// # Errors
//
// Non-2xx responses from OpenRouter surface as *HTTPStatusError carrying the
// status code, the raw body, and the upstream error message when the body
// has one. Nothing here retries; extraction callers decide what a failure
// means for their batch.
package llm
