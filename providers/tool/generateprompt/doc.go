// Package generateprompt turns a bare topic into a full image-generation
// prompt using a local Ollama model. The tool is optional: it is only
// registered when both OLLAMA_API_BASE and PROMPT_LLM are configured.
package generateprompt
