package inference

import "slices"

// DefaultModel is used when no model, or an unknown one, is requested, and as
// the fallback after a failed completion.
const DefaultModel = "llama-3.3-70b-versatile"

var knownModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.3-8b-versatile",
	"llama-3.1-8b-instant",
	"mixtral-8x7b-32768",
	"gemma-7b-it",
	"whisper-large-v3",
	"whisper-large-v3-turbo",
	"qwen-qwq-32b",
	"llama3-70b-8192",
	"llama3-8b-8192",
	"meta-llama/llama-4-maverick-17b-128e-instruct",
	"meta-llama/llama-4-scout-17b-16e-instruct",
	"mistral-saba-24b",
	"distil-whisper-large-v3-en",
	"llama-guard-3-8b",
	"playai-tts",
	"playai-tts-arabic",
	"allam-2-7b",
}

// Models returns the model identifiers accepted by the chat endpoint.
func Models() []string {
	return slices.Clone(knownModels)
}

// IsKnownModel reports whether model is in the accepted list.
func IsKnownModel(model string) bool {
	return slices.Contains(knownModels, model)
}

// ResolveModel returns model when it is known and DefaultModel otherwise.
func ResolveModel(model string) string {
	if IsKnownModel(model) {
		return model
	}
	return DefaultModel
}
