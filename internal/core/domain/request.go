package domain

// TranslationRequest is a single translation job received by the edge node.
type TranslationRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLanguage"`
	TargetLang string `json:"targetLanguage"`
	Context    string `json:"context"`
}

// DefaultContext is used when a request does not specify a medical context.
const DefaultContext = "general"

// Normalized returns a copy with the context defaulted.
func (r TranslationRequest) Normalized() TranslationRequest {
	if r.Context == "" {
		r.Context = DefaultContext
	}
	return r
}

// ResultSource indicates where a translation result came from.
type ResultSource string

const (
	SourceCache     ResultSource = "cache"
	SourceInference ResultSource = "inference"
)

// Result is the outcome of a translation, either freshly inferred or cached.
type Result struct {
	TranslatedText string       `json:"translatedText"`
	Confidence     float64      `json:"confidence"`
	ProcessingMs   int64        `json:"processingTime"`
	Source         ResultSource `json:"source"`
	ModelVersion   string       `json:"modelVersion,omitempty"`
}
