package control

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// InferFunc produces a translation for a request. The real inference engine
// is external to this subsystem; production deployments inject their own.
type InferFunc func(ctx context.Context, req domain.TranslationRequest) (domain.Result, error)

// phraseTable is a small per-language-pair dictionary used by the
// development inferencer. Keys are lowercased source phrases.
var phraseTable = map[string]map[string]string{
	"en-es": {
		"hello":               "hola",
		"good morning":        "buenos días",
		"how are you":         "cómo estás",
		"hello, how are you?": "Hola, cómo estás?",
		"thank you":           "gracias",
		"doctor":              "médico",
		"nurse":               "enfermera",
		"patient":             "paciente",
		"medicine":            "medicina",
		"pain":                "dolor",
		"i need help":         "necesito ayuda",
		"emergency":           "emergencia",
		"prescription":        "receta",
		"pharmacy":            "farmacia",
		"symptoms":            "síntomas",
		"treatment":           "tratamiento",
		"diagnosis":           "diagnóstico",
		"appointment":         "cita",
		"allergies":           "alergias",
		"surgery":             "cirugía",
	},
	"en-fr": {
		"hello":        "bonjour",
		"thank you":    "merci",
		"doctor":       "médecin",
		"nurse":        "infirmière",
		"pain":         "douleur",
		"emergency":    "urgence",
		"prescription": "ordonnance",
		"pharmacy":     "pharmacie",
		"symptoms":     "symptômes",
		"treatment":    "traitement",
	},
	"es-en": {
		"hola":           "hello",
		"gracias":        "thank you",
		"médico":         "doctor",
		"dolor":          "pain",
		"emergencia":     "emergency",
		"necesito ayuda": "I need help",
	},
}

// contextTerms holds context-aware medical terminology per language pair,
// applied after the base translation so domain terminology wins.
// Structure: medical context -> source term -> language pair -> translation.
var contextTerms = map[string]map[string]map[string]string{
	"general": {
		"fever":        {"en-es": "fiebre", "en-fr": "fièvre", "en-de": "Fieber"},
		"headache":     {"en-es": "dolor de cabeza", "en-fr": "mal de tête"},
		"nausea":       {"en-es": "náusea", "en-fr": "nausée"},
		"infection":    {"en-es": "infección", "en-fr": "infection"},
		"inflammation": {"en-es": "inflamación", "en-fr": "inflammation"},
	},
	"cardiology": {
		"heart attack":   {"en-es": "ataque cardíaco", "en-fr": "crise cardiaque"},
		"blood pressure": {"en-es": "presión arterial", "en-fr": "pression artérielle"},
		"arrhythmia":     {"en-es": "arritmia", "en-fr": "arythmie"},
		"heart failure":  {"en-es": "insuficiencia cardíaca", "en-fr": "insuffisance cardiaque"},
		"hypertension":   {"en-es": "hipertensión", "en-fr": "hypertension"},
	},
	"neurology": {
		"stroke":   {"en-es": "accidente cerebrovascular", "en-fr": "accident vasculaire cérébral"},
		"seizure":  {"en-es": "convulsión", "en-fr": "crise d'épilepsie"},
		"migraine": {"en-es": "migraña", "en-fr": "migraine"},
	},
	"pulmonology": {
		"asthma":    {"en-es": "asma", "en-fr": "asthme"},
		"pneumonia": {"en-es": "neumonía", "en-fr": "pneumonie"},
	},
}

// MockInfer is a dictionary-backed inference function for development and
// tests: exact phrase lookup, then word-by-word with unknown words passed
// through, then context-specific medical terminology substitution.
func MockInfer(_ context.Context, req domain.TranslationRequest) (domain.Result, error) {
	if req.SourceLang == req.TargetLang {
		return domain.Result{}, fmt.Errorf("source and target language are both %q", req.SourceLang)
	}
	start := time.Now()
	pair := req.SourceLang + "-" + req.TargetLang
	dict := phraseTable[pair]

	lower := strings.ToLower(req.Text)
	translated, exact := dict[lower]
	if !exact {
		words := strings.Fields(req.Text)
		out := make([]string, len(words))
		for i, w := range words {
			if t, ok := dict[strings.ToLower(w)]; ok {
				out[i] = t
			} else {
				out[i] = w
			}
		}
		translated = strings.Join(out, " ")
	}

	translated = applyTerminology(lower, translated, pair, req.Context)

	confidence := 0.95
	if !exact {
		confidence = 0.7
	}

	return domain.Result{
		TranslatedText: translated,
		Confidence:     confidence,
		ProcessingMs:   time.Since(start).Milliseconds(),
		Source:         domain.SourceInference,
		ModelVersion:   "mock-1",
	}, nil
}

func applyTerminology(source, translated, pair, medCtx string) string {
	terms, ok := contextTerms[medCtx]
	if !ok {
		return translated
	}
	for term, byPair := range terms {
		repl, ok := byPair[pair]
		if !ok {
			continue
		}
		if strings.Contains(source, term) {
			translated = strings.ReplaceAll(translated, term, repl)
			// Exact term requests translate to the terminology entry itself.
			if source == term {
				translated = repl
			}
		}
	}
	return translated
}
