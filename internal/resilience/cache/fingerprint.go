package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// Fingerprint derives the deterministic cache key for a request.
// Text is normalized (trimmed, whitespace-collapsed, lowercased) so that
// formatting differences don't fragment the cache; the context defaults to
// "general" when absent.
func Fingerprint(req domain.TranslationRequest) string {
	req = req.Normalized()
	text := strings.ToLower(strings.Join(strings.Fields(req.Text), " "))

	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(req.SourceLang))
	h.Write([]byte{0})
	h.Write([]byte(req.TargetLang))
	h.Write([]byte{0})
	h.Write([]byte(req.Context))
	return hex.EncodeToString(h.Sum(nil))
}
