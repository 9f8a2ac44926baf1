package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/printforge/teepress/config"
	"github.com/printforge/teepress/pkg/models"
)

const (
	maxPhraseLength   = 100
	placeholderPhrase = "Custom"
	defaultStyle      = "modern"
)

var knownStyles = map[string]bool{
	"modern":   true,
	"retro":    true,
	"bold":     true,
	"script":   true,
	"graffiti": true,
}

// strategy extracts a DesignRequest from raw text. A strategy may fail; the
// parser tries them in order and the last one never fails.
type strategy struct {
	name    string
	extract func(ctx context.Context, raw string) (*models.DesignRequest, error)
}

// Parser turns a free-text chat message into a DesignRequest. Parse never
// returns an error and never yields an empty phrase.
type Parser struct {
	keywords   []string
	strategies []strategy
}

func NewParser(cfg config.LLM, triggerKeywords []string) *Parser {
	p := &Parser{keywords: triggerKeywords}
	llm := newLLMExtractor(cfg)
	p.strategies = []strategy{
		{name: "llm", extract: llm.extract},
		{name: "fallback", extract: func(_ context.Context, raw string) (*models.DesignRequest, error) {
			return p.fallbackExtract(raw), nil
		}},
	}
	return p
}

func (p *Parser) Parse(ctx context.Context, raw string) models.DesignRequest {
	for _, s := range p.strategies {
		req, err := s.extract(ctx, raw)
		if err != nil {
			log.WithFields(log.Fields{"parser_path": s.name, "error": err}).
				Warn("extraction strategy failed, trying next")
			continue
		}
		sanitize(req)
		log.WithFields(log.Fields{"parser_path": s.name, "phrase": req.Phrase, "style": req.Style}).
			Info("parsed design request")
		return *req
	}
	// unreachable: the fallback strategy never errors
	req := &models.DesignRequest{}
	sanitize(req)
	return *req
}

var quotedRe = regexp.MustCompile(`"([^"]+)"|'([^']+)'|` + "`([^`]+)`")

var fillerPrefixes = []string{
	"that says",
	"saying",
	"which says",
	"with the words",
	"i want a",
	"make me a",
	"give me a",
	"with",
}

// fallbackExtract derives a phrase without any model call: prefer the longest
// quoted substring, otherwise strip trigger keywords and filler phrases from
// the raw text.
func (p *Parser) fallbackExtract(raw string) *models.DesignRequest {
	if q := longestQuoted(raw); q != "" {
		return &models.DesignRequest{Phrase: q, Style: defaultStyle}
	}

	phrase := raw
	for _, k := range p.keywords {
		phrase = removeFold(phrase, k)
	}
	for _, prefix := range fillerPrefixes {
		if _, end := indexFold(phrase, prefix); end >= 0 {
			phrase = phrase[end:]
		}
	}
	phrase = strings.Trim(strings.TrimSpace(phrase), `"'`)
	return &models.DesignRequest{Phrase: phrase, Style: defaultStyle}
}

func longestQuoted(s string) string {
	best := ""
	for _, m := range quotedRe.FindAllStringSubmatch(s, -1) {
		for _, g := range m[1:] {
			if len(g) > len(best) {
				best = g
			}
		}
	}
	return strings.TrimSpace(best)
}

// removeFold strips every case-insensitive occurrence of sub from s. All
// matching happens rune-aligned on s itself; lowering a copy first is unsafe
// because ToLower can change a rune's byte length.
func removeFold(s, sub string) string {
	if sub == "" {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if n, ok := foldPrefixLen(s[i:], sub); ok {
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}

// indexFold locates the first case-insensitive occurrence of sub in s,
// returning the byte range in s, or (-1, -1).
func indexFold(s, sub string) (int, int) {
	for i := 0; i < len(s); {
		if n, ok := foldPrefixLen(s[i:], sub); ok {
			return i, i + n
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

// foldPrefixLen reports how many bytes at the start of s case-fold to sub.
func foldPrefixLen(s, sub string) (int, bool) {
	i := 0
	for _, sr := range sub {
		r, size := utf8.DecodeRuneInString(s[i:])
		if size == 0 || !strings.EqualFold(string(r), string(sr)) {
			return 0, false
		}
		i += size
	}
	return i, true
}

// sanitize enforces the request invariants in place: phrase non-empty and
// bounded, style recognized.
func sanitize(req *models.DesignRequest) {
	req.Phrase = strings.TrimSpace(req.Phrase)
	if req.Phrase == "" {
		req.Phrase = placeholderPhrase
	}
	if r := []rune(req.Phrase); len(r) > maxPhraseLength {
		req.Phrase = strings.TrimSpace(string(r[:maxPhraseLength]))
	}
	req.Style = strings.ToLower(strings.TrimSpace(req.Style))
	if !knownStyles[req.Style] {
		req.Style = defaultStyle
	}
}

func validateExtracted(req *models.DesignRequest) error {
	if strings.TrimSpace(req.Phrase) == "" {
		return fmt.Errorf("model returned an empty phrase")
	}
	return nil
}
