package release

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Parser turns release names into normalized Fingerprints. Results are
// memoized per exact input for the lifetime of the Parser.
type Parser struct {
	guesser Guesser
	logger  *logrus.Logger

	mu    sync.Mutex
	cache map[string]Fingerprint
}

// NewParser creates a Parser. A nil guesser selects the PTNGuesser.
func NewParser(guesser Guesser, logger *logrus.Logger) *Parser {
	if guesser == nil {
		guesser = NewPTNGuesser()
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Parser{
		guesser: guesser,
		logger:  logger,
		cache:   make(map[string]Fingerprint),
	}
}

// Parse never fails: when nothing usable is guessed the raw text becomes the
// title of a movie fingerprint.
func (p *Parser) Parse(text string) Fingerprint {
	p.mu.Lock()
	if f, ok := p.cache[text]; ok {
		p.mu.Unlock()
		return f
	}
	p.mu.Unlock()

	f := p.parse(text)

	p.mu.Lock()
	p.cache[text] = f
	p.mu.Unlock()
	return f
}

func (p *Parser) parse(text string) Fingerprint {
	fallback := Fingerprint{Kind: KindMovie, Title: strings.TrimSpace(text)}

	attrs, err := p.guesser.Guess(text)
	if err != nil {
		p.logger.WithError(err).WithField("text", text).Warn("Release guess failed, using raw text as title")
		return fallback
	}
	f := fromAttributes(attrs)
	if f.Title == "" {
		p.logger.WithField("text", text).Debug("No title guessed, using raw text as title")
		return fallback
	}
	f = NormalizeFingerprint(f)
	p.logger.WithFields(logrus.Fields{
		"text":  text,
		"title": FormatTitle(f),
		"kind":  f.Kind,
	}).Debug("Parsed release name")
	return f
}
