package matcher

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/angelospk/subdivx-dl/pkg/core/release"
	"github.com/angelospk/subdivx-dl/pkg/core/subdivx"
)

// Weights is the score contributed by each matching attribute.
type Weights struct {
	Edition      float64
	Source       float64
	ReleaseGroup float64
	ScreenSize   float64
	VideoCodec   float64
	Size         float64
	Other        float64
}

// DefaultWeights returns the standard policy. The weights sum to 1.
func DefaultWeights() Weights {
	return Weights{
		Edition:      0.40,
		Source:       0.20,
		ReleaseGroup: 0.15,
		ScreenSize:   0.10,
		VideoCodec:   0.05,
		Size:         0.05,
		Other:        0.05,
	}
}

// TitleParser turns candidate titles into fingerprints.
type TitleParser interface {
	Parse(text string) release.Fingerprint
}

// Match is the outcome of SelectBest.
type Match struct {
	ID    string
	Index int
	Score float64
	// TitleMatched is false when no candidate title matched and the first
	// candidate was taken.
	TitleMatched bool
	// EditionForced is true when the edition alone decided the winner.
	EditionForced bool
}

// Scorer picks the result that best fits a query fingerprint.
type Scorer struct {
	parser  TitleParser
	weights Weights
	logger  *logrus.Logger
}

// NewScorer creates a Scorer.
func NewScorer(parser TitleParser, weights Weights, logger *logrus.Logger) *Scorer {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Scorer{parser: parser, weights: weights, logger: logger}
}

// SelectBest never fails on a non-empty list. Only candidates whose title
// matches the query are scored; the first candidate with the strictly
// highest score wins unless one of them carries the requested edition.
func (s *Scorer) SelectBest(query release.Fingerprint, candidates []subdivx.SearchResult) Match {
	if len(candidates) == 0 {
		return Match{Index: -1}
	}
	queryTitle := release.FormatTitle(query)
	queryAlt := release.FormatAltTitle(query)
	edition := strings.ToLower(query.Edition)

	best := Match{Index: -1}
	for i, c := range candidates {
		cf := s.parser.Parse(c.Title)
		candTitle, candAlt := release.FormatTitle(cf), release.FormatAltTitle(cf)
		if !titlesMatch(queryTitle, queryAlt, candTitle, candAlt) {
			continue
		}

		text := strings.ToLower(release.Normalize(c.Description))
		score := s.score(query, text, true)
		log := s.logger.WithFields(logrus.Fields{"id": c.ID, "title": candTitle, "score": score})

		if edition != "" && !best.EditionForced && strings.Contains(text, edition) {
			log.Debug("Edition match, forcing selection")
			best = Match{ID: c.ID, Index: i, Score: score, TitleMatched: true, EditionForced: true}
			continue
		}
		log.Debug("Scored candidate")
		if best.EditionForced {
			continue
		}
		if best.Index < 0 || score > best.Score {
			best = Match{ID: c.ID, Index: i, Score: score, TitleMatched: true}
		}
	}

	if best.Index < 0 {
		s.logClosest(queryTitle, candidates)
		return Match{ID: candidates[0].ID, Index: 0}
	}
	return best
}

// SelectBestSubtitle chooses among extracted file names using the same
// weights without edition. With no signal the first file is returned.
func (s *Scorer) SelectBestSubtitle(query release.Fingerprint, filenames []string) string {
	if len(filenames) == 0 {
		return ""
	}
	bestIdx, bestScore := 0, -1.0
	for i, name := range filenames {
		text := strings.ToLower(release.Normalize(filepath.Base(name)))
		score := s.score(query, text, false)
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	s.logger.WithFields(logrus.Fields{"file": filenames[bestIdx], "score": bestScore}).Debug("Selected subtitle file")
	return filenames[bestIdx]
}

func (s *Scorer) score(query release.Fingerprint, text string, withEdition bool) float64 {
	var total float64
	add := func(weight float64, value string) {
		if value != "" && strings.Contains(text, strings.ToLower(value)) {
			total += weight
		}
	}
	if withEdition {
		add(s.weights.Edition, query.Edition)
	}
	add(s.weights.Source, query.Source)
	add(s.weights.ReleaseGroup, query.ReleaseGroup)
	add(s.weights.ScreenSize, query.ScreenSize)
	add(s.weights.VideoCodec, query.VideoCodec)
	add(s.weights.Size, query.Size)
	add(s.weights.Other, query.Other)
	return total
}

func (s *Scorer) logClosest(queryTitle string, candidates []subdivx.SearchResult) {
	if !s.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	closest, distance := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(foldTitle(queryTitle), foldTitle(c.Title))
		if distance < 0 || d < distance {
			closest, distance = c.Title, d
		}
	}
	s.logger.WithFields(logrus.Fields{
		"query":    queryTitle,
		"closest":  closest,
		"distance": distance,
	}).Debug("No title matched, falling back to first result")
}

// titlesMatch compares title and alternative title of both sides in all
// four combinations. Empty titles never match.
func titlesMatch(queryTitle, queryAlt, candTitle, candAlt string) bool {
	for _, q := range []string{queryTitle, queryAlt} {
		fq := foldTitle(q)
		if fq == "" {
			continue
		}
		for _, c := range []string{candTitle, candAlt} {
			if fc := foldTitle(c); fc != "" && fc == fq {
				return true
			}
		}
	}
	return false
}

var titleStripper = strings.NewReplacer(":", "", ".", "")

func foldTitle(s string) string {
	s = titleStripper.Replace(s)
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}
