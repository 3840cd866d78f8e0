package release

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes movies from TV episodes.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindEpisode Kind = "episode"
)

// Fingerprint is the structured description of a release name.
type Fingerprint struct {
	Kind             Kind   `json:"type"`
	Title            string `json:"title"`
	AlternativeTitle string `json:"alternative_title,omitempty"`
	Year             int    `json:"year,omitempty"`
	Edition          string `json:"edition,omitempty"`
	Season           int    `json:"season,omitempty"`
	Episodes         []int  `json:"episode,omitempty"`
	EpisodeTitle     string `json:"episode_title,omitempty"`
	Source           string `json:"source,omitempty"`
	ReleaseGroup     string `json:"release_group,omitempty"`
	ScreenSize       string `json:"screen_size,omitempty"`
	VideoCodec       string `json:"video_codec,omitempty"`
	Size             string `json:"size,omitempty"`
	Other            string `json:"other,omitempty"`
}

// Attribute keys produced by a Guesser.
const (
	AttrKind             = "type"
	AttrTitle            = "title"
	AttrAlternativeTitle = "alternative_title"
	AttrYear             = "year"
	AttrEdition          = "edition"
	AttrSeason           = "season"
	AttrEpisode          = "episode"
	AttrEpisodeTitle     = "episode_title"
	AttrSource           = "source"
	AttrReleaseGroup     = "release_group"
	AttrScreenSize       = "screen_size"
	AttrVideoCodec       = "video_codec"
	AttrSize             = "size"
	AttrOther            = "other"
)

// Attributes is the raw key/value output of a Guesser. Values may be strings,
// numbers or lists; fromAttributes coerces them.
type Attributes map[string]any

var (
	bluRayRegex    = regexp.MustCompile(`(?i)blu-ray`)
	directorsRegex = regexp.MustCompile(`(?i)director(?:'|’)s`)
	codecPrefix    = regexp.MustCompile(`(?i)^h\.`)
	akaRegex       = regexp.MustCompile(`(?i)\baka\b`)
	spacesRegex    = regexp.MustCompile(`\s+`)
)

// Normalize rewrites the spellings that differ between release names and
// site descriptions (Blu-ray, Director's) into one canonical form.
func Normalize(s string) string {
	s = bluRayRegex.ReplaceAllString(s, "BluRay")
	s = directorsRegex.ReplaceAllString(s, "Directors")
	return s
}

// NormalizeFingerprint returns f with every attribute in canonical form.
// Applying it twice yields the same value as applying it once.
func NormalizeFingerprint(f Fingerprint) Fingerprint {
	f.Source = Normalize(strings.TrimSpace(f.Source))
	f.Edition = Normalize(strings.TrimSpace(f.Edition))
	f.VideoCodec = codecPrefix.ReplaceAllString(strings.TrimSpace(f.VideoCodec), "")
	f.Other = spacesRegex.ReplaceAllString(strings.TrimSpace(f.Other), " ")
	f.Size = strings.TrimSpace(f.Size)
	if f.Kind == "" {
		f.Kind = KindMovie
	}
	if len(f.Episodes) > 0 {
		f.Episodes = append([]int(nil), f.Episodes...)
	}
	return f
}

// FormatTitle renders the canonical title used for candidate comparison:
// "Title S01E02", "Title S01E01-E03" or "Title (1999)".
func FormatTitle(f Fingerprint) string {
	if f.Kind == KindEpisode {
		switch {
		case len(f.Episodes) == 0:
			return fmt.Sprintf("%s S%02d", f.Title, f.Season)
		case len(f.Episodes) > 1 && f.Episodes[len(f.Episodes)-1] != f.Episodes[0]:
			return fmt.Sprintf("%s S%02dE%02d-E%02d", f.Title, f.Season, f.Episodes[0], f.Episodes[len(f.Episodes)-1])
		default:
			return fmt.Sprintf("%s S%02dE%02d", f.Title, f.Season, f.Episodes[0])
		}
	}
	if f.Year > 0 {
		return fmt.Sprintf("%s (%d)", f.Title, f.Year)
	}
	return f.Title
}

// FormatAltTitle returns the episode title for episodes and the alternative
// title without the "aka" marker for movies.
func FormatAltTitle(f Fingerprint) string {
	if f.Kind == KindEpisode {
		return strings.TrimSpace(f.EpisodeTitle)
	}
	alt := akaRegex.ReplaceAllString(f.AlternativeTitle, "")
	return strings.TrimSpace(spacesRegex.ReplaceAllString(alt, " "))
}

// fromAttributes builds a Fingerprint, coercing loosely typed values.
func fromAttributes(attrs Attributes) Fingerprint {
	f := Fingerprint{
		Kind:             Kind(asString(attrs[AttrKind])),
		Title:            asString(attrs[AttrTitle]),
		AlternativeTitle: asString(attrs[AttrAlternativeTitle]),
		Year:             asInt(attrs[AttrYear]),
		Edition:          asString(attrs[AttrEdition]),
		Season:           asInt(attrs[AttrSeason]),
		Episodes:         asInts(attrs[AttrEpisode]),
		EpisodeTitle:     asString(attrs[AttrEpisodeTitle]),
		Source:           asString(attrs[AttrSource]),
		ReleaseGroup:     asString(attrs[AttrReleaseGroup]),
		ScreenSize:       asString(attrs[AttrScreenSize]),
		VideoCodec:       asString(attrs[AttrVideoCodec]),
		Size:             asString(attrs[AttrSize]),
		Other:            asString(attrs[AttrOther]),
	}
	if f.Kind == "" && (f.Season > 0 || len(f.Episodes) > 0) {
		f.Kind = KindEpisode
	}
	return f
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []string:
		return strings.Join(t, " ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := asString(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	case []int:
		if len(t) > 0 {
			return t[0]
		}
	}
	return 0
}

func asInts(v any) []int {
	switch t := v.(type) {
	case nil:
		return nil
	case []int:
		if len(t) == 0 {
			return nil
		}
		return append([]int(nil), t...)
	case []any:
		var out []int
		for _, p := range t {
			if n := asInt(p); n > 0 {
				out = append(out, n)
			}
		}
		return out
	default:
		if n := asInt(t); n > 0 {
			return []int{n}
		}
	}
	return nil
}
