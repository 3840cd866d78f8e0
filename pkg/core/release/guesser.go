package release

import (
	"regexp"
	"strconv"
	"strings"

	ptn "github.com/razsteinmetz/go-ptn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Guesser extracts raw attributes from a free-text release name.
type Guesser interface {
	Guess(text string) (Attributes, error)
}

// Regexes for the release tokens. Each match also marks where the title ends.
var (
	episodeRegex    = regexp.MustCompile(`(?i)\bS(\d{1,2})((?:[ ._]*-?[ ._]*E\d{1,3})+)`)
	episodeNumRegex = regexp.MustCompile(`(?i)E(\d{1,3})`)
	crossRegex      = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{2,3})\b`)
	seasonRegex     = regexp.MustCompile(`(?i)\b(?:S|Season[ ._]?)(\d{1,2})\b`)
	yearRegex       = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	resolutionRegex = regexp.MustCompile(`(?i)\b(\d{3,4}[pi]|4k)\b`)
	sourceRegex     = regexp.MustCompile(`(?i)\b(blu[ .-]?ray|bd[ .-]?rip|br[ .-]?rip|web[ .-]?dl|web[ .-]?rip|hdtv|dvd[ .-]?rip|dvd[ .-]?scr|dvd|hd[ .-]?rip|hd[ .-]?cam|cam[ .-]?rip|telesync)\b`)
	codecRegex      = regexp.MustCompile(`(?i)\b([xh][ .]?26[45]|hevc|avc|xvid|divx|av1)\b`)
	editionRegex    = regexp.MustCompile(`(?i)\b(director(?:'|’)?s[ ._]cut|extended(?:[ ._](?:cut|edition))?|unrated|theatrical(?:[ ._]cut)?|remastered|special[ ._]edition|final[ ._]cut|ultimate[ ._](?:edition|cut)|criterion(?:[ ._]collection)?|collector(?:'|’)?s[ ._]edition|imax)\b`)
	sizeRegex       = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)[ ]?(GB|MB|GiB|MiB)\b`)
	otherRegex      = regexp.MustCompile(`(?i)\b(repack|proper|remux|hdr10\+?|hdr|10bit|internal|limited|dubbed|3d|dual)\b`)
	akaTokenRegex   = regexp.MustCompile(`(?i)\baka\b`)
	groupRegex      = regexp.MustCompile(`-([A-Za-z0-9]+)(?:\.[A-Za-z0-9]{2,4})?\s*$|\[([A-Za-z0-9 ._-]+)\]\s*$`)
)

var otherNames = map[string]string{
	"repack":   "Repack",
	"proper":   "Proper",
	"remux":    "Remux",
	"hdr":      "HDR",
	"hdr10":    "HDR10",
	"hdr10+":   "HDR10+",
	"10bit":    "10bit",
	"internal": "Internal",
	"limited":  "Limited",
	"dubbed":   "Dubbed",
	"3d":       "3D",
	"dual":     "Dual Audio",
}

// PTNGuesser guesses release attributes with a set of release-name
// heuristics, filling whatever they miss from go-ptn.
type PTNGuesser struct{}

// NewPTNGuesser returns the default Guesser.
func NewPTNGuesser() *PTNGuesser {
	return &PTNGuesser{}
}

// span is a token match inside the input.
type span struct{ start, end int }

// Guess implements Guesser.
func (g *PTNGuesser) Guess(text string) (Attributes, error) {
	text = strings.TrimSpace(text)
	attrs := Attributes{}
	var marks []span

	mark := func(loc []int) {
		if loc != nil {
			marks = append(marks, span{loc[0], loc[1]})
		}
	}

	var episodeEnd = -1
	if m := episodeRegex.FindStringSubmatchIndex(text); m != nil {
		season, _ := strconv.Atoi(text[m[2]:m[3]])
		attrs[AttrSeason] = season
		attrs[AttrEpisode] = episodeList(text[m[4]:m[5]])
		mark(m[:2])
		episodeEnd = m[1]
	} else if m := crossRegex.FindStringSubmatchIndex(text); m != nil {
		season, _ := strconv.Atoi(text[m[2]:m[3]])
		episode, _ := strconv.Atoi(text[m[4]:m[5]])
		attrs[AttrSeason] = season
		attrs[AttrEpisode] = []int{episode}
		mark(m[:2])
		episodeEnd = m[1]
	} else if m := seasonRegex.FindStringSubmatchIndex(text); m != nil && m[0] > 0 {
		season, _ := strconv.Atoi(text[m[2]:m[3]])
		attrs[AttrSeason] = season
		mark(m[:2])
	}
	if _, ok := attrs[AttrSeason]; ok {
		attrs[AttrKind] = string(KindEpisode)
	}

	for _, m := range yearRegex.FindAllStringSubmatchIndex(text, -1) {
		// A leading number is part of the title ("1917 2019").
		if m[0] == 0 {
			continue
		}
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		attrs[AttrYear] = year
		mark(m[:2])
		break
	}

	if m := resolutionRegex.FindStringIndex(text); m != nil {
		res := strings.ToLower(text[m[0]:m[1]])
		if res == "4k" {
			res = "2160p"
		}
		attrs[AttrScreenSize] = res
		mark(m)
	}
	if m := sourceRegex.FindStringIndex(text); m != nil {
		attrs[AttrSource] = canonicalSource(text[m[0]:m[1]])
		mark(m)
	}
	if m := codecRegex.FindStringIndex(text); m != nil {
		attrs[AttrVideoCodec] = canonicalCodec(text[m[0]:m[1]])
		mark(m)
	}
	if m := editionRegex.FindStringIndex(text); m != nil {
		attrs[AttrEdition] = cases.Title(language.Und).String(separatorsToSpace(text[m[0]:m[1]]))
		mark(m)
	}
	if m := sizeRegex.FindStringSubmatchIndex(text); m != nil {
		attrs[AttrSize] = strings.ReplaceAll(text[m[2]:m[3]], ",", ".") + strings.ToUpper(text[m[4]:m[5]])
		mark(m[:2])
	}
	var other []string
	for _, m := range otherRegex.FindAllStringIndex(text, -1) {
		name := otherNames[strings.ToLower(text[m[0]:m[1]])]
		if name != "" && !contains(other, name) {
			other = append(other, name)
		}
		mark(m)
	}
	if len(other) > 0 {
		attrs[AttrOther] = other
	}
	akaLoc := akaTokenRegex.FindStringIndex(text)
	mark(akaLoc)

	// A trailing group only counts after some technical token and never as
	// the tail of one ("WEB-DL", "S01E01-E03").
	if m := groupRegex.FindStringSubmatchIndex(text); m != nil && len(marks) > 0 && firstStart(marks) < m[0] && !overlaps(marks, m[0], m[1]) {
		group := ""
		if m[2] >= 0 {
			group = text[m[2]:m[3]]
		} else if m[4] >= 0 {
			group = text[m[4]:m[5]]
		}
		if group != "" {
			attrs[AttrReleaseGroup] = group
			mark(m[:2])
		}
	}

	cut := len(text)
	if len(marks) > 0 {
		cut = firstStart(marks)
	}
	if title := cleanSegment(text[:cut]); title != "" {
		attrs[AttrTitle] = title
	}
	if episodeEnd >= 0 {
		if t := cleanSegment(text[episodeEnd:nextStart(marks, episodeEnd, len(text))]); t != "" {
			attrs[AttrEpisodeTitle] = t
		}
	}
	if akaLoc != nil {
		if t := cleanSegment(text[akaLoc[1]:nextStart(marks, akaLoc[1], len(text))]); t != "" {
			attrs[AttrAlternativeTitle] = t
		}
	}

	fillFromPTN(text, attrs, marks)
	return attrs, nil
}

// fillFromPTN completes attributes the heuristics did not find.
func fillFromPTN(text string, attrs Attributes, marks []span) {
	info, err := ptn.Parse(text)
	if err != nil || info == nil {
		return
	}
	setIfMissing := func(key string, value any) {
		if _, ok := attrs[key]; ok {
			return
		}
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return
			}
		case int:
			if v <= 0 {
				return
			}
		}
		attrs[key] = value
	}
	setIfMissing(AttrTitle, strings.TrimSpace(info.Title))
	setIfMissing(AttrYear, info.Year)
	if info.Quality != "" {
		setIfMissing(AttrSource, canonicalSource(info.Quality))
	}
	setIfMissing(AttrScreenSize, strings.ToLower(info.Resolution))
	if group := strings.TrimSpace(info.Group); validGroup(text, group, marks) {
		setIfMissing(AttrReleaseGroup, group)
	}
	if _, ok := attrs[AttrSeason]; !ok && info.Season > 0 {
		attrs[AttrSeason] = info.Season
		attrs[AttrKind] = string(KindEpisode)
		if info.Episode > 0 {
			attrs[AttrEpisode] = []int{info.Episode}
		}
	}
}

// episodeList expands "E01-E03" into 1,2,3 and keeps "E01E02" as listed.
func episodeList(s string) []int {
	var nums []int
	for _, m := range episodeNumRegex.FindAllStringSubmatch(s, -1) {
		n, _ := strconv.Atoi(m[1])
		nums = append(nums, n)
	}
	if len(nums) == 2 && strings.Contains(s, "-") && nums[1] > nums[0] {
		out := make([]int, 0, nums[1]-nums[0]+1)
		for n := nums[0]; n <= nums[1]; n++ {
			out = append(out, n)
		}
		return out
	}
	return nums
}

func canonicalSource(s string) string {
	key := strings.ToLower(strings.NewReplacer(" ", "", ".", "", "-", "").Replace(s))
	switch key {
	case "bluray", "bdrip", "brrip":
		return "Blu-ray"
	case "webdl", "webrip", "web":
		return "Web"
	case "hdtv":
		return "HDTV"
	case "dvdrip", "dvd":
		return "DVD"
	case "dvdscr":
		return "DVD Screener"
	case "hdrip":
		return "HD"
	case "hdcam", "camrip", "cam":
		return "Camera"
	case "telesync":
		return "Telesync"
	}
	return s
}

func canonicalCodec(s string) string {
	key := strings.ToLower(strings.NewReplacer(" ", "", ".", "").Replace(s))
	switch key {
	case "x264", "h264", "avc":
		return "H.264"
	case "x265", "h265", "hevc":
		return "H.265"
	case "xvid":
		return "Xvid"
	case "divx":
		return "DivX"
	case "av1":
		return "AV1"
	}
	return s
}

func separatorsToSpace(s string) string {
	return strings.NewReplacer(".", " ", "_", " ").Replace(s)
}

// cleanSegment turns a slice of a release name into readable words.
func cleanSegment(s string) string {
	if !strings.Contains(strings.TrimSpace(s), " ") {
		s = separatorsToSpace(s)
	} else {
		s = strings.ReplaceAll(s, "_", " ")
	}
	s = spacesRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, " -([{.,:")
}

// validGroup accepts a single-word group found after the first technical
// token and outside every marked token.
func validGroup(text, group string, marks []span) bool {
	if group == "" || strings.ContainsAny(group, " \t") || len(marks) == 0 {
		return false
	}
	first := firstStart(marks)
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], group)
		if i < 0 {
			return false
		}
		start := from + i
		if start > first && !overlaps(marks, start, start+len(group)) {
			return true
		}
		from = start + 1
	}
	return false
}

func overlaps(marks []span, start, end int) bool {
	for _, m := range marks {
		if start < m.end && m.start < end {
			return true
		}
	}
	return false
}

func firstStart(marks []span) int {
	first := marks[0].start
	for _, m := range marks[1:] {
		if m.start < first {
			first = m.start
		}
	}
	return first
}

func nextStart(marks []span, after, fallback int) int {
	next := fallback
	for _, m := range marks {
		if m.start >= after && m.start < next {
			next = m.start
		}
	}
	return next
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
