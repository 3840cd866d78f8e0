package subdivx

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// UnknownDate marks a result without an upload date.
const UnknownDate = "-"

const displayDateLayout = "02/01/2006"

// SearchResult is one subtitle entry returned by the site.
type SearchResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Downloads   int    `json:"downloads"`
	Uploader    string `json:"uploader"`
	UploadDate  string `json:"upload_date"`
}

// Order selects how results are sorted before display.
type Order string

const (
	OrderNone      Order = ""
	OrderDownloads Order = "downloads"
	OrderDates     Order = "dates"
)

// SortResults returns a sorted copy of results. Equal keys keep server order
// and unknown dates go after every real date.
func SortResults(results []SearchResult, order Order) []SearchResult {
	sorted := append([]SearchResult(nil), results...)
	switch order {
	case OrderDownloads:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Downloads > sorted[j].Downloads
		})
	case OrderDates:
		sort.SliceStable(sorted, func(i, j int) bool {
			ti, okI := parseDisplayDate(sorted[i].UploadDate)
			tj, okJ := parseDisplayDate(sorted[j].UploadDate)
			if okI && okJ {
				return ti.After(tj)
			}
			return okI && !okJ
		})
	}
	return sorted
}

func parseDisplayDate(s string) (time.Time, bool) {
	t, err := time.Parse(displayDateLayout, s)
	return t, err == nil
}

// flexString accepts JSON strings, numbers and null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

type searchResponse struct {
	Data []rawResult `json:"aaData"`
}

type rawResult struct {
	ID          flexString `json:"id"`
	Title       flexString `json:"titulo"`
	Description flexString `json:"descripcion"`
	Downloads   flexString `json:"descargas"`
	Uploader    flexString `json:"nick"`
	UploadDate  flexString `json:"fecha_subida"`
}

func (r rawResult) toResult() SearchResult {
	downloads, _ := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(string(r.Downloads)), ".", ""))
	return SearchResult{
		ID:          strings.TrimSpace(string(r.ID)),
		Title:       StripTags(string(r.Title)),
		Description: StripTags(string(r.Description)),
		Downloads:   downloads,
		Uploader:    strings.TrimSpace(string(r.Uploader)),
		UploadDate:  formatUploadDate(string(r.UploadDate)),
	}
}

// formatUploadDate converts "YYYY-MM-DD HH:MM:SS" to "DD/MM/YYYY".
func formatUploadDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayDateLayout)
		}
	}
	return UnknownDate
}

var (
	breakRegex  = regexp.MustCompile(`(?i)<br\s*/?>`)
	blanksRegex = regexp.MustCompile(`\s+`)
)

// StripTags decodes HTML entities and removes markup.
func StripTags(s string) string {
	s = breakRegex.ReplaceAllString(s, " ")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err == nil {
		s = doc.Text()
	}
	return strings.TrimSpace(blanksRegex.ReplaceAllString(s, " "))
}
