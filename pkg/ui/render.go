package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/angelospk/subdivx-dl/pkg/config"
	"github.com/angelospk/subdivx-dl/pkg/core/i18n"
	"github.com/angelospk/subdivx-dl/pkg/core/subdivx"
)

// wordsPerLine wraps long descriptions.
const wordsPerLine = 11

// Renderer draws results, descriptions and menus as tables.
type Renderer struct {
	out         io.Writer
	tr          *i18n.Translator
	layout      string
	style       table.Style
	disableHelp bool
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer, tr *i18n.Translator, layout, style string, disableHelp bool) *Renderer {
	return &Renderer{
		out:         out,
		tr:          tr,
		layout:      layout,
		style:       StyleByName(style),
		disableHelp: disableHelp,
	}
}

// StyleByName maps the style names accepted on the command line to table
// styles.
func StyleByName(name string) table.Style {
	switch name {
	case "rounded_grid", "":
		return table.StyleRounded
	case "simple_grid", "mixed_grid", "grid", "psql":
		return table.StyleLight
	case "fancy_grid", "double_grid":
		return table.StyleDouble
	case "heavy_grid":
		return table.StyleBold
	default:
		return table.StyleDefault
	}
}

func (r *Renderer) newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(r.style)
	tw.Style().Format.Header = text.FormatDefault
	return tw
}

// Results draws one page of results, numbered from offset+1.
func (r *Renderer) Results(results []subdivx.SearchResult, offset int) {
	tw := r.newTable()
	switch r.layout {
	case config.LayoutMinimal:
		tw.AppendHeader(table.Row{r.tr.T("column_number"), r.tr.T("column_title")})
		for i, res := range results {
			tw.AppendRow(table.Row{offset + i + 1, res.Title})
		}
	case config.LayoutCompact:
		tw.AppendHeader(table.Row{r.tr.T("column_number"), r.tr.T("column_title"), r.tr.T("column_downloads"), r.tr.T("column_date")})
		for i, res := range results {
			tw.AppendRow(table.Row{offset + i + 1, res.Title, res.Downloads, res.UploadDate})
		}
		tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	case config.LayoutAlternative:
		tw.AppendHeader(table.Row{r.tr.T("column_number"), r.tr.T("column_title"), r.tr.T("column_description"), r.tr.T("column_downloads"), r.tr.T("column_date")})
		for i, res := range results {
			tw.AppendRow(table.Row{offset + i + 1, res.Title, res.Description, res.Downloads, res.UploadDate})
			tw.AppendSeparator()
		}
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 30, WidthMaxEnforcer: text.WrapSoft},
			{Number: 3, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
			{Number: 4, Align: text.AlignRight},
		})
	default:
		tw.AppendHeader(table.Row{r.tr.T("column_number"), r.tr.T("column_title"), r.tr.T("column_downloads"), r.tr.T("column_date"), r.tr.T("column_user")})
		for i, res := range results {
			tw.AppendRow(table.Row{offset + i + 1, res.Title, res.Downloads, res.UploadDate, res.Uploader})
		}
		tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	}
	fmt.Fprintln(r.out, tw.Render())
}

// Description draws the selected result's description.
func (r *Renderer) Description(res subdivx.SearchResult, url string) {
	tw := r.newTable()
	tw.AppendHeader(table.Row{r.tr.T("column_description")})
	tw.AppendRow(table.Row{WrapWords(res.Description, wordsPerLine)})
	fmt.Fprintln(r.out, tw.Render())
	if url != "" {
		fmt.Fprintln(r.out, r.tr.T("download_url", url))
	}
}

// Comments draws the user comments of a result.
func (r *Renderer) Comments(comments []string) {
	tw := r.newTable()
	tw.AppendHeader(table.Row{r.tr.T("column_comments")})
	if len(comments) == 0 {
		tw.AppendRow(table.Row{r.tr.T("no_comments")})
	}
	for _, c := range comments {
		tw.AppendRow(table.Row{WrapWords(c, wordsPerLine)})
		tw.AppendSeparator()
	}
	fmt.Fprintln(r.out, tw.Render())
}

// Files draws the extracted subtitle files to choose from.
func (r *Renderer) Files(files []string) {
	tw := r.newTable()
	tw.AppendHeader(table.Row{r.tr.T("column_number"), r.tr.T("column_file")})
	for i, f := range files {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), filepath.Base(f)})
	}
	fmt.Fprintln(r.out, tw.Render())
}

// Help prints a hint line unless help is disabled.
func (r *Renderer) Help(msg string) {
	if r.disableHelp {
		return
	}
	fmt.Fprintln(r.out, msg)
}

// Message prints a line.
func (r *Renderer) Message(msg string) {
	fmt.Fprintln(r.out, msg)
}

// ClearScreen clears the terminal. Non-terminal outputs are left alone.
func (r *Renderer) ClearScreen() {
	f, ok := r.out.(*os.File)
	if !ok || !isTerminal(f.Fd()) {
		return
	}
	fmt.Fprint(r.out, "\033[H\033[2J")
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// WrapWords breaks s into lines of at most n words.
func WrapWords(s string, n int) string {
	words := strings.Fields(s)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	var lines []string
	for i := 0; i < len(words); i += n {
		end := i + n
		if end > len(words) {
			end = len(words)
		}
		lines = append(lines, strings.Join(words[i:end], " "))
	}
	return strings.Join(lines, "\n")
}
