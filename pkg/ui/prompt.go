package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
	"github.com/angelospk/subdivx-dl/pkg/core/i18n"
)

// Action is a menu choice.
type Action int

const (
	ActionSelect Action = iota
	ActionNext
	ActionPrev
	ActionDownload
	ActionBack
	ActionExit
)

// Prompter reads menu choices. Invalid input is reported and asked again;
// end of input counts as exit.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
	tr  *i18n.Translator
}

// NewPrompter creates a Prompter.
func NewPrompter(in io.Reader, out io.Writer, tr *i18n.Translator) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out, tr: tr}
}

func (p *Prompter) readLine(prompt string) (string, error) {
	fmt.Fprintf(p.out, "%s\n> ", prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", coreErrors.ErrUserExit
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// readNumber loops until a number in [0, max] is entered. Letters listed in
// extra are returned as is.
func (p *Prompter) readNumber(prompt string, max int, extra ...string) (int, string, error) {
	for {
		line, err := p.readLine(prompt)
		if err != nil {
			return 0, "", err
		}
		lower := strings.ToLower(line)
		for _, e := range extra {
			if lower == e {
				return 0, e, nil
			}
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(p.out, p.tr.T("invalid_number"))
			continue
		}
		if n < 0 || n > max {
			fmt.Fprintln(p.out, p.tr.T("invalid_option"))
			continue
		}
		return n, "", nil
	}
}

// ChooseResult asks for a result number on the current page. The returned
// index is zero based within the page.
func (p *Prompter) ChooseResult(count int, canNext, canPrev bool) (Action, int, error) {
	var extra []string
	if canNext {
		extra = append(extra, "n")
	}
	if canPrev {
		extra = append(extra, "p")
	}
	n, key, err := p.readNumber(p.tr.T("select_result", count), count, extra...)
	switch {
	case err != nil:
		return ActionExit, 0, err
	case key == "n":
		return ActionNext, 0, nil
	case key == "p":
		return ActionPrev, 0, nil
	case n == 0:
		return ActionExit, 0, nil
	}
	return ActionSelect, n - 1, nil
}

// ChooseAction asks what to do with the selected result.
func (p *Prompter) ChooseAction() (Action, error) {
	n, _, err := p.readNumber(p.tr.T("select_action"), 2)
	if err != nil {
		return ActionExit, err
	}
	switch n {
	case 1:
		return ActionDownload, nil
	case 2:
		return ActionBack, nil
	}
	return ActionExit, nil
}

// ChooseFile asks for one of count files and returns its zero based index.
func (p *Prompter) ChooseFile(count int) (int, error) {
	n, _, err := p.readNumber(p.tr.T("select_file", count), count)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, coreErrors.ErrUserExit
	}
	return n - 1, nil
}

// Pager splits a result list into pages.
type Pager struct {
	total int
	size  int
	page  int
}

// NewPager creates a Pager over total items.
func NewPager(total, size int) *Pager {
	if size <= 0 {
		size = 10
	}
	return &Pager{total: total, size: size}
}

// Bounds returns the [start, end) slice of the current page.
func (p *Pager) Bounds() (int, int) {
	start := p.page * p.size
	end := start + p.size
	if end > p.total {
		end = p.total
	}
	return start, end
}

// Page is the current page, starting at 1.
func (p *Pager) Page() int { return p.page + 1 }

// Pages is the number of pages.
func (p *Pager) Pages() int {
	if p.total == 0 {
		return 1
	}
	return (p.total + p.size - 1) / p.size
}

// Size is the page size.
func (p *Pager) Size() int { return p.size }

// HasNext reports whether a later page exists.
func (p *Pager) HasNext() bool { return p.page+1 < p.Pages() }

// HasPrev reports whether an earlier page exists.
func (p *Pager) HasPrev() bool { return p.page > 0 }

// Next moves forward when possible.
func (p *Pager) Next() {
	if p.HasNext() {
		p.page++
	}
}

// Prev moves back when possible.
func (p *Pager) Prev() {
	if p.HasPrev() {
		p.page--
	}
}
