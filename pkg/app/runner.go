package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/angelospk/subdivx-dl/internal/constants"
	"github.com/angelospk/subdivx-dl/pkg/config"
	"github.com/angelospk/subdivx-dl/pkg/core/download"
	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
	"github.com/angelospk/subdivx-dl/pkg/core/fileops"
	"github.com/angelospk/subdivx-dl/pkg/core/i18n"
	"github.com/angelospk/subdivx-dl/pkg/core/matcher"
	"github.com/angelospk/subdivx-dl/pkg/core/release"
	"github.com/angelospk/subdivx-dl/pkg/core/session"
	"github.com/angelospk/subdivx-dl/pkg/core/subdivx"
	"github.com/angelospk/subdivx-dl/pkg/ui"
)

// SessionManager provides a usable site session.
type SessionManager interface {
	Ensure(ctx context.Context, forceNew bool) (session.State, error)
}

// Searcher runs a subtitle search.
type Searcher interface {
	Search(ctx context.Context, state session.State, query string) ([]subdivx.SearchResult, error)
}

// CommentFetcher loads the comments of a result.
type CommentFetcher interface {
	FetchComments(ctx context.Context, id string) []string
}

// Fetcher downloads the archive of a result.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*download.Archive, error)
}

// Extractor unpacks an archive and returns the subtitle files.
type Extractor interface {
	Extract(archive *download.Archive, dir string) ([]string, error)
}

// RunnerInterface is what the command line needs from a Runner.
type RunnerInterface interface {
	Run(ctx context.Context, query string) error
}

// Ensure Runner implements RunnerInterface
var _ RunnerInterface = (*Runner)(nil)

// Deps are the collaborators of a Runner.
type Deps struct {
	Sessions   SessionManager
	Searcher   Searcher
	Comments   CommentFetcher
	Fetcher    Fetcher
	Extractor  Extractor
	Parser     *release.Parser
	Scorer     *matcher.Scorer
	Renderer   *ui.Renderer
	Prompter   *ui.Prompter
	Translator *i18n.Translator
}

// Runner drives one search from query to placed subtitle files.
type Runner struct {
	cfg    config.Config
	deps   Deps
	cache  *subdivx.CommentCache
	logger *log.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg config.Config, deps Deps, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New()
		logger.SetFormatter(&log.TextFormatter{})
		logger.SetOutput(os.Stderr)
		logger.SetLevel(log.InfoLevel)
	}
	if cfg.Location == "" {
		cfg.Location = "."
	}
	return &Runner{
		cfg:    cfg,
		deps:   deps,
		cache:  subdivx.NewCommentCache(cfg.CommentTTL, constants.DefaultPageSize),
		logger: logger,
	}
}

// Run searches for query and downloads the chosen subtitle.
func (r *Runner) Run(ctx context.Context, query string) error {
	state, err := r.deps.Sessions.Ensure(ctx, r.cfg.NewSession)
	if err != nil {
		return err
	}

	r.deps.Renderer.Help(r.deps.Translator.T("searching", query))
	results, err := r.deps.Searcher.Search(ctx, state, query)
	if err != nil {
		return err
	}
	results = subdivx.SortResults(results, subdivx.Order(r.cfg.OrderBy))
	if r.cfg.Lines > 0 && len(results) > r.cfg.Lines {
		results = results[:r.cfg.Lines]
	}
	r.logger.WithFields(log.Fields{"query": query, "results": len(results)}).Info("Results ready")

	if r.cfg.Fast {
		return r.runFast(ctx, query, results)
	}
	return r.runInteractive(ctx, query, results)
}

func (r *Runner) runFast(ctx context.Context, query string, results []subdivx.SearchResult) error {
	fp := r.deps.Parser.Parse(query)
	best := r.deps.Scorer.SelectBest(fp, results)
	if best.Index < 0 {
		return coreErrors.ErrNoResults
	}
	chosen := results[best.Index]
	r.deps.Renderer.Help(r.deps.Translator.T("fast_selected", chosen.Title, best.Score))
	r.logger.WithFields(log.Fields{
		"id":             best.ID,
		"score":          best.Score,
		"title_matched":  best.TitleMatched,
		"edition_forced": best.EditionForced,
	}).Info("Best match selected")
	return r.download(ctx, query, fp, chosen)
}

func (r *Runner) runInteractive(ctx context.Context, query string, results []subdivx.SearchResult) error {
	size := constants.DefaultPageSize
	if r.cfg.Lines > 0 {
		size = r.cfg.Lines
	}
	pager := ui.NewPager(len(results), size)
	r.cache.SetCapacity(pager.Size())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start, end := pager.Bounds()
		r.deps.Renderer.ClearScreen()
		r.deps.Renderer.Results(results[start:end], start)
		if pager.Pages() > 1 {
			r.deps.Renderer.Help(r.deps.Translator.T("page", pager.Page(), pager.Pages()))
		}

		action, idx, err := r.deps.Prompter.ChooseResult(end-start, pager.HasNext(), pager.HasPrev())
		if err != nil {
			return err
		}
		switch action {
		case ui.ActionNext:
			pager.Next()
			continue
		case ui.ActionPrev:
			pager.Prev()
			continue
		case ui.ActionExit:
			return nil
		}

		chosen := results[start+idx]
		r.deps.Renderer.ClearScreen()
		r.deps.Renderer.Description(chosen, download.DownloadURL(constants.Domain, chosen.ID))
		if r.cfg.Comments {
			r.deps.Renderer.Comments(r.comments(ctx, chosen.ID))
		}

		next, err := r.deps.Prompter.ChooseAction()
		if err != nil {
			return err
		}
		switch next {
		case ui.ActionBack:
			continue
		case ui.ActionExit:
			return nil
		}

		if err := r.download(ctx, query, r.deps.Parser.Parse(query), chosen); err != nil {
			return err
		}
		if !r.cfg.NoExit {
			return nil
		}
	}
}

func (r *Runner) comments(ctx context.Context, id string) []string {
	if cached, ok := r.cache.Get(id); ok {
		return cached
	}
	comments := r.deps.Comments.FetchComments(ctx, id)
	r.cache.Put(id, comments)
	return comments
}

// download fetches, extracts and places the subtitles of one result.
func (r *Runner) download(ctx context.Context, query string, fp release.Fingerprint, res subdivx.SearchResult) error {
	r.deps.Renderer.Help(r.deps.Translator.T("downloading", res.ID))
	archive, err := r.deps.Fetcher.Fetch(ctx, res.ID)
	if err != nil {
		return err
	}

	tmp, err := fileops.TempDir(r.cfg.Location)
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	r.deps.Renderer.Help(r.deps.Translator.T("extracting"))
	files, err := r.deps.Extractor.Extract(archive, tmp)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return coreErrors.ErrNoSubtitleInArchive
	}

	if r.cfg.Season {
		placed, err := fileops.PlaceSeason(files, r.cfg.Location, r.cfg.NoRename)
		if err != nil {
			return err
		}
		r.deps.Renderer.Message(r.deps.Translator.T("done_season", len(placed), r.cfg.Location))
		return nil
	}

	file, err := r.pickFile(fp, files)
	if err != nil {
		return err
	}
	target, err := fileops.MoveSubtitle(file, r.cfg.Location, fileops.TargetName(query, file, r.cfg.NoRename))
	if err != nil {
		return err
	}
	r.logger.WithFields(log.Fields{"id": res.ID, "file": target}).Info("Subtitle placed")
	r.deps.Renderer.Message(r.deps.Translator.T("done", filepath.Base(target)))
	return nil
}

func (r *Runner) pickFile(fp release.Fingerprint, files []string) (string, error) {
	switch {
	case len(files) == 1:
		return files[0], nil
	case r.cfg.Fast:
		return r.deps.Scorer.SelectBestSubtitle(fp, files), nil
	}
	r.deps.Renderer.Files(files)
	idx, err := r.deps.Prompter.ChooseFile(len(files))
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(files) {
		return "", fmt.Errorf("file index %d out of range", idx)
	}
	return files[idx], nil
}

// IsUserExit reports whether err only means the user left a menu.
func IsUserExit(err error) bool {
	return errors.Is(err, coreErrors.ErrUserExit)
}
