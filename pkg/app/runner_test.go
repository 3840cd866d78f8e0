package app_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/angelospk/subdivx-dl/pkg/app"
	"github.com/angelospk/subdivx-dl/pkg/config"
	"github.com/angelospk/subdivx-dl/pkg/core/download"
	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
	"github.com/angelospk/subdivx-dl/pkg/core/i18n"
	"github.com/angelospk/subdivx-dl/pkg/core/matcher"
	"github.com/angelospk/subdivx-dl/pkg/core/release"
	"github.com/angelospk/subdivx-dl/pkg/core/session"
	"github.com/angelospk/subdivx-dl/pkg/core/subdivx"
	"github.com/angelospk/subdivx-dl/pkg/ui"
)

// --- Mocks --- //

type MockSessions struct{ mock.Mock }

func (m *MockSessions) Ensure(ctx context.Context, forceNew bool) (session.State, error) {
	args := m.Called(ctx, forceNew)
	return args.Get(0).(session.State), args.Error(1)
}

type MockSearcher struct{ mock.Mock }

func (m *MockSearcher) Search(ctx context.Context, state session.State, query string) ([]subdivx.SearchResult, error) {
	args := m.Called(ctx, state, query)
	results, _ := args.Get(0).([]subdivx.SearchResult)
	return results, args.Error(1)
}

type MockComments struct{ mock.Mock }

func (m *MockComments) FetchComments(ctx context.Context, id string) []string {
	args := m.Called(ctx, id)
	comments, _ := args.Get(0).([]string)
	return comments
}

type MockFetcher struct{ mock.Mock }

func (m *MockFetcher) Fetch(ctx context.Context, id string) (*download.Archive, error) {
	args := m.Called(ctx, id)
	if fn, ok := args.Get(0).(func(context.Context, string) *download.Archive); ok {
		return fn(ctx, id), args.Error(1)
	}
	archive, _ := args.Get(0).(*download.Archive)
	return archive, args.Error(1)
}

// fakeExtractor writes the configured file names into the extraction dir.
type fakeExtractor struct {
	names []string
}

func (f *fakeExtractor) Extract(archive *download.Archive, dir string) ([]string, error) {
	var paths []string
	for _, name := range f.names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(archive.ID+":"+name), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// --- Helpers --- //

type harness struct {
	sessions  *MockSessions
	searcher  *MockSearcher
	comments  *MockComments
	fetcher   *MockFetcher
	extractor *fakeExtractor
	out       *bytes.Buffer
	location  string
}

func newHarness(t *testing.T, results []subdivx.SearchResult, files ...string) *harness {
	h := &harness{
		sessions:  new(MockSessions),
		searcher:  new(MockSearcher),
		comments:  new(MockComments),
		fetcher:   new(MockFetcher),
		extractor: &fakeExtractor{names: files},
		out:       &bytes.Buffer{},
		location:  t.TempDir(),
	}
	state := session.State{WebVersion: "123", Token: "tok"}
	h.sessions.On("Ensure", mock.Anything, false).Return(state, nil)
	if results != nil {
		h.searcher.On("Search", mock.Anything, state, mock.Anything).Return(results, nil)
	}
	h.fetcher.On("Fetch", mock.Anything, mock.Anything).Return(
		func(_ context.Context, id string) *download.Archive {
			return &download.Archive{ID: id, Kind: download.KindZip, Mirror: 9}
		}, nil)
	return h
}

func (h *harness) runner(cfg config.Config, input string) *app.Runner {
	tr := i18n.New("en")
	parser := release.NewParser(nil, nil)
	cfg.Location = h.location
	return app.NewRunner(cfg, app.Deps{
		Sessions:   h.sessions,
		Searcher:   h.searcher,
		Comments:   h.comments,
		Fetcher:    h.fetcher,
		Extractor:  h.extractor,
		Parser:     parser,
		Scorer:     matcher.NewScorer(parser, matcher.DefaultWeights(), nil),
		Renderer:   ui.NewRenderer(h.out, tr, cfg.Layout, cfg.Style, cfg.DisableHelp),
		Prompter:   ui.NewPrompter(strings.NewReader(input), h.out, tr),
		Translator: tr,
	}, nil)
}

func (h *harness) fetchedIDs() []string {
	var ids []string
	for _, c := range h.fetcher.Calls {
		if c.Method == "Fetch" {
			ids = append(ids, c.Arguments.String(1))
		}
	}
	return ids
}

func assertNoTempDirs(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-subdivx"), "leftover %s", e.Name())
	}
}

// --- Tests --- //

func TestRunner_FastPath(t *testing.T) {
	results := []subdivx.SearchResult{
		{ID: "0", Title: "The Matrix (1999)", Description: "DVDRip XviD"},
		{ID: "1", Title: "The Matrix (1999)", Description: "BluRay 1080p x264"},
	}
	h := newHarness(t, results, "Matrix.DVDRip.srt", "Matrix.1080p.BluRay.srt")

	err := h.runner(config.Config{Fast: true}, "").Run(context.Background(), "The Matrix 1999 1080p")
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, h.fetchedIDs())
	data, err := os.ReadFile(filepath.Join(h.location, "The Matrix 1999 1080p.srt"))
	require.NoError(t, err)
	assert.Equal(t, "1:Matrix.1080p.BluRay.srt", string(data))
	assertNoTempDirs(t, h.location)
	assert.Contains(t, h.out.String(), "Best match: The Matrix (1999)")
}

func TestRunner_FastPathNoRename(t *testing.T) {
	h := newHarness(t, []subdivx.SearchResult{{ID: "9", Title: "Heat (1995)"}}, "Heat.1995.BluRay.srt")

	err := h.runner(config.Config{Fast: true, NoRename: true}, "").Run(context.Background(), "Heat 1995")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(h.location, "Heat.1995.BluRay.srt"))
}

func TestRunner_OrderAndLines(t *testing.T) {
	results := []subdivx.SearchResult{
		{ID: "low", Title: "Heat (1995)", Downloads: 3},
		{ID: "high", Title: "Heat (1995)", Downloads: 300},
	}
	h := newHarness(t, results, "heat.srt")

	cfg := config.Config{Fast: true, OrderBy: string(subdivx.OrderDownloads), Lines: 1}
	require.NoError(t, h.runner(cfg, "").Run(context.Background(), "Heat"))
	assert.Equal(t, []string{"high"}, h.fetchedIDs())
}

func TestRunner_SessionErrorStops(t *testing.T) {
	h := newHarness(t, nil)
	h.sessions.ExpectedCalls = nil
	h.sessions.On("Ensure", mock.Anything, true).Return(session.State{}, coreErrors.ErrNetwork)

	err := h.runner(config.Config{NewSession: true}, "").Run(context.Background(), "anything")
	assert.True(t, errors.Is(err, coreErrors.ErrNetwork))
	h.searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_SearchErrorPropagates(t *testing.T) {
	h := newHarness(t, nil)
	h.searcher.On("Search", mock.Anything, mock.Anything, "nothing here").Return(nil, coreErrors.ErrNoResults)

	err := h.runner(config.Config{Fast: true}, "").Run(context.Background(), "nothing here")
	assert.True(t, errors.Is(err, coreErrors.ErrNoResults))
	assert.Empty(t, h.fetchedIDs())
}

func TestRunner_FetchErrorPropagates(t *testing.T) {
	h := newHarness(t, []subdivx.SearchResult{{ID: "5", Title: "Heat (1995)"}})
	h.fetcher.ExpectedCalls = nil
	h.fetcher.On("Fetch", mock.Anything, "5").Return(nil, coreErrors.ErrNoFileAtMirrors)

	err := h.runner(config.Config{Fast: true}, "").Run(context.Background(), "Heat")
	assert.True(t, errors.Is(err, coreErrors.ErrNoFileAtMirrors))
	assertNoTempDirs(t, h.location)
}

func TestRunner_EmptyArchive(t *testing.T) {
	h := newHarness(t, []subdivx.SearchResult{{ID: "5", Title: "Heat (1995)"}})

	err := h.runner(config.Config{Fast: true}, "").Run(context.Background(), "Heat")
	assert.True(t, errors.Is(err, coreErrors.ErrNoSubtitleInArchive))
}

func TestRunner_InteractiveDownload(t *testing.T) {
	results := []subdivx.SearchResult{
		{ID: "a", Title: "Heat (1995)", Description: "DVDRip"},
		{ID: "b", Title: "Heat (1995)", Description: "BluRay remux"},
	}
	h := newHarness(t, results, "Heat.srt")

	err := h.runner(config.Config{}, "2\n1\n").Run(context.Background(), "Heat 1995")
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, h.fetchedIDs())
	assert.FileExists(t, filepath.Join(h.location, "Heat 1995.srt"))
	out := h.out.String()
	assert.Contains(t, out, "BluRay remux")
	assert.Contains(t, out, "Download page: https://subdivx.com/b")
	assert.Contains(t, out, "Done! Subtitle saved as: Heat 1995.srt")
}

func TestRunner_InteractiveExitAndBack(t *testing.T) {
	h := newHarness(t, []subdivx.SearchResult{{ID: "a", Title: "Heat (1995)"}})

	require.NoError(t, h.runner(config.Config{}, "1\n2\n0\n").Run(context.Background(), "Heat"))
	assert.Empty(t, h.fetchedIDs())

	err := h.runner(config.Config{}, "1\n").Run(context.Background(), "Heat")
	assert.True(t, app.IsUserExit(err), "end of input leaves the menu")
}

func TestRunner_CommentsAreCached(t *testing.T) {
	h := newHarness(t, []subdivx.SearchResult{{ID: "a", Title: "Heat (1995)"}})
	h.comments.On("FetchComments", mock.Anything, "a").Return([]string{"great sync"}).Once()

	err := h.runner(config.Config{Comments: true}, "1\n2\n1\n0\n").Run(context.Background(), "Heat")
	require.NoError(t, err)

	h.comments.AssertNumberOfCalls(t, "FetchComments", 1)
	assert.Equal(t, 2, strings.Count(h.out.String(), "great sync"))
}

func TestRunner_FileMenu(t *testing.T) {
	h := newHarness(t, []subdivx.SearchResult{{ID: "a", Title: "Heat (1995)"}}, "Heat.DVDRip.srt", "Heat.BluRay.srt")

	err := h.runner(config.Config{}, "1\n1\n2\n").Run(context.Background(), "Heat")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(h.location, "Heat.srt"))
	require.NoError(t, err)
	assert.Equal(t, "a:Heat.BluRay.srt", string(data))
	assert.Contains(t, h.out.String(), "Heat.DVDRip.srt")
}

func TestRunner_Season(t *testing.T) {
	h := newHarness(t, []subdivx.SearchResult{{ID: "s", Title: "Show S01"}}, "Show.S01E01.720p.srt", "Show.S01E02.720p.srt")

	err := h.runner(config.Config{Fast: true, Season: true}, "").Run(context.Background(), "Show S01")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(h.location, "Show - S01E01.srt"))
	assert.FileExists(t, filepath.Join(h.location, "Show - S01E02.srt"))
	assert.Contains(t, h.out.String(), "Done! 2 subtitles saved in:")
}

func TestRunner_NoExitReturnsToMenu(t *testing.T) {
	results := []subdivx.SearchResult{
		{ID: "a", Title: "Heat (1995)"},
		{ID: "b", Title: "Heat (1995)"},
	}
	h := newHarness(t, results, "Heat.srt")

	err := h.runner(config.Config{NoExit: true, NoRename: true}, "1\n1\n2\n1\n0\n").Run(context.Background(), "Heat")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, h.fetchedIDs())
}

func TestRunner_Pagination(t *testing.T) {
	var results []subdivx.SearchResult
	for i := 0; i < 12; i++ {
		results = append(results, subdivx.SearchResult{
			ID:          fmt.Sprint(i),
			Title:       fmt.Sprintf("Heat part %d", i),
			Description: fmt.Sprintf("release-%02d", i),
		})
	}
	h := newHarness(t, results)

	err := h.runner(config.Config{}, "n\n1\n0\n").Run(context.Background(), "Heat")
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "Page 1 of 2")
	assert.Contains(t, out, "Page 2 of 2")
	assert.Contains(t, out, "release-10")
	assert.NotContains(t, out, "release-00")
}
