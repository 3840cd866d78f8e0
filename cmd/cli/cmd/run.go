package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/angelospk/subdivx-dl/internal/constants"
	"github.com/angelospk/subdivx-dl/internal/httpclient"
	"github.com/angelospk/subdivx-dl/pkg/app"
	"github.com/angelospk/subdivx-dl/pkg/config"
	"github.com/angelospk/subdivx-dl/pkg/core/download"
	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
	"github.com/angelospk/subdivx-dl/pkg/core/i18n"
	"github.com/angelospk/subdivx-dl/pkg/core/matcher"
	"github.com/angelospk/subdivx-dl/pkg/core/release"
	"github.com/angelospk/subdivx-dl/pkg/core/session"
	"github.com/angelospk/subdivx-dl/pkg/core/subdivx"
	"github.com/angelospk/subdivx-dl/pkg/core/version"
	"github.com/angelospk/subdivx-dl/pkg/ui"
)

// UpdateBaseURL is where --check-update looks for the published version.
var UpdateBaseURL = version.UpstreamBaseURL

// NewRunnerFunc allows overriding the runner creation for testing.
var NewRunnerFunc = func(cfg config.Config, logger *logrus.Logger, in io.Reader, out io.Writer) (app.RunnerInterface, error) {
	client := httpclient.New(cfg.BaseURL, cfg.UserAgent, cfg.HTTPTimeout, logger)

	storePath, err := session.DefaultPath()
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(session.NewStore(storePath), client, cfg.SessionTTL, logger)
	searcher := subdivx.NewClient(client, sessions, subdivx.Options{
		Attempts: cfg.SearchAttempts,
		Backoff:  cfg.SearchBackoff,
	}, logger)

	tr := i18n.New(cfg.LanguageCode)
	parser := release.NewParser(nil, logger)

	return app.NewRunner(cfg, app.Deps{
		Sessions:   sessions,
		Searcher:   searcher,
		Comments:   searcher,
		Fetcher:    download.NewDownloader(client, cfg.MirrorCount, logger),
		Extractor:  download.Extractor{},
		Parser:     parser,
		Scorer:     matcher.NewScorer(parser, matcher.DefaultWeights(), logger),
		Renderer:   ui.NewRenderer(out, tr, cfg.Layout, cfg.Style, cfg.DisableHelp),
		Prompter:   ui.NewPrompter(in, out, tr),
		Translator: tr,
	}, logger), nil
}

// newLogger logs to a file in the temp dir, or to stderr at debug level with
// verbose.
func newLogger(verbose bool, stderr io.Writer) (*logrus.Logger, func()) {
	logger := logrus.New()
	if verbose {
		logger.SetOutput(stderr)
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
		return logger, func() {}
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "02/01/06 15:04:05",
		DisableColors:   true,
	})
	logger.SetLevel(logrus.InfoLevel)
	f, err := os.Create(filepath.Join(os.TempDir(), constants.AppName+".log"))
	if err != nil {
		logger.SetOutput(io.Discard)
		return logger, func() {}
	}
	logger.SetOutput(f)
	return logger, func() { f.Close() }
}

// reportedError is a failure whose message was already shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// reportRunError prints the user facing message for err. Informational
// outcomes return nil so the process exits with status 0.
func reportRunError(cmd *cobra.Command, tr *i18n.Translator, query string, err error) error {
	if err == nil {
		return nil
	}
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	switch {
	case errors.Is(err, coreErrors.ErrUserExit):
		return nil
	case errors.Is(err, coreErrors.ErrNoResults):
		fmt.Fprintln(out, tr.T("not_found", query))
		return nil
	case errors.Is(err, coreErrors.ErrNoFileAtMirrors):
		fmt.Fprintln(out, tr.T("no_file_at_mirrors"))
		return nil
	case errors.Is(err, context.Canceled):
	case errors.Is(err, coreErrors.ErrNetwork):
		fmt.Fprintln(errOut, tr.T("network_error", err))
		fmt.Fprintln(errOut, tr.T("check_connection"))
	case errors.Is(err, coreErrors.ErrSessionStale):
		fmt.Fprintln(errOut, tr.T("session_stale"))
	case errors.Is(err, coreErrors.ErrPermission):
		fmt.Fprintln(errOut, tr.T("permission_denied", permissionPath(err)))
	case errors.Is(err, coreErrors.ErrNoSubtitleInArchive):
		fmt.Fprintln(errOut, tr.T("no_subtitle_in_archive"))
	default:
		fmt.Fprintln(errOut, tr.T("error", err))
	}
	return &reportedError{err: err}
}

// permissionPath extracts the path appended after ErrPermission.
func permissionPath(err error) string {
	msg := err.Error()
	prefix := coreErrors.ErrPermission.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

func runCheckUpdate(ctx context.Context, cmd *cobra.Command, tr *i18n.Translator, cfg config.Config, logger *logrus.Logger) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tr.T("installed_version", version.Version))

	client := httpclient.New(UpdateBaseURL, cfg.UserAgent, cfg.HTTPTimeout, logger)
	latest, err := version.NewChecker(client, "").Latest(ctx)
	if err != nil {
		logger.WithError(err).Error("Update check failed")
		fmt.Fprintln(cmd.ErrOrStderr(), tr.T("update_failed"))
		return &reportedError{err: err}
	}
	if version.IsNewer(latest, version.Version) {
		fmt.Fprintln(out, tr.T("new_version", latest))
		return nil
	}
	fmt.Fprintln(out, tr.T("latest_version"))
	return nil
}
