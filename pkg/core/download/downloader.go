package download

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/angelospk/subdivx-dl/internal/constants"
	"github.com/angelospk/subdivx-dl/internal/httpclient"
	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
)

// Downloader fetches subtitle archives from the numbered mirrors.
type Downloader struct {
	client  *httpclient.Client
	mirrors int
	logger  *logrus.Logger
}

// NewDownloader creates a Downloader probing mirrors from mirrors down to 1.
func NewDownloader(client *httpclient.Client, mirrors int, logger *logrus.Logger) *Downloader {
	if mirrors <= 0 {
		mirrors = constants.DefaultMirrorCount
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Downloader{client: client, mirrors: mirrors, logger: logger}
}

// Fetch probes the mirrors one at a time and returns the first response
// carrying a known archive signature.
func (d *Downloader) Fetch(ctx context.Context, id string) (*Archive, error) {
	var lastErr error
	responded := false
	for n := d.mirrors; n >= 1; n-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := d.logger.WithFields(logrus.Fields{"id": id, "mirror": n})

		resp, err := d.client.Get(ctx, fmt.Sprintf("/sub%d/%s", n, id), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Debug("Mirror unreachable")
			lastErr = err
			continue
		}
		responded = true
		if !resp.OK() {
			log.WithField("status", resp.StatusCode).Debug("No file at mirror")
			continue
		}
		kind := DetectKind(resp.Body)
		if kind == KindUnknown {
			log.Debug("Mirror answered without an archive")
			continue
		}
		log.WithField("kind", kind).Info("Archive found")
		return &Archive{ID: id, Kind: kind, Mirror: n, Data: resp.Body}, nil
	}

	if !responded && lastErr != nil {
		return nil, fmt.Errorf("all mirrors failed: %w", lastErr)
	}
	return nil, fmt.Errorf("%w (id %s)", coreErrors.ErrNoFileAtMirrors, id)
}

// DownloadURL is the public page of a subtitle.
func DownloadURL(domain, id string) string {
	return fmt.Sprintf("https://%s/%s", domain, id)
}
