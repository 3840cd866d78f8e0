package subdivx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-querystring/query"
	"github.com/sirupsen/logrus"

	"github.com/angelospk/subdivx-dl/internal/constants"
	"github.com/angelospk/subdivx-dl/internal/httpclient"
	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
	"github.com/angelospk/subdivx-dl/pkg/core/session"
)

// SessionDeleter drops a session the site no longer accepts.
type SessionDeleter interface {
	Delete() error
}

// Options tunes the search retry loop.
type Options struct {
	// Attempts is the total number of search requests, including the first.
	Attempts int
	// Backoff is the wait before the second attempt; it doubles afterwards.
	Backoff time.Duration
}

// Client talks to the site's AJAX endpoint.
type Client struct {
	http     *httpclient.Client
	sessions SessionDeleter
	opts     Options
	timer    backoff.Timer
	logger   *logrus.Logger
}

type searchForm struct {
	Table   string `url:"tabla"`
	Filters string `url:"filtros"`
	Token   string `url:"token"`
}

type commentsForm struct {
	ID string `url:"getComentarios"`
}

// NewClient creates a search client. Zero options select the defaults.
func NewClient(http *httpclient.Client, sessions SessionDeleter, opts Options, logger *logrus.Logger) *Client {
	if opts.Attempts <= 0 {
		opts.Attempts = constants.DefaultSearchAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = constants.DefaultSearchBackoff
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Client{http: http, sessions: sessions, opts: opts, logger: logger}
}

// SetTimer replaces the timer used between retries.
func (c *Client) SetTimer(t backoff.Timer) {
	c.timer = t
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.Backoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.opts.Backoff << uint(c.opts.Attempts)
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.Attempts-1)), ctx)
}

// Search queries the site. An empty answer is retried with exponential
// backoff; an unparseable answer deletes the session and is not retried.
func (c *Client) Search(ctx context.Context, state session.State, q string) ([]SearchResult, error) {
	form, err := query.Values(searchForm{Table: "resultados", Token: state.Token})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search form: %w", err)
	}
	form.Set("buscar"+state.WebVersion, q)

	var results []SearchResult
	attempt := 0
	op := func() error {
		attempt++
		resp, err := c.http.PostForm(ctx, constants.AjaxPath, form)
		if err != nil {
			return backoff.Permanent(err)
		}
		var payload searchResponse
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			if derr := c.sessions.Delete(); derr != nil {
				c.logger.WithError(derr).Warn("Failed to delete stale session")
			}
			return backoff.Permanent(fmt.Errorf("%w: %v", coreErrors.ErrSessionStale, err))
		}
		if len(payload.Data) == 0 {
			return coreErrors.ErrNoResults
		}
		results = make([]SearchResult, 0, len(payload.Data))
		for _, raw := range payload.Data {
			results = append(results, raw.toResult())
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.WithFields(logrus.Fields{
			"query":   q,
			"attempt": attempt,
			"wait":    wait,
		}).Debug("No results yet, retrying search")
	}

	if err := backoff.RetryNotifyWithTimer(op, c.retryPolicy(ctx), notify, c.timer); err != nil {
		if errors.Is(err, coreErrors.ErrNoResults) {
			c.logger.WithFields(logrus.Fields{"query": q, "attempts": attempt}).Info("Search returned nothing")
		}
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{"query": q, "results": len(results)}).Info("Search finished")
	return results, nil
}

// FetchComments returns the user comments of a subtitle. Every failure
// yields an empty list.
func (c *Client) FetchComments(ctx context.Context, id string) []string {
	form, err := query.Values(commentsForm{ID: id})
	if err != nil {
		return []string{}
	}
	resp, err := c.http.PostForm(ctx, constants.AjaxPath, form)
	if err != nil {
		c.logger.WithError(err).WithField("id", id).Debug("Comment fetch failed")
		return []string{}
	}
	var payload struct {
		Data []struct {
			Comment flexString `json:"comentario"`
		} `json:"aaData"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		c.logger.WithError(err).WithField("id", id).Debug("Comment response unparseable")
		return []string{}
	}
	comments := make([]string, 0, len(payload.Data))
	for _, d := range payload.Data {
		if text := StripTags(string(d.Comment)); text != "" {
			comments = append(comments, text)
		}
	}
	return comments
}
