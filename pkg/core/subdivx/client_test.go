package subdivx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelospk/subdivx-dl/internal/httpclient"
	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
	"github.com/angelospk/subdivx-dl/pkg/core/session"
	"github.com/angelospk/subdivx-dl/pkg/core/subdivx"
)

// recordingTimer fires immediately and remembers every requested wait.
type recordingTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (r *recordingTimer) Start(d time.Duration) {
	r.waits = append(r.waits, d)
	r.c = make(chan time.Time, 1)
	r.c <- time.Now()
}

func (r *recordingTimer) Stop() {}

func (r *recordingTimer) C() <-chan time.Time { return r.c }

type fakeSessions struct{ deleted int }

func (f *fakeSessions) Delete() error {
	f.deleted++
	return nil
}

var testState = session.State{WebVersion: "210", Cookie: "sdx=abc", Token: "tok"}

func newClient(t *testing.T, handler http.HandlerFunc) (*subdivx.Client, *fakeSessions, *recordingTimer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	hc := httpclient.New(server.URL, "test-agent", 5*time.Second, nil)
	hc.SetHeader("Cookie", testState.Cookie)
	sessions := &fakeSessions{}
	timer := &recordingTimer{}
	c := subdivx.NewClient(hc, sessions, subdivx.Options{}, nil)
	c.SetTimer(timer)
	return c, sessions, timer
}

func TestClient_Search_SendsForm(t *testing.T) {
	c, _, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/inc/ajax.php", r.URL.Path)
		assert.Equal(t, "sdx=abc", r.Header.Get("Cookie"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "resultados", r.PostForm.Get("tabla"))
		assert.Contains(t, r.PostForm, "filtros")
		assert.Empty(t, r.PostForm.Get("filtros"))
		assert.Equal(t, "the matrix", r.PostForm.Get("buscar210"))
		assert.Equal(t, "tok", r.PostForm.Get("token"))

		w.Write([]byte(`{"aaData":[
			{"id":101,"titulo":"The Matrix (1999)","descripcion":"BluRay &amp; <b>1080p</b><br>x264","descargas":"1200","nick":"neo","fecha_subida":"2021-05-05 12:30:00"},
			{"id":"102","titulo":"The Matrix","descripcion":"dvd","descargas":7,"nick":"trinity","fecha_subida":null}
		]}`))
	})

	results, err := c.Search(context.Background(), testState, "the matrix")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, subdivx.SearchResult{
		ID:          "101",
		Title:       "The Matrix (1999)",
		Description: "BluRay & 1080p x264",
		Downloads:   1200,
		Uploader:    "neo",
		UploadDate:  "05/05/2021",
	}, results[0])
	assert.Equal(t, "102", results[1].ID)
	assert.Equal(t, 7, results[1].Downloads)
	assert.Equal(t, subdivx.UnknownDate, results[1].UploadDate)
}

func TestClient_Search_RetriesEmptyWithBackoff(t *testing.T) {
	var calls atomic.Int32
	c, _, timer := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"aaData":[]}`))
	})

	_, err := c.Search(context.Background(), testState, "nothing")

	assert.True(t, errors.Is(err, coreErrors.ErrNoResults))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, timer.waits)
}

func TestClient_Search_SucceedsOnRetry(t *testing.T) {
	var calls atomic.Int32
	c, _, timer := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"aaData":[]}`))
			return
		}
		w.Write([]byte(`{"aaData":[{"id":"1","titulo":"Heat","descripcion":"","descargas":"3","nick":"x","fecha_subida":"2020-01-01 00:00:00"}]}`))
	})

	results, err := c.Search(context.Background(), testState, "heat")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, timer.waits)
}

func TestClient_Search_MalformedDeletesSession(t *testing.T) {
	var calls atomic.Int32
	c, sessions, timer := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`<html>token expired</html>`))
	})

	_, err := c.Search(context.Background(), testState, "heat")

	assert.True(t, errors.Is(err, coreErrors.ErrSessionStale))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, sessions.deleted)
	assert.Empty(t, timer.waits)
}

func TestClient_Search_StatusErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Search(context.Background(), testState, "heat")
	assert.True(t, errors.Is(err, coreErrors.ErrUnexpectedStatus))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchComments(t *testing.T) {
	t.Run("returns stripped comments", func(t *testing.T) {
		c, _, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "55", r.PostForm.Get("getComentarios"))
			w.Write([]byte(`{"aaData":[{"comentario":"Funciona <b>perfecto</b>"},{"comentario":""},{"comentario":"Gracias &amp; saludos"}]}`))
		})
		assert.Equal(t, []string{"Funciona perfecto", "Gracias & saludos"}, c.FetchComments(context.Background(), "55"))
	})

	t.Run("failure yields empty list", func(t *testing.T) {
		c, _, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		comments := c.FetchComments(context.Background(), "55")
		assert.NotNil(t, comments)
		assert.Empty(t, comments)
	})

	t.Run("garbage yields empty list", func(t *testing.T) {
		c, _, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("nope"))
		})
		assert.Empty(t, c.FetchComments(context.Background(), "55"))
	})
}
