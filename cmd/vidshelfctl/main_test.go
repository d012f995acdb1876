package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fedutinova/vidshelf/internal/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves one job per video that walks through the given statuses,
// one per GET.
type fakeAPI struct {
	mu       sync.Mutex
	statuses map[string][]string
	detail   string
	ids      map[string]string
	polls    map[string]int
}

func newFakeAPI(statuses map[string][]string) *fakeAPI {
	return &fakeAPI{statuses: statuses, ids: map[string]string{}, polls: map[string]int{}}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v1/transcribe/"):
		videoID := strings.TrimPrefix(r.URL.Path, "/v1/transcribe/")
		if _, ok := f.statuses[videoID]; !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"success":false,"error":"video not found"}`)
			return
		}
		id := uuid.NewString()
		f.ids[id] = videoID
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"success":true,"job":{"id":%q,"targetId":%q,"kind":"transcribe","status":"pending"}}`, id, videoID)

	case strings.HasPrefix(r.URL.Path, "/v1/jobs/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
		videoID, ok := f.ids[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"success":false,"error":"job not found"}`)
			return
		}
		seq := f.statuses[videoID]
		n := min(f.polls[id], len(seq)-1)
		f.polls[id]++
		detail := "null"
		if seq[n] == "failed" {
			detail = fmt.Sprintf("%q", f.detail)
		}
		fmt.Fprintf(w, `{"success":true,"job":{"id":%q,"targetId":%q,"kind":"transcribe","status":%q,"errorDetail":%s}}`, id, videoID, seq[n], detail)

	case r.Method == http.MethodPost && r.URL.Path == "/v1/chat":
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprintf(w, `{"success":true,"chat":{"answer":%q,"model":"m","contextSource":"chunks","sources":[{"videoId":"abc123","videoTitle":"Go Concurrency"}]}}`, "you asked: "+body.Message)

	case strings.HasPrefix(r.URL.Path, "/v1/transcripts/"):
		videoID := strings.TrimPrefix(r.URL.Path, "/v1/transcripts/")
		fmt.Fprintf(w, `{"success":true,"transcript":{"videoId":%q,"content":"hello there"}}`, videoID)

	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"success":false,"error":"no route"}`)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTranscribe_WatchUntilDone(t *testing.T) {
	api := newFakeAPI(map[string][]string{
		"abc123": {"downloading", "transcribing", "completed"},
		"xyz789": {"transcribing", "completed"},
	})
	srv := httptest.NewServer(api)
	defer srv.Close()

	out, err := run(t, "--server", srv.URL, "transcribe", "abc123", "xyz789", "--watch", "--interval", "5ms")
	require.NoError(t, err)

	assert.Contains(t, out, "abc123\t")
	assert.Contains(t, out, "\tstarted")
	assert.Contains(t, out, "\ttranscribing")
	assert.Equal(t, 2, strings.Count(out, "\tcompleted"))
	assert.Equal(t, 2, strings.Count(out, "transcript ready (11 chars)"))
}

func TestTranscribe_FailureIsReported(t *testing.T) {
	api := newFakeAPI(map[string][]string{"abc123": {"downloading", "failed"}})
	api.detail = "ERROR: Video unavailable"
	srv := httptest.NewServer(api)
	defer srv.Close()

	out, err := run(t, "--server", srv.URL, "transcribe", "abc123", "-w", "--interval", "5ms")
	require.Error(t, err)
	assert.Contains(t, out, "error: ERROR: Video unavailable")
}

func TestTranscribe_UnknownVideo(t *testing.T) {
	srv := httptest.NewServer(newFakeAPI(map[string][]string{}))
	defer srv.Close()

	out, err := run(t, "--server", srv.URL, "transcribe", "nope")
	require.Error(t, err)
	assert.Contains(t, out, "nope\t-\t")
}

func TestJob_BadID(t *testing.T) {
	_, err := run(t, "job", "not-a-uuid")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	out, err := run(t, "token", "--auth-secret", "s3cret", "--role", "reader", "--subject", "me")
	require.NoError(t, err)

	claims, err := auth.ParseToken("s3cret", "vidshelf", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"reader"}, claims.Roles)
	assert.Equal(t, "me", claims.Subject)

	_, err = run(t, "token", "--auth-secret", "s3cret", "--role", "root")
	assert.Error(t, err)

	_, err = run(t, "token")
	assert.Error(t, err)
}

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(newFakeAPI(nil))
	defer srv.Close()

	out, err := run(t, "--server", srv.URL, "ask", "what", "is", "select?")
	require.NoError(t, err)
	assert.Contains(t, out, "you asked: what is select?\n")
	assert.Contains(t, out, "based on chunks:")
	assert.Contains(t, out, "abc123\tGo Concurrency")

	out, err = run(t, "--server", srv.URL, "ask", "--json", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, `"contextSource": "chunks"`)
}
