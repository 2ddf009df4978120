package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/blob"
	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
	"github.com/trendmicro/cloud-risk-assessment-agent/pkg/sqldb"
)

func TestMain(m *testing.M) {
	// The opencensus view worker is started by an imported package's init
	// and lives for the whole process.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeRunner struct {
	got    []model.TurnInput
	reset  []string
	result *model.TurnResult
	err    error
}

func (f *fakeRunner) Invoke(_ context.Context, in model.TurnInput) (*model.TurnResult, error) {
	f.got = append(f.got, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRunner) Process(context.Context, string, string, *model.ConversationState) (*model.TurnResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeRunner) Reset(_ context.Context, threadID string) error {
	f.reset = append(f.reset, threadID)
	return nil
}

func newBlobStore(t *testing.T) *blob.Store {
	t.Helper()
	raw, err := sql.Open(sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { raw.Close() })

	db, err := sqldb.Wrap(raw, sqldb.DriverSQLite)
	require.NoError(t, err)
	s := blob.NewStore(db, "http://localhost:8000")
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestServer_PostMessage(t *testing.T) {
	runner := &fakeRunner{result: &model.TurnResult{
		ThreadID: "t1",
		Chunks:   []string{"Executive summary.", "Insights."},
		Visited:  []string{"intent", "summary", "insight", "conclude"},
		Attachment: &model.Attachment{
			Name: "Report Table",
			Key:  "abc/report-aws.csv",
			URL:  "http://localhost:8000/blob/abc",
		},
	}}
	srv := httptest.NewServer(New(runner, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/threads/t1/messages", "application/json",
		strings.NewReader(`{"message": "/report aws"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got model.TurnResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []string{"Executive summary.", "Insights."}, got.Chunks)
	require.NotNil(t, got.Attachment)
	assert.Equal(t, "http://localhost:8000/blob/abc", got.Attachment.URL)

	require.Len(t, runner.got, 1)
	assert.Equal(t, model.TurnInput{ThreadID: "t1", Message: "/report aws"}, runner.got[0])
}

func TestServer_PostMessageErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		runnerErr  error
		wantStatus int
		wantError  string
	}{
		{name: "malformed body", body: `{"message":`, wantStatus: http.StatusBadRequest, wantError: errx.BadRequestMessage},
		{name: "rejected input", body: `{"message": ""}`, runnerErr: errx.BadRequest(errors.New("message is required")), wantStatus: http.StatusBadRequest, wantError: errx.BadRequestMessage},
		{name: "store failure", body: `{"message": "hi"}`, runnerErr: errx.WrapRedis(errors.New("connection refused")), wantStatus: http.StatusBadGateway, wantError: errx.RedisErrorMessage},
		{name: "unexpected failure", body: `{"message": "hi"}`, runnerErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantError: errx.SystemErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(New(&fakeRunner{err: tt.runnerErr}, nil).Handler())
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/threads/t1/messages", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var body errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestServer_ResetThread(t *testing.T) {
	runner := &fakeRunner{}
	srv := httptest.NewServer(New(runner, nil).Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/threads/t9", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"t9"}, runner.reset)
}

func TestServer_Blob(t *testing.T) {
	blobs := newBlobStore(t)
	_, err := blobs.Upload(context.Background(), "abc/report-aws.csv", []byte("id,type\n"), "text/csv")
	require.NoError(t, err)

	srv := httptest.NewServer(New(&fakeRunner{}, blobs).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/blob/abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "id,type\n", string(body))

	missing, err := http.Get(srv.URL + "/blob/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestServer_Health(t *testing.T) {
	srv := httptest.NewServer(New(&fakeRunner{}, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	wrong, err := http.Get(srv.URL + "/threads/t1/messages")
	require.NoError(t, err)
	wrong.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, wrong.StatusCode)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(&fakeRunner{}, nil).Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
}
