package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapshotfetcher/internal/coordinator"
	"snapshotfetcher/internal/fetcher"
	"snapshotfetcher/internal/ratelimit"
	"snapshotfetcher/internal/testutil"
)

func newTestServer(t *testing.T, f fetcher.Fetcher) (*Server, *httptest.Server) {
	t.Helper()
	coord := coordinator.New(f, ratelimit.Throttle{ChunkSize: 10})
	srv := New(Config{Port: 0}, coord)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.cancel()
		srv.running.Wait()
	})
	return srv, ts
}

func uploadText(t *testing.T, ts *httptest.Server, list string) UploadResponse {
	t.Helper()
	resp, err := http.PostForm(ts.URL+"/uploads", url.Values{"tickers": {list}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var up UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	return up
}

func uploadFile(t *testing.T, ts *httptest.Server, name, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/uploads", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func getStatus(t *testing.T, ts *httptest.Server, id string) JobStatus {
	t.Helper()
	resp, err := http.Get(ts.URL + "/jobs/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st JobStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func runAndWait(t *testing.T, ts *httptest.Server, id string) JobStatus {
	t.Helper()
	resp, err := http.Post(ts.URL+"/jobs/"+id+"/run", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var st JobStatus
	require.Eventually(t, func() bool {
		st = getStatus(t, ts, id)
		return st.State == JobDone
	}, 2*time.Second, 10*time.Millisecond)
	return st
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(nil))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpload_Text(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(nil))

	up := uploadText(t, ts, "aapl, msft\nAAPL")
	assert.NotEmpty(t, up.ID)
	assert.Equal(t, "text", up.Source)
	assert.Equal(t, []string{"AAPL", "MSFT"}, up.Tickers)
}

func TestUpload_CSVFile(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(nil))

	resp := uploadFile(t, ts, "watchlist.csv", "Symbol\naapl\nmsft\n")
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var up UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	assert.Equal(t, "watchlist.csv", up.Source)
	assert.Equal(t, []string{"AAPL", "MSFT"}, up.Tickers)
}

func TestUpload_Rejected(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(nil))

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{name: "unsupported type", file: "tickers.txt", content: "AAPL", wantErr: "unsupported file type"},
		{name: "legacy workbook", file: "tickers.xls", content: "junk", wantErr: ".xls"},
		{name: "header only", file: "tickers.csv", content: "Ticker\n", wantErr: "no tickers found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := uploadFile(t, ts, tt.file, tt.content)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Contains(t, body["error"], tt.wantErr)
		})
	}
}

func TestUpload_Empty(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(nil))

	resp, err := http.PostForm(ts.URL+"/uploads", url.Values{})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJob_NotFoundAndInvalidID(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(nil))

	resp, err := http.Get(ts.URL + "/jobs/not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/jobs/00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunAndDownload_CSV(t *testing.T) {
	mock := testutil.NewMockFetcher(map[string]string{
		"AAPL": testutil.SnapshotPage("P/E", "29.1", "Market Cap", "2.9T"),
	})
	_, ts := newTestServer(t, mock)

	up := uploadText(t, ts, "AAPL BADTICKER")
	st := runAndWait(t, ts, up.ID)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.Processed)
	assert.Equal(t, 1, st.Failed)

	resp, err := http.Get(ts.URL + "/jobs/" + up.ID + "/download?format=csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="finviz_data.csv"`, resp.Header.Get("Content-Disposition"))

	rows, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Ticker", "P/E", "Market Cap", "Error"},
		{"AAPL", "29.1", "2.9T", ""},
		{"BADTICKER", "", "", "HTTP 404"},
	}, rows)
}

func TestDownload_XLSXDefault(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(map[string]string{
		"AAPL": testutil.SnapshotPage("P/E", "29.1"),
	}))

	up := uploadText(t, ts, "AAPL")
	runAndWait(t, ts, up.ID)

	resp, err := http.Get(ts.URL + "/jobs/" + up.ID + "/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "finviz_data.xlsx")
}

func TestDownload_BeforeFinished(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(nil))

	up := uploadText(t, ts, "AAPL")

	resp, err := http.Get(ts.URL + "/jobs/" + up.ID + "/download")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDownload_UnknownFormat(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(nil))

	up := uploadText(t, ts, "AAPL")

	resp, err := http.Get(ts.URL + "/jobs/" + up.ID + "/download?format=pdf")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRun_Twice(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewMockFetcher(nil))

	up := uploadText(t, ts, "AAPL")
	runAndWait(t, ts, up.ID)

	resp, err := http.Post(ts.URL+"/jobs/"+up.ID+"/run", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestShutdown_CancelsRunningJob(t *testing.T) {
	release := make(chan struct{})
	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, ticker string) fetcher.Result {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return fetcher.Success(ticker, testutil.SnapshotPage("x", "1"))
		},
	}
	srv, ts := newTestServer(t, mock)
	defer close(release)

	up := uploadText(t, ts, "A B C")
	resp, err := http.Post(ts.URL+"/jobs/"+up.ID+"/run", "", nil)
	require.NoError(t, err)
	resp.Body.Close()

	require.Eventually(t, func() bool { return len(mock.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	srv.cancel()
	srv.running.Wait()

	st := getStatus(t, ts, up.ID)
	assert.Equal(t, JobCanceled, st.State)
	assert.Equal(t, 0, st.Processed)
	assert.Equal(t, 0, st.Failed)
	assert.Contains(t, st.Error, "context canceled")
}
