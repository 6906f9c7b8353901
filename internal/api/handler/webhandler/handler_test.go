package webhandler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sitecheck/internal/analyzer"
	mockanalyzer "sitecheck/internal/analyzer/mock"
	"sitecheck/internal/api/handler/webhandler"
	"sitecheck/pkg/allowlist"
	"sitecheck/pkg/domain"
	"sitecheck/pkg/serrors"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newServer(t *testing.T, opts webhandler.Options) (*httptest.Server, *mockanalyzer.MockAnalyzer) {
	t.Helper()

	ctrl := gomock.NewController(t)
	a := mockanalyzer.NewMockAnalyzer(ctrl)
	h := webhandler.New(webhandler.Deps{
		Analyzer:  a,
		Allowlist: allowlist.New(context.Background(), "amazon.com"),
	}, opts)

	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv, a
}

func get(t *testing.T, u string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(u) //nolint: noctx
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(b)
}

func postBulk(t *testing.T, u, lines string, asJSON bool) (*http.Response, string) {
	t.Helper()

	form := url.Values{"urls": {lines}}
	if asJSON {
		form.Set("format", "json")
	}
	resp, err := http.PostForm(u+"/bulk", form) //nolint: noctx
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(b)
}

func TestIndex_FormOnly(t *testing.T) {
	srv, _ := newServer(t, webhandler.Options{})

	resp, body := get(t, srv.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Contains(t, body, "Scan a domain or full URL")
	require.Contains(t, body, "at most 200")
	require.Contains(t, body, "amazon.com")
	require.NotContains(t, body, `id="verdict"`)
}

func TestIndex_RendersVerdict(t *testing.T) {
	srv, a := newServer(t, webhandler.Options{})

	a.EXPECT().Analyze(gomock.Any(), "bit.ly/x").Return(&domain.Report{
		Input:           "bit.ly/x",
		Host:            "bit.ly",
		BaseDomain:      "bit.ly",
		FinalURL:        "https://www.amazon.com/",
		FinalHost:       "www.amazon.com",
		FinalBaseDomain: "amazon.com",
		Trusted:         true,
		Score:           domain.TrustedScore,
		Label:           domain.LabelGoodSafe,
		Reason:          "final redirected domain is trusted",
	}, nil)

	_, body := get(t, srv.URL+"/?url="+url.QueryEscape(" bit.ly/x "))
	require.Contains(t, body, "Label: GOOD_SAFE | Score: 90")
	require.Contains(t, body, "https://www.amazon.com/")
	require.Contains(t, body, "Forced GOOD_SAFE due to Trusted Domains allowlist.")
	require.Contains(t, body, "bit.ly -&gt; amazon.com: trusted (GOOD_SAFE, score 90)")
}

func TestIndex_RendersFailure(t *testing.T) {
	srv, a := newServer(t, webhandler.Options{})

	a.EXPECT().Analyze(gomock.Any(), "down.example").Return(
		&domain.Report{Input: "down.example", Host: "down.example", BaseDomain: "down.example"},
		serrors.With(serrors.ErrUnavailable, "cannot access website (HTTP 503)"),
	)

	resp, body := get(t, srv.URL+"/?url=down.example")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `id="error"`)
	require.Contains(t, body, "cannot access website (HTTP 503)")
	require.NotContains(t, body, `id="verdict"`)
}

func TestIndex_EscapesInput(t *testing.T) {
	srv, a := newServer(t, webhandler.Options{})

	in := `<script>alert(1)</script>`
	a.EXPECT().Analyze(gomock.Any(), in).Return(nil, serrors.With(serrors.ErrBadRequest, "invalid URL"))

	_, body := get(t, srv.URL+"/?url="+url.QueryEscape(in))
	require.NotContains(t, body, in)
	require.Contains(t, body, "invalid URL")
}

func TestIndex_JSON(t *testing.T) {
	srv, a := newServer(t, webhandler.Options{})

	a.EXPECT().Analyze(gomock.Any(), "example.com").Return(&domain.Report{
		Input:    "example.com",
		Host:     "example.com",
		FinalURL: "http://example.com/",
		Score:    25,
		Label:    domain.LabelLowQuality,
		Signals:  &domain.Signals{WordCount: 3, ThinContent: true, LoremIpsum: true, NoHTTPS: true},
	}, nil)

	resp, body := get(t, srv.URL+"/?url=example.com&format=json")
	require.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Equal(t, "OK", got["status"])
	require.Equal(t, "LOW_QUALITY", got["label"])
	require.InDelta(t, 25, got["score"], 0)
	require.NotContains(t, got, "error")
}

func TestBulk_SummaryTable(t *testing.T) {
	srv, a := newServer(t, webhandler.Options{})

	a.EXPECT().Analyze(gomock.Any(), "amazon.com").Return(&domain.Report{
		Input: "amazon.com", FinalURL: "https://amazon.com/", FinalBaseDomain: "amazon.com",
		Trusted: true, Score: 90, Label: domain.LabelGoodSafe,
	}, nil)
	a.EXPECT().Analyze(gomock.Any(), "gone.example").Return(
		&domain.Report{Input: "gone.example", BaseDomain: "gone.example"},
		serrors.With(serrors.ErrUnavailable, "cannot access website (no such host)"),
	)

	_, body := postBulk(t, srv.URL, "amazon.com\n\n  gone.example  \n", false)
	require.Contains(t, body, `id="summary"`)
	require.Contains(t, body, "<td>amazon.com</td><td>GOOD_SAFE</td><td>90</td>")
	require.Contains(t, body, "<td>trusted</td>")
	require.Contains(t, body, "<td>gone.example</td><td>ERROR</td><td>0</td><td></td><td>gone.example</td>")
	require.Contains(t, body, "cannot access website (no such host)")
}

func TestBulk_Empty(t *testing.T) {
	srv, _ := newServer(t, webhandler.Options{})

	_, body := postBulk(t, srv.URL, " \n\n", false)
	require.Contains(t, body, "Paste at least one domain or URL.")
	require.NotContains(t, body, `id="summary"`)
}

func TestBulk_JSONDownloadKeepsOrder(t *testing.T) {
	srv, a := newServer(t, webhandler.Options{Concurrency: 3})

	var lines []string
	for i := range 6 {
		in := "site" + strconv.Itoa(i) + ".example"
		lines = append(lines, in)
		delay := time.Duration(6-i) * 5 * time.Millisecond
		a.EXPECT().Analyze(gomock.Any(), in).DoAndReturn(func(context.Context, string) (*domain.Report, error) {
			time.Sleep(delay)

			return &domain.Report{Input: in, Score: 100, Label: domain.LabelGoodSafe}, nil
		})
	}

	resp, body := postBulk(t, srv.URL, strings.Join(lines, "\n"), true)
	require.Equal(t, `attachment; filename="results.json"`, resp.Header.Get("Content-Disposition"))

	var got []analyzer.Result
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got, 6)
	for i, r := range got {
		require.Equal(t, lines[i], r.Input)
		require.Equal(t, "OK", r.Status)
	}
}

func TestBulk_LimitsItemsAndConcurrency(t *testing.T) {
	srv, a := newServer(t, webhandler.Options{MaxItems: 4, Concurrency: 2})

	var inFlight, peak atomic.Int32
	a.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(4).DoAndReturn(func(_ context.Context, in string) (*domain.Report, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)

		return &domain.Report{Input: in}, nil
	})

	_, body := postBulk(t, srv.URL, "a.example\nb.example\nc.example\nd.example\ne.example\nf.example", false)
	require.Contains(t, body, "Only the first 4 lines were analyzed; 2 skipped.")
	require.NotContains(t, body, "<td>e.example</td>")
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestSplitLines(t *testing.T) {
	require.Equal(t, []string{"a.com", "https://b.com/x"}, webhandler.SplitLines(" a.com \r\n\n\thttps://b.com/x\n"))
	require.Empty(t, webhandler.SplitLines("\n \n"))
}

func TestSummaryRow(t *testing.T) {
	ok := analyzer.Result{Status: "OK", Report: &domain.Report{
		Input: "x.com", FinalURL: "http://x.com/", FinalBaseDomain: "x.com", Score: 55, Label: domain.LabelSuspicious,
	}}
	require.Equal(t, webhandler.Row{
		Input: "x.com", Label: "SUSPICIOUS", Score: 55, FinalURL: "http://x.com/", FinalRootDomain: "x.com",
	}, webhandler.SummaryRow(ok))

	failed := analyzer.Result{Status: "ERROR", Error: "boom", Report: &domain.Report{Input: "y.com", BaseDomain: "y.com"}}
	require.Equal(t, webhandler.Row{Input: "y.com", Label: "ERROR", FinalRootDomain: "y.com", Note: "boom"}, webhandler.SummaryRow(failed))
}

func TestBulk_DeadlineRendersFinishedRows(t *testing.T) {
	srv, a := newServer(t, webhandler.Options{Concurrency: 1, Deadline: 100 * time.Millisecond})

	a.EXPECT().Analyze(gomock.Any(), "fast.example").
		Return(&domain.Report{Input: "fast.example", Score: 100, Label: domain.LabelGoodSafe}, nil)
	a.EXPECT().Analyze(gomock.Any(), "slow.example").DoAndReturn(func(ctx context.Context, in string) (*domain.Report, error) {
		<-ctx.Done()

		return nil, serrors.Wrap(serrors.ErrTimeout, ctx.Err(), "site did not answer in time")
	})

	lines := "fast.example\nslow.example\nqueued.example"

	start := time.Now()
	resp, body := postBulk(t, srv.URL, lines, true)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []analyzer.Result
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got, 3)
	require.Equal(t, analyzer.StatusOK, got[0].Status)
	for _, r := range got[1:] {
		require.Equal(t, analyzer.StatusError, r.Status)
		require.Equal(t, "not analyzed before the bulk deadline", r.Error)
	}
	require.Equal(t, "queued.example", got[2].Input)

	a.EXPECT().Analyze(gomock.Any(), "fast.example").
		Return(&domain.Report{Input: "fast.example", Score: 100, Label: domain.LabelGoodSafe}, nil)
	a.EXPECT().Analyze(gomock.Any(), "slow.example").DoAndReturn(func(ctx context.Context, _ string) (*domain.Report, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	})

	resp, body = postBulk(t, srv.URL, lines, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "2 of 3 items did not finish within 100ms.")
	require.Contains(t, body, "<td>fast.example</td>")
}
