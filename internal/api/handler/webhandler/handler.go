// Package webhandler serves the interactive HTML utility: a single URL form
// and a bulk form. Results are rendered, never stored.
package webhandler

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sitecheck/internal/analyzer"
	"sitecheck/pkg/allowlist"
	"sitecheck/pkg/domain"
	"sitecheck/pkg/logger"
	"sitecheck/pkg/serrors"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxItems bounds a bulk request when no limit is configured.
	DefaultMaxItems = 200
	// DefaultConcurrency is the number of bulk items analyzed in parallel.
	DefaultConcurrency = 8
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{ //nolint: gochecknoglobals
	"labelClass": labelClass,
	"json":       toJSON,
}).ParseFS(templatesFS, "templates/*.html"))

// Deps are the services the web UI delegates to.
type Deps struct {
	Analyzer  analyzer.Analyzer
	Allowlist *allowlist.List
}

// Options bound the bulk form.
type Options struct {
	MaxItems    int
	Concurrency int
	// Deadline caps a whole bulk request. Items still unfinished when it
	// passes are reported as errors. Zero means no cap.
	Deadline time.Duration
}

// Handler renders the single and bulk forms.
type Handler struct {
	deps Deps
	opts Options
}

// New returns a Handler, filling unset Options with the defaults.
func New(deps Deps, opts Options) *Handler {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	return &Handler{deps: deps, opts: opts}
}

// Row is one line of the bulk summary table.
type Row struct {
	Input           string `json:"input"`
	Label           string `json:"label"`
	Score           int    `json:"score"`
	FinalURL        string `json:"final_url"`
	FinalRootDomain string `json:"final_root_domain"`
	Note            string `json:"note"`
}

type pageData struct {
	Input    string
	Result   *analyzer.Result
	Bulk     string
	Rows     []Row
	Dropped  int
	MaxItems int
	Warning  string
	Trusted  []string
}

// Routes registers the form endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/bulk", h.Bulk)
}

// Index renders the form and, when a url query parameter is present, the
// analysis of that URL. format=json returns the result as JSON instead.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := pageData{MaxItems: h.opts.MaxItems, Trusted: h.deps.Allowlist.Domains()}

	input := strings.TrimSpace(r.URL.Query().Get("url"))
	if input != "" {
		res := h.analyze(r.Context(), input)
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, res, "")

			return
		}
		data.Input = input
		data.Result = &res
	}

	h.render(w, r, data)
}

// Bulk analyzes one URL per line of the urls form field. Lines beyond
// MaxItems are dropped.
func (h *Handler) Bulk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)

		return
	}

	bulk := r.PostForm.Get("urls")
	data := pageData{Bulk: bulk, MaxItems: h.opts.MaxItems, Trusted: h.deps.Allowlist.Domains()}

	items := SplitLines(bulk)
	if len(items) == 0 {
		data.Warning = "Paste at least one domain or URL."
		h.render(w, r, data)

		return
	}
	if len(items) > h.opts.MaxItems {
		data.Dropped = len(items) - h.opts.MaxItems
		items = items[:h.opts.MaxItems]
	}

	results, late := h.analyzeAll(r.Context(), items)
	if late > 0 {
		data.Warning = fmt.Sprintf("%d of %d items did not finish within %s.", late, len(items), h.opts.Deadline)
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, results, "results.json")

		return
	}

	data.Rows = make([]Row, 0, len(results))
	for _, res := range results {
		data.Rows = append(data.Rows, SummaryRow(res))
	}

	h.render(w, r, data)
}

func (h *Handler) analyze(ctx context.Context, input string) analyzer.Result {
	report, err := h.deps.Analyzer.Analyze(ctx, input)

	return analyzer.NewResult(input, report, err)
}

// analyzeAll keeps input order; individual failures are part of the results.
// It also returns how many items were cut short by the bulk deadline.
func (h *Handler) analyzeAll(ctx context.Context, items []string) ([]analyzer.Result, int) {
	if h.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Deadline)
		defer cancel()
	}

	results := make([]analyzer.Result, len(items))
	late := make([]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Concurrency)
	for i, item := range items {
		g.Go(func() error {
			if gctx.Err() == nil {
				results[i] = h.analyze(gctx, item)
			}
			if errors.Is(gctx.Err(), context.DeadlineExceeded) && results[i].Status != analyzer.StatusOK {
				late[i] = true
				results[i] = analyzer.NewResult(item, nil,
					serrors.With(serrors.ErrTimeout, "not analyzed before the bulk deadline"))
			}

			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, l := range late {
		if l {
			n++
		}
	}

	return results, n
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.Error(r.Context(), "could not render page", zap.Error(err))
	}
}

// SplitLines returns the trimmed, non-blank lines of s.
func SplitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}

	return out
}

// SummaryRow condenses a result for the bulk table.
func SummaryRow(res analyzer.Result) Row {
	if res.Status == analyzer.StatusError {
		return Row{
			Input:           res.Input,
			Label:           analyzer.StatusError,
			FinalRootDomain: res.BaseDomain,
			Note:            res.Error,
		}
	}

	row := Row{
		Input:           res.Input,
		Label:           string(res.Label),
		Score:           res.Score,
		FinalURL:        res.FinalURL,
		FinalRootDomain: res.FinalBaseDomain,
	}
	if res.Trusted {
		row.Note = "trusted"
	}

	return row
}

func wantsJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "json" || r.FormValue("format") == "json"
}

func writeJSON(w http.ResponseWriter, status int, v any, filename string) {
	w.Header().Set("Content-Type", "application/json")
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func labelClass(label string) string {
	switch label {
	case string(domain.LabelGoodSafe):
		return "good"
	case string(domain.LabelSuspicious):
		return "warn"
	default:
		return "bad"
	}
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error()
	}

	return string(b)
}
