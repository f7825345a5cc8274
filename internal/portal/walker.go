package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"resultfetcher/internal/components/assert"
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/internal/results"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("resultfetcher/portal")

const (
	report_walker_fetch_results = "walker.fetch-results"
	report_walker_login_page    = "walker.login-page"
	report_walker_submit_login  = "walker.submit-login"
	report_walker_dashboard     = "walker.dashboard"
	report_walker_results_page  = "walker.results-page"
)

const (
	stepLoginPage   = "login-page"
	stepSubmitLogin = "submit-login"
	stepDashboard   = "dashboard"
	stepResultsPage = "results-page"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Credentials identify one student on the portal.
type Credentials struct {
	Index  string
	Secret string
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Index) == "" {
		return fmt.Errorf("index number is empty")
	}
	if strings.TrimSpace(c.Secret) == "" {
		return fmt.Errorf("secret for %s is empty", c.Index)
	}
	return nil
}

// Endpoints are the fixed portal urls of a deployment.
type Endpoints struct {
	Login     string
	Dashboard string
	Results   string
}

func (e Endpoints) Validate() error {
	for name, endpoint := range map[string]string{
		"login":     e.Login,
		"dashboard": e.Dashboard,
		"results":   e.Results,
	} {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return fmt.Errorf("%s endpoint: %w", name, err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return fmt.Errorf("%s endpoint is not an absolute url: %q", name, endpoint)
		}
	}
	return nil
}

type Options struct {
	// Timeout bounds every single request, 0 means 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond limits requests within one walk, 0 means unlimited.
	RequestsPerSecond float64
	// UserAgent defaults to DefaultUserAgent.
	UserAgent        string
	BypassCloudflare bool
	// DumpDir receives every http exchange of a walk in <DumpDir>/<index>/
	// when set. The dumps contain the submitted credentials.
	DumpDir string
}

// RawPage is a fetched html document and the url it ended up being served from.
type RawPage struct {
	Url  string
	Html string
}

// CancelCheck is polled before every request, returning true stops the walk.
type CancelCheck func() bool

// NeverCancel is a CancelCheck for walks that are only bounded by their context.
func NeverCancel() bool {
	return false
}

// Walker logs into the portal and walks to a student's results page. Each
// call uses its own session, nothing is retained between students.
type Walker struct {
	endpoints Endpoints
	options   Options
	tel       telemetry.API
}

func NewWalker(endpoints Endpoints, options Options, tel telemetry.API) (Walker, error) {
	assert.NotNil(tel)

	err := endpoints.Validate()
	if err != nil {
		return Walker{}, err
	}
	if options.Timeout == 0 {
		options.Timeout = time.Second * 30
	}
	if options.UserAgent == "" {
		options.UserAgent = DefaultUserAgent
	}

	return Walker{
		endpoints: endpoints,
		options:   options,
		tel:       telemetry.NewScopedAPI("portal", tel),
	}, nil
}

func (w Walker) newSession(index string) (*resty.Client, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if w.options.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetHeaders(map[string]string{
		"user-agent":                w.options.UserAgent,
		"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"accept-language":           "en-US,en;q=0.5",
		"upgrade-insecure-requests": "1",
	})
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetTimeout(w.options.Timeout)

	if w.options.RequestsPerSecond > 0 {
		rateLimiter := rate.NewLimiter(rate.Limit(w.options.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	var output telemetry.Output
	if w.options.DumpDir != "" {
		fsOutput, err := telemetry.NewFilesystemOutput(filepath.Join(w.options.DumpDir, dumpName(index)))
		if err != nil {
			return nil, err
		}
		output = fsOutput
	}
	telemetry.InstrumentRestyOutput(client, "resultfetcher/portal/http", w.tel, output)

	return client, nil
}

// dumpName maps an index to a single path element below the dump directory.
func dumpName(index string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == filepath.Separator {
			return '_'
		}
		return r
	}, index)
	if strings.Trim(name, ".") == "" {
		return "_" + name
	}
	return name
}

var errCancelled = errors.New("walk cancelled")

func (w Walker) cancelled(ctx context.Context, cancelled CancelCheck) bool {
	return ctx.Err() != nil || (cancelled != nil && cancelled())
}

func (w Walker) execute(ctx context.Context, req *resty.Request, method, endpoint, step string) (RawPage, error) {
	res, err := req.SetContext(ctx).Execute(method, endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return RawPage{}, errCancelled
		}
		return RawPage{}, &NetworkError{Step: step, Url: endpoint, Err: err}
	}
	if res.IsError() {
		return RawPage{}, &NetworkError{Step: step, Url: endpoint, Status: res.StatusCode()}
	}

	finalUrl := endpoint
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	return RawPage{Url: finalUrl, Html: res.String()}, nil
}

// FetchResultsPage logs in with `creds` and returns the raw results page.
//
// It returns (nil, nil) when the walk was cancelled through `cancelled` or ctx,
// a *NetworkError for failed requests, ErrFormNotFound if the login page has no
// form and a *FetchError for anything else.
func (w Walker) FetchResultsPage(ctx context.Context, creds Credentials, cancelled CancelCheck) (*RawPage, error) {
	ctx, span := tracer.Start(ctx, "walker:FetchResultsPage")
	defer span.End()
	span.SetAttributes(attribute.String("student.index", creds.Index))

	page, err := w.walk(ctx, creds, cancelled)
	if errors.Is(err, errCancelled) {
		w.tel.ReportDebug("walk cancelled", creds.Index)
		span.SetStatus(codes.Error, "cancelled")
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "walk failed")
		return nil, err
	}
	return page, nil
}

func (w Walker) walk(ctx context.Context, creds Credentials, cancelled CancelCheck) (*RawPage, error) {
	err := creds.Validate()
	if err != nil {
		w.tel.ReportWarning(report_walker_fetch_results, err)
		return nil, &FetchError{Err: err}
	}

	client, err := w.newSession(creds.Index)
	if err != nil {
		w.tel.ReportBroken(report_walker_fetch_results, fmt.Errorf("create session: %w", err))
		return nil, &FetchError{Err: err}
	}

	if w.cancelled(ctx, cancelled) {
		return nil, errCancelled
	}
	w.tel.ReportDebug("fetching login page", w.endpoints.Login)
	loginPage, err := w.execute(ctx, client.R(), resty.MethodGet, w.endpoints.Login, stepLoginPage)
	if err != nil {
		w.tel.ReportBroken(report_walker_login_page, err)
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(loginPage.Html))
	if err != nil {
		w.tel.ReportBroken(report_walker_login_page, fmt.Errorf("parse html: %w", err))
		return nil, &FetchError{Err: err}
	}
	form, err := parseLoginForm(doc, w.endpoints.Login)
	if errors.Is(err, ErrFormNotFound) {
		w.tel.ReportBroken(report_walker_login_page, err, loginPage.Url)
		return nil, err
	}
	if err != nil {
		w.tel.ReportBroken(report_walker_login_page, err)
		return nil, &FetchError{Err: err}
	}
	w.tel.ReportDebug("found login form", form.Action, form.IndexKey, form.SecretKey, len(form.Hidden))

	if w.cancelled(ctx, cancelled) {
		return nil, errCancelled
	}
	_, err = w.execute(
		ctx,
		client.R().SetFormData(form.payload(creds)),
		resty.MethodPost,
		form.Action,
		stepSubmitLogin,
	)
	if err != nil {
		w.tel.ReportBroken(report_walker_submit_login, err)
		return nil, err
	}

	if w.cancelled(ctx, cancelled) {
		return nil, errCancelled
	}
	_, err = w.execute(ctx, client.R(), resty.MethodGet, w.endpoints.Dashboard, stepDashboard)
	if err != nil {
		w.tel.ReportBroken(report_walker_dashboard, err)
		return nil, err
	}

	if w.cancelled(ctx, cancelled) {
		return nil, errCancelled
	}
	resultsPage, err := w.execute(ctx, client.R(), resty.MethodGet, w.endpoints.Results, stepResultsPage)
	if err != nil {
		w.tel.ReportBroken(report_walker_results_page, err)
		return nil, err
	}

	return &resultsPage, nil
}

// FetchResults walks to the results page of `creds` and extracts it.
//
// Besides the errors of FetchResultsPage it returns a *results.NoResultsError
// when the page has no results, which usually means the credentials were rejected.
func (w Walker) FetchResults(ctx context.Context, creds Credentials, cancelled CancelCheck) (*results.ResultSet, error) {
	page, err := w.FetchResultsPage(ctx, creds, cancelled)
	if err != nil || page == nil {
		return nil, err
	}

	rs, err := results.Extract(page.Html, w.tel)
	if errors.Is(err, results.ErrNoResultsFound) {
		return nil, err
	}
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	return &rs, nil
}
