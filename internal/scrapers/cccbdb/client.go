// Package cccbdb is a client for the experimental data pages of NIST's
// Computational Chemistry Comparison and Benchmark DataBase.
//
// The site keeps the query in the server side session: the species is
// submitted to a form endpoint which answers with a redirect, and the results
// page served afterwards on the same session renders whatever was last
// submitted. Both requests therefore have to share one cookie jar.
package cccbdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"cccbdb-harvester/internal/assert"
	"cccbdb-harvester/internal/cas"
	"cccbdb-harvester/internal/components/telemetry"
	"cccbdb-harvester/pkg/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("cccbdb-harvester/internal/scrapers/cccbdb")

const (
	report_client_experimental_data = "client.experimental-data"
)

const (
	DefaultBaseUrl = "https://cccbdb.nist.gov"

	formPath    = "/getformx.asp"
	queryPath   = "/exp1x.asp"
	resultsPath = "/exp2x.asp"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

const (
	StepSubmit  = "submit"
	StepCollect = "collect"
)

// QueryError is returned for any failure of the two step exchange, be it a
// transport error or a response with an unexpected status.
type QueryError struct {
	ID   cas.Number
	Step string
	// Status is 0 when no response was received.
	Status int
	Want   int
	Err    error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query %s: %s: %s", e.ID, e.Step, e.Err.Error())
	}
	return fmt.Sprintf(
		"query %s: %s: unexpected status %d, must be %d",
		e.ID, e.Step, e.Status, e.Want,
	)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

type ClientOptions struct {
	BaseUrl string
	// Timeout applies to each request, defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond limits requests across all sessions of the client,
	// 0 disables the limit.
	RequestsPerSecond float64
	// CloudflareBypass wraps the transport with cloudflare-bp-go.
	CloudflareBypass bool
	// DumpDir, when set, receives a text dump of every http exchange.
	DumpDir string
}

type Client struct {
	baseUrl *url.URL
	opts    ClientOptions
	limiter *rate.Limiter
	dump    restyutil.Output
	tel     telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	opts.BaseUrl = strings.TrimSuffix(opts.BaseUrl, "/")
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseUrl)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		// burst >= 1 means no request is ever dropped, only delayed
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	var dump restyutil.Output
	if opts.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("create dump dir: %w", err)
		}
		dump = output
	}

	return &Client{
		baseUrl: baseUrl,
		opts:    opts,
		limiter: limiter,
		dump:    dump,
		tel:     telemetry.NewScopedAPI("cccbdb_client", tel),
	}, nil
}

// newSession creates an http client with its own cookie jar, redirects are
// handed back to the caller instead of being followed.
func (c *Client) newSession(id cas.Number) (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(c.opts.BaseUrl)
	httpClient.SetCookieJar(jar)
	if c.opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	httpClient.SetTimeout(c.opts.Timeout)
	httpClient.SetHeaders(map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-CA,en-GB;q=0.8,en-US;q=0.6,en;q=0.4",
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	})

	telemetry.InstrumentResty(httpClient, c.tel)
	if c.dump != nil {
		restyutil.Dump(httpClient, c.dump, id.String())
	}

	if c.limiter != nil {
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return c.limiter.Wait(req.Context())
		})
	}

	return httpClient, nil
}

// ExperimentalData submits id to the query form and returns the raw html of
// the experimental data page it redirects to. It never retries.
func (c *Client) ExperimentalData(ctx context.Context, id cas.Number) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:ExperimentalData")
	defer span.End()
	span.SetAttributes(attribute.String("cas", id.String()))

	fail := func(err *QueryError) ([]byte, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Step)
		c.tel.ReportWarning(report_client_experimental_data, err)
		return nil, err
	}

	session, err := c.newSession(id)
	if err != nil {
		return fail(&QueryError{ID: id, Step: StepSubmit, Err: fmt.Errorf("create session: %w", err)})
	}

	c.tel.ReportDebug("submitting query", id)
	res, err := session.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("Origin", c.opts.BaseUrl).
		SetHeader("Referer", c.opts.BaseUrl+queryPath).
		SetFormData(map[string]string{
			"formula": id.String(),
			"submit1": "Submit",
		}).
		Post(formPath)
	if err != nil {
		return fail(&QueryError{ID: id, Step: StepSubmit, Err: err})
	}
	if res.StatusCode() != http.StatusFound {
		return fail(&QueryError{
			ID:     id,
			Step:   StepSubmit,
			Status: res.StatusCode(),
			Want:   http.StatusFound,
		})
	}

	c.tel.ReportDebug("collecting data", id)
	res, err = session.R().
		SetContext(ctx).
		SetHeader("Referer", c.opts.BaseUrl+queryPath).
		Get(resultsPath)
	if err != nil {
		return fail(&QueryError{ID: id, Step: StepCollect, Err: err})
	}
	if res.StatusCode() != http.StatusOK {
		return fail(&QueryError{
			ID:     id,
			Step:   StepCollect,
			Status: res.StatusCode(),
			Want:   http.StatusOK,
		})
	}

	return res.Body(), nil
}
