package banner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bannerssb/lib/restyutil"
	"bannerssb/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Request struct {
	Op    Operation
	Query url.Values
	// sent form encoded, only for POST endpoints
	Form   url.Values
	Cookie string
}

type Response struct {
	Status  int
	Header  http.Header
	Cookies []*http.Cookie
	// validated json unless the endpoint is a text endpoint
	Body []byte
}

// Decode unmarshals the body into out.
func (r *Response) Decode(out any) error {
	err := json.Unmarshal(r.Body, out)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResponseParse, err)
	}
	return nil
}

type executor struct {
	school School
	http   *resty.Client
}

type executorOptions struct {
	timeout          time.Duration
	userAgent        string
	cloudflareBypass bool
	dump             restyutil.InstrumentOutput
}

func newExecutor(school School, opts executorOptions) *executor {
	client := resty.New()
	client.SetBaseURL(school.BaseURL())
	// cookies are threaded explicitly per term, a jar would leak them across terms
	client.SetCookieJar(nil)
	client.SetTimeout(opts.timeout)
	client.SetHeader("user-agent", opts.userAgent)
	client.SetHeader("accept", "application/json, text/javascript, */*; q=0.01")
	client.SetHeader("x-requested-with", "XMLHttpRequest")

	hostname := school.Host
	if u, err := url.Parse(school.BaseURL()); err == nil {
		hostname = u.Hostname()
	}
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(hostname))

	if opts.cloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	telemetry.InstrumentResty(client, "bannerssb/banner/http")
	restyutil.InstrumentClient(client, opts.dump)

	return &executor{school: school, http: client}
}

// Execute performs a single request against the school's portal. Network
// failures and non-2xx responses wrap ErrTransport, a json endpoint that
// returns something other than json wraps ErrResponseParse. Nothing is
// retried.
func (e *executor) Execute(ctx context.Context, req Request) (*Response, error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("execute:%s", req.Op))
	defer span.End()

	endpoint, err := LookupEndpoint(req.Op)
	if err != nil {
		return nil, recordError(span, err, "unknown operation")
	}
	span.SetAttributes(
		attribute.String("banner.school", e.school.Key),
		attribute.String("banner.path", endpoint.Path),
		attribute.Bool("banner.cookie", req.Cookie != ""),
	)

	r := e.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(req.Query)
	if req.Cookie != "" {
		r.SetHeader("Cookie", req.Cookie)
	}
	if endpoint.Method == http.MethodPost {
		r.SetHeader("Content-Type", "application/x-www-form-urlencoded")
		r.SetFormDataFromValues(req.Form)
	}

	res, err := r.Execute(endpoint.Method, endpoint.Path)
	if err != nil {
		err = fmt.Errorf("%w: %s %s: %w", ErrTransport, endpoint.Method, endpoint.Path, err)
		return nil, recordError(span, err, "request failed")
	}
	if res.IsError() {
		err = fmt.Errorf("%w: %s %s: unexpected status %s", ErrTransport, endpoint.Method, endpoint.Path, res.Status())
		return nil, recordError(span, err, "unexpected status")
	}

	body := res.Body()
	if !endpoint.Text && !json.Valid(body) {
		err = fmt.Errorf("%w: %s returned %d bytes of non-json", ErrResponseParse, endpoint.Path, len(body))
		return nil, recordError(span, err, "invalid json")
	}

	return &Response{
		Status:  res.StatusCode(),
		Header:  res.Header(),
		Cookies: res.Cookies(),
		Body:    body,
	}, nil
}

// executeJSON performs req and decodes the body into T.
func executeJSON[T any](ctx context.Context, e *executor, req Request) (T, error) {
	var out T
	res, err := e.Execute(ctx, req)
	if err != nil {
		return out, err
	}
	err = res.Decode(&out)
	return out, err
}
