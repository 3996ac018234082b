// Package engine executes a single POC against a target: build the URL,
// send the request, evaluate the response. Execute never fails; problems
// end up in the result's evidence.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/httpclient"
	"github.com/pocscan/pocscan/pkg/matcher"
	"github.com/pocscan/pocscan/pkg/ordered"
	"github.com/pocscan/pocscan/pkg/poc"
	"github.com/pocscan/pocscan/pkg/reqbuild"
)

// Transport sends one request. *httpclient.Client implements it.
type Transport interface {
	Send(ctx context.Context, method, url string, headers ordered.Map, body string) (*httpclient.Response, error)
}

var _ Transport = (*httpclient.Client)(nil)

// Executor runs POCs. It holds no per-probe state and is safe for
// concurrent use.
type Executor struct {
	transport Transport
	matcher   *matcher.Matcher
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used by the executor and its matcher.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// NewExecutor creates an Executor sending through t.
func NewExecutor(t Transport, opts ...Option) *Executor {
	e := &Executor{transport: t}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/pocscan/pocscan/pkg/engine")
	}
	e.matcher = matcher.New(e.logger)
	return e
}

// Execute runs p against target and returns a fully populated result.
// It does not return errors or panic: any failure yields Vulnerable=false
// and Evidence "Error: <message>".
func (e *Executor) Execute(ctx context.Context, p *poc.POC, target string) (res *ScanResult) {
	res = &ScanResult{Target: target, Level: p.LevelOrUnknown()}
	if p != nil {
		res.POCName = p.Name
	}

	ctx, span := e.tracer.Start(ctx, "pocscan.probe",
		trace.WithAttributes(
			attribute.String("poc.name", res.POCName),
			attribute.String("poc.level", res.Level),
			attribute.String("target", target),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.fail(span, res, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := e.execute(ctx, p, target, res); err != nil {
		e.fail(span, res, err)
		return res
	}

	span.SetAttributes(
		attribute.String("http.status_code", res.StatusCode),
		attribute.Bool("vulnerable", res.Vulnerable),
	)
	return res
}

func (e *Executor) execute(ctx context.Context, p *poc.POC, target string, res *ScanResult) error {
	if p == nil || p.Request == nil {
		return fmt.Errorf("%w: missing request section", poc.ErrInvalidPOC)
	}
	req := p.Request

	fullURL := reqbuild.BuildURL(target, req.Path, req.Params)
	method := req.MethodOrDefault()

	res.RequestMethod = method
	res.RequestURL = fullURL
	res.RequestPath = req.Path
	res.RequestParams = req.Params.Clone()
	res.RequestHeaders = req.Headers.Clone()
	res.RequestBody = req.Body

	resp, err := e.transport.Send(ctx, method, fullURL, req.Headers, req.Body)
	if err != nil {
		return err
	}

	res.StatusCode = strconv.Itoa(resp.StatusCode)
	res.ResponseHeaders = resp.Headers
	res.ResponseBody = resp.Body
	res.ResponseTimeMs = resp.ElapsedMillis

	if reqbuild.IsSecure(fullURL) && resp.TLS != nil {
		res.SSLProtocol = resp.TLS.Protocol
		res.CipherSuite = resp.TLS.CipherSuite
		res.SSLVerified = resp.TLS.Verified
		res.SSLSubject = resp.TLS.Subject
		res.SSLIssuer = resp.TLS.Issuer
		res.SSLValidFrom = resp.TLS.NotBefore
		res.SSLValidTo = resp.TLS.NotAfter
	}

	verdict := e.matcher.Evaluate(p.Response, resp.StatusCode, resp.Body)
	res.Vulnerable = verdict.Vulnerable
	if verdict.Vulnerable {
		res.Evidence = defaults.EvidenceMatched
	}
	e.logger.Debug("probe evaluated",
		slog.String("poc", res.POCName),
		slog.String("status", res.StatusCode),
		slog.Bool("vulnerable", verdict.Vulnerable),
		slog.String("reason", verdict.Reason))
	return nil
}

func (e *Executor) fail(span trace.Span, res *ScanResult, err error) {
	res.Vulnerable = false
	res.Evidence = defaults.EvidenceErrorPrefix + err.Error()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Debug("probe failed", slog.String("poc", res.POCName), slog.String("error", err.Error()))
}
