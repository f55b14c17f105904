package sparql

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/agentic-research/cpharvest/internal/graph"
	"github.com/agentic-research/cpharvest/internal/metrics"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"go.uber.org/zap"
)

// Row is one result row: variable name -> bound value. Unbound variables are
// absent.
type Row map[string]graph.Binding

// Executor runs query text and returns its rows in endpoint order.
type Executor interface {
	Run(ctx context.Context, query string) ([]Row, error)
}

var (
	resultsPath  = jp.MustParseString("$.results.bindings")
	bindingsPath = jp.MustParseString("$.results.bindings[*]")
)

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// Client sends queries to a SPARQL endpoint over HTTP. It never retries.
type Client struct {
	Endpoint string
	// Header is prepended to every query (the prefix declarations).
	Header  string
	HTTP    *http.Client
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// NewClient returns a client for endpoint. A zero timeout leaves the
// transport default in place.
func NewClient(endpoint, header string, timeout time.Duration, logger *zap.Logger, m *metrics.Collector) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Endpoint: endpoint,
		Header:   header,
		HTTP:     &http.Client{Timeout: timeout},
		Logger:   logger.Named("sparql"),
		Metrics:  m,
	}
}

// Run implements Executor. Every failure is logged with the full query text.
func (c *Client) Run(ctx context.Context, query string) (rows []Row, err error) {
	full := c.Header + query
	start := time.Now()
	defer func() {
		c.Metrics.ObserveQuery(start, err)
		if err != nil {
			c.Logger.Error("query failed", zap.Error(err), zap.String("query", full))
		}
	}()
	c.Logger.Debug("running query", zap.String("query", full))

	form := url.Values{"query": {full}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.WrapRemote(err, "sparql", "Run", "create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", ResultsContentType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errs.WrapRemote(fmt.Errorf("%w: %v", errs.ErrQueryFailed, err), "sparql", "Run", "send query")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.WrapRemote(fmt.Errorf("%w: %v", errs.ErrQueryFailed, err), "sparql", "Run", "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		return nil, errs.WrapRemote(fmt.Errorf("%w: status %d: %s", errs.ErrQueryFailed, resp.StatusCode, msg),
			"sparql", "Run", "query endpoint")
	}

	rows, err = DecodeResults(body)
	if err != nil {
		return nil, errs.WrapRemote(err, "sparql", "Run", "decode response")
	}
	return rows, nil
}

// DecodeResults parses a SPARQL JSON results document.
func DecodeResults(body []byte) ([]Row, error) {
	doc, err := oj.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", errs.ErrQueryFailed, err)
	}
	if len(resultsPath.Get(doc)) == 0 {
		return nil, fmt.Errorf("%w: response has no results.bindings", errs.ErrQueryFailed)
	}

	items := bindingsPath.Get(doc)
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		vars, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: binding %d is not an object", errs.ErrQueryFailed, i)
		}
		row := make(Row, len(vars))
		for name, raw := range vars {
			b, err := decodeBinding(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: binding %d, ?%s: %v", errs.ErrQueryFailed, i, name, err)
			}
			row[name] = b
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeBinding(raw any) (graph.Binding, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return graph.Binding{}, fmt.Errorf("not an object")
	}
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	b := graph.Binding{
		Value:    str("value"),
		Datatype: str("datatype"),
		Lang:     str("xml:lang"),
	}
	switch t := str("type"); t {
	case "uri":
		b.Kind = graph.KindURI
	case "literal", "typed-literal":
		b.Kind = graph.KindLiteral
	case "bnode":
		b.Kind = graph.KindBNode
	default:
		return graph.Binding{}, fmt.Errorf("unknown term type %q", t)
	}
	return b, nil
}
