package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ID accepts both numeric and string identifiers from the platform.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("project id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

type Project struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Criterion struct {
	ID     ID      `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Parent *ID     `json:"parent"`
}

type Alternative struct {
	ID                 ID      `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Feasibility        float64 `json:"feasibility"`
	Cost               float64 `json:"cost"`
	RiskLevel          string  `json:"risk_level"`
	ImplementationTime float64 `json:"implementation_time"`
	ExpectedBenefit    float64 `json:"expected_benefit"`
}

// Result is one evaluated score of an alternative under a criterion.
type Result struct {
	Alternative ID      `json:"alternative"`
	Criteria    ID      `json:"criteria"`
	Score       float64 `json:"score"`
}

// Client reads project evaluations from the decision platform.
type Client interface {
	GetProject(ctx context.Context, projectID string) (*Project, error)
	ListCriteria(ctx context.Context, projectID string) ([]Criterion, error)
	ListAlternatives(ctx context.Context, projectID string) ([]Alternative, error)
	ListResults(ctx context.Context, projectID string) ([]Result, error)
}

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// maxPages bounds how many list pages one call follows.
const maxPages = 500

// page is the platform's paginated list envelope.
type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func (c *HTTPClient) doReq(ctx context.Context, method, path string) ([]byte, error) {
	return c.do(ctx, method, c.baseURL+path, path)
}

func (c *HTTPClient) do(ctx context.Context, method, target, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("projects %s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("projects %s %s: %d %s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	data, err := c.doReq(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// nextURL resolves a page's next link against the base URL. Links to another
// host are refused so the token never leaves the platform.
func (c *HTTPClient) nextURL(next string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("next page %q: %w", next, err)
	}
	u := base.ResolveReference(ref)
	if u.Host != base.Host {
		return "", fmt.Errorf("next page %q: host %q does not match %q", next, u.Host, base.Host)
	}
	return u.String(), nil
}

// list reads every item of a list endpoint. Paginated responses are followed
// through their next links; a bare JSON array is returned as is.
func list[T any](ctx context.Context, c *HTTPClient, path string) ([]T, error) {
	var out []T
	target := c.baseURL + path
	for i := 0; ; i++ {
		if i == maxPages {
			return nil, fmt.Errorf("decode %s: more than %d pages", path, maxPages)
		}
		data, err := c.do(ctx, http.MethodGet, target, path)
		if err != nil {
			return nil, err
		}
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var items []T
			if err := json.Unmarshal(trimmed, &items); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
			return append(out, items...), nil
		}
		var p page[T]
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		out = append(out, p.Results...)
		if p.Next == nil || *p.Next == "" {
			return out, nil
		}
		if target, err = c.nextURL(*p.Next); err != nil {
			return nil, err
		}
	}
}

func (c *HTTPClient) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var p Project
	if err := c.get(ctx, "/api/projects/"+url.PathEscape(projectID)+"/", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) ListCriteria(ctx context.Context, projectID string) ([]Criterion, error) {
	return list[Criterion](ctx, c, "/api/projects/"+url.PathEscape(projectID)+"/criteria/")
}

func (c *HTTPClient) ListAlternatives(ctx context.Context, projectID string) ([]Alternative, error) {
	return list[Alternative](ctx, c, "/api/alternatives/?project="+url.QueryEscape(projectID))
}

func (c *HTTPClient) ListResults(ctx context.Context, projectID string) ([]Result, error) {
	return list[Result](ctx, c, "/api/results/?project="+url.QueryEscape(projectID))
}
