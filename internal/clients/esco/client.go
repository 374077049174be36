package esco

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/pkg/httpx"
)

// Group is the decoded view of a remote hierarchical group node.
type Group struct {
	URI            string
	Code           string
	Label          string
	Description    string
	ChildGroupURIs []string
	OccupationURIs []string
}

// Occupation is the decoded view of a remote occupation node.
type Occupation struct {
	URI                string
	Label              string
	Description        string
	EssentialSkillURIs []string
	OptionalSkillURIs  []string
}

// Skill is the decoded view of a remote skill node.
type Skill struct {
	URI         string
	SkillType   string
	Label       string
	Description string
}

// Client reads the remote taxonomy. Implementations must be safe for
// concurrent use; the crawler fans out across siblings.
type Client interface {
	FetchGroup(ctx context.Context, uri string) (*Group, error)
	FetchOccupation(ctx context.Context, uri string) (*Occupation, error)
	FetchSkill(ctx context.Context, uri string) (*Skill, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	language   string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("ESCO_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://ec.europa.eu/esco/api"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	language := strings.TrimSpace(os.Getenv("ESCO_LANGUAGE"))
	if language == "" {
		language = "en"
	}

	return &client{
		log:      log.With("client", "ESCOClient"),
		baseURL:  baseURL,
		language: language,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}, nil
}

// resource is the remote wire shape: a concept with typed _links buckets.
type resource struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Code        string `json:"code"`
	Description struct {
		En struct {
			Literal string `json:"literal"`
		} `json:"en"`
	} `json:"description"`
	Links map[string][]struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"_links"`
}

func (c *client) FetchGroup(ctx context.Context, uri string) (*Group, error) {
	res, err := c.getResource(ctx, "/resource/concept", uri)
	if err != nil {
		return nil, err
	}
	g := &Group{
		URI:         firstNonEmpty(res.URI, uri),
		Code:        res.Code,
		Label:       res.Title,
		Description: res.Description.En.Literal,
	}
	for _, link := range res.Links["narrowerConcept"] {
		if link.URI != "" {
			g.ChildGroupURIs = append(g.ChildGroupURIs, link.URI)
		}
	}
	for _, link := range res.Links["narrowerOccupation"] {
		if link.URI != "" {
			g.OccupationURIs = append(g.OccupationURIs, link.URI)
		}
	}
	return g, nil
}

func (c *client) FetchOccupation(ctx context.Context, uri string) (*Occupation, error) {
	res, err := c.getResource(ctx, "/resource/occupation", uri)
	if err != nil {
		return nil, err
	}
	o := &Occupation{
		URI:         firstNonEmpty(res.URI, uri),
		Label:       res.Title,
		Description: res.Description.En.Literal,
	}
	for _, link := range res.Links["hasEssentialSkill"] {
		if link.URI != "" {
			o.EssentialSkillURIs = append(o.EssentialSkillURIs, link.URI)
		}
	}
	for _, link := range res.Links["hasOptionalSkill"] {
		if link.URI != "" {
			o.OptionalSkillURIs = append(o.OptionalSkillURIs, link.URI)
		}
	}
	return o, nil
}

func (c *client) FetchSkill(ctx context.Context, uri string) (*Skill, error) {
	res, err := c.getResource(ctx, "/resource/skill", uri)
	if err != nil {
		return nil, err
	}
	skillType := ""
	if links, ok := res.Links["hasSkillType"]; ok && len(links) > 0 {
		skillType = links[0].Title
	}
	return &Skill{
		URI:         firstNonEmpty(res.URI, uri),
		SkillType:   skillType,
		Label:       res.Title,
		Description: res.Description.En.Literal,
	}, nil
}

type httpStatusError struct {
	Status int
	Body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("esco: unexpected status %d: %s", e.Status, e.Body)
}
func (e *httpStatusError) HTTPStatusCode() int { return e.Status }

func (c *client) getResource(ctx context.Context, path, uri string) (*resource, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("esco: empty uri")
	}
	endpoint := c.baseURL + path + "?uri=" + url.QueryEscape(uri) + "&language=" + url.QueryEscape(c.language)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := httpx.JitterSleep(time.Duration(attempt) * time.Second)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if httpx.IsRetryableError(err) {
				continue
			}
			return nil, err
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := &httpStatusError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
			lastErr = statusErr
			if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
				sleepFor := httpx.RetryAfterDuration(resp, time.Duration(attempt+1)*time.Second, 15*time.Second)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(sleepFor):
				}
				continue
			}
			return nil, statusErr
		}
		var res resource
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("esco: decode %s: %w", uri, err)
		}
		return &res, nil
	}
	return nil, fmt.Errorf("esco: fetch %s: %w", uri, lastErr)
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
