package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const searchPageSize = 50

// Client is a JIRA REST API v3 client.
type Client struct {
	baseURL    string
	domain     string
	authHeader string
	httpClient *http.Client
	retry      retryPolicy
}

// NewClient creates a new JIRA client for the given domain and credentials.
// domain is the bare host (e.g. "company.atlassian.net").
func NewClient(domain, email, token string) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(email + ":" + token))
	return &Client{
		baseURL:    "https://" + domain,
		domain:     domain,
		authHeader: "Basic " + creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      defaultRetry,
	}
}

// NewClientWithBaseURL creates a client against an explicit base URL, for
// instances behind a proxy or for local test servers.
func NewClientWithBaseURL(baseURL, email, token string) *Client {
	c := NewClient(strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://"), email, token)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// BaseURL returns the instance base URL (no trailing slash).
func (c *Client) BaseURL() string { return c.baseURL }

// Domain returns the bare JIRA host.
func (c *Client) Domain() string { return c.domain }

// GetIssue fetches a single issue by key with all fields and rendered HTML.
// The raw response body is returned alongside the decoded issue so callers
// can persist it verbatim.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, []byte, error) {
	u := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=%s&expand=renderedFields",
		c.baseURL, url.PathEscape(key), url.QueryEscape("*all"))

	body, err := c.get(ctx, u)
	if err != nil {
		var apiErr *APIError
		if asAPIError(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusUnauthorized:
				return nil, nil, fmt.Errorf("authentication failed, check email and API token: %w", err)
			case http.StatusNotFound:
				return nil, nil, fmt.Errorf("issue %s not found or not accessible: %w", key, err)
			}
		}
		return nil, nil, fmt.Errorf("fetching issue %s: %w", key, err)
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, nil, fmt.Errorf("decoding issue %s: %w", key, err)
	}
	return &issue, body, nil
}

// GetFields fetches all field definitions, used to resolve custom field
// names and schemas.
func (c *Client) GetFields(ctx context.Context) ([]Field, error) {
	body, err := c.get(ctx, c.baseURL+"/rest/api/3/field")
	if err != nil {
		return nil, fmt.Errorf("fetching field metadata: %w", err)
	}

	var fields []Field
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decoding field metadata: %w", err)
	}
	return fields, nil
}

// SearchJQL returns issue summaries matching the JQL query, paginating via
// nextPageToken. maxResults of 0 or less means no limit.
func (c *Client) SearchJQL(ctx context.Context, jql string, maxResults int) ([]Issue, error) {
	var issues []Issue
	pageToken := ""
	unlimited := maxResults <= 0

	for unlimited || len(issues) < maxResults {
		pageSize := searchPageSize
		if !unlimited && maxResults-len(issues) < pageSize {
			pageSize = maxResults - len(issues)
		}

		params := url.Values{}
		params.Set("jql", jql)
		params.Set("maxResults", strconv.Itoa(pageSize))
		params.Set("fields", "summary,issuetype,status,assignee")
		if pageToken != "" {
			params.Set("nextPageToken", pageToken)
		}

		body, err := c.get(ctx, c.baseURL+"/rest/api/3/search/jql?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("JQL search: %w", err)
		}

		var page SearchResult
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding search response: %w", err)
		}

		issues = append(issues, page.Issues...)
		pageToken = page.NextPageToken
		if pageToken == "" || len(page.Issues) == 0 {
			break
		}
	}

	if !unlimited && len(issues) > maxResults {
		issues = issues[:maxResults]
	}
	return issues, nil
}

// DownloadAttachment streams attachment content from its content URL into w.
func (c *Client) DownloadAttachment(ctx context.Context, contentURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "attachment download failed"}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("writing attachment: %w", err)
	}
	return nil
}

// get performs an authenticated GET with retry on transient failures and
// returns the response body.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	var body []byte

	err := c.retry.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return &APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(data)),
			}
		}

		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
}
