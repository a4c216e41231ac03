// client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"unhunk/internal/diff"
	"unhunk/internal/errors"
	"unhunk/internal/journal"
	"unhunk/internal/status"
	"unhunk/internal/workspace"
	"unhunk/shared/types"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Status(ctx context.Context, repo string) (*status.Report, error) {
	var report status.Report
	q := url.Values{"repo": {repo}}
	if err := c.do(ctx, http.MethodGet, "/api/status?"+q.Encode(), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) Diff(ctx context.Context, repo, path string, staged bool) (*diff.Diff, error) {
	var d diff.Diff
	q := url.Values{"repo": {repo}, "path": {path}, "staged": {strconv.FormatBool(staged)}}
	if err := c.do(ctx, http.MethodGet, "/api/diff?"+q.Encode(), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) History(ctx context.Context, repo, path string) ([]journal.Entry, error) {
	var entries []journal.Entry
	q := url.Values{"repo": {repo}}
	if path != "" {
		q.Set("path", path)
	}
	if err := c.do(ctx, http.MethodGet, "/api/history?"+q.Encode(), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) RevertHunk(ctx context.Context, repo, path string, index int) (*workspace.Result, error) {
	req := types.HunkRequest{FileRequest: types.FileRequest{Repo: repo, Path: path}, Index: &index}
	return c.result(ctx, "/api/revert/hunk", req)
}

func (c *Client) RevertLines(ctx context.Context, repo, path string, start, end int) (*workspace.Result, error) {
	req := types.LinesRequest{FileRequest: types.FileRequest{Repo: repo, Path: path}, Start: start, End: end}
	return c.result(ctx, "/api/revert/lines", req)
}

func (c *Client) RevertFile(ctx context.Context, repo, path string) (*workspace.Result, error) {
	return c.result(ctx, "/api/revert/file", types.FileRequest{Repo: repo, Path: path})
}

func (c *Client) Undo(ctx context.Context, repo, id string) (*workspace.Result, error) {
	return c.result(ctx, "/api/undo", types.UndoRequest{Repo: repo, ID: id})
}

func (c *Client) Stage(ctx context.Context, repo, path string) error {
	return c.do(ctx, http.MethodPost, "/api/stage", types.FileRequest{Repo: repo, Path: path}, nil)
}

func (c *Client) Unstage(ctx context.Context, repo, path string) error {
	return c.do(ctx, http.MethodPost, "/api/unstage", types.FileRequest{Repo: repo, Path: path}, nil)
}

func (c *Client) result(ctx context.Context, path string, body any) (*workspace.Result, error) {
	var res workspace.Result
	if err := c.do(ctx, http.MethodPost, path, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do sends the request and decodes a 2xx body into out. Error responses are
// returned as *errors.Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e errors.Error
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Type == "" {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
		e.Code = resp.StatusCode
		return &e
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
