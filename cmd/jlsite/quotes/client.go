package quotescmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jlsoftware/jlsite/api"
	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/quotation"
)

// apiClient calls the quotation routes of the jlsite API server.
type apiClient struct {
	target     string
	adminKey   string
	httpClient *http.Client
}

func (a *apiClient) list(ctx context.Context, status string, limit int) (*api.QuotationListResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	out := &api.QuotationListResponse{}
	if err := a.do(ctx, http.MethodGet, "/admin/quotations", q, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *apiClient) summary(ctx context.Context) (quotation.Summary, error) {
	out := quotation.Summary{}
	if err := a.do(ctx, http.MethodGet, "/admin/quotations/summary", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *apiClient) get(ctx context.Context, id string) (*quotation.Record, error) {
	out := &quotation.Record{}
	if err := a.do(ctx, http.MethodGet, "/admin/quotations/"+url.PathEscape(id), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *apiClient) updateStatus(ctx context.Context, id, status string) (*quotation.Record, error) {
	out := &quotation.Record{}
	body := api.StatusUpdateRequest{Status: status}
	if err := a.do(ctx, http.MethodPatch, "/admin/quotations/"+url.PathEscape(id), nil, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *apiClient) delete(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/admin/quotations/"+url.PathEscape(id), nil, nil, nil)
}

func (a *apiClient) submit(ctx context.Context, req *quotation.Request) (*api.SubmitQuotationResponse, error) {
	out := &api.SubmitQuotationResponse{}
	if err := a.do(ctx, http.MethodPost, api.QuotationPath, nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// do sends one request. Non-2xx responses are returned as errors carrying
// the server's error message.
func (a *apiClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target, err := url.Parse(a.target)
	if err != nil {
		return fmt.Errorf("invalid API target URL: %w", err)
	}
	target = target.JoinPath(path)
	target.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.adminKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.adminKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to jlsite API at %s: %w", a.target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func responseError(status int, body []byte) error {
	var e llm.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("request failed (HTTP %d): %s", status, e.Error)
	}
	if status == http.StatusNotFound {
		return errors.New("request failed (HTTP 404): route not found, is the admin key configured on the server?")
	}
	return fmt.Errorf("request failed (HTTP %d): %s", status, bytes.TrimSpace(body))
}
