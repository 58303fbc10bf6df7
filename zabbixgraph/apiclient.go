// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mirrormon/zabbixgraph/logger"
	"github.com/mirrormon/zabbixgraph/pkg/web"
)

const (
	urlPathAPI   = "/api_jsonrpc.php"
	urlPathChart = "/chart2.php"

	headerAuthToken = "X-Auth-Token"
)

var rpcID atomic.Int64

type rpcRequest struct {
	JSONRPC string  `json:"jsonrpc"`
	Method  string  `json:"method"`
	Params  any     `json:"params"`
	ID      int64   `json:"id"`
	Auth    *string `json:"auth"`
}

// apiClient issues single calls against the Zabbix server: JSON-RPC posts to
// the API endpoint and plain GETs to the chart rendering endpoint. It owns
// timeout enforcement and error classification, but never touches caches;
// cache decisions are made by the orchestrator from the signals attached to
// the returned errors.
type apiClient struct {
	*logger.Logger

	httpClient *http.Client
	request    web.RequestConfig

	// apiToken non-empty means token mode: the token travels as HTTP
	// headers and the JSON-RPC auth field stays null.
	apiToken string

	timeout time.Duration

	// authKey is the credential key errors should name when a failure
	// implies a stale session. Empty in token mode.
	authKey string
}

func (c *apiClient) call(ctx context.Context, method string, params any, session string) (gjson.Result, error) {
	var auth *string
	if c.apiToken == "" && session != "" {
		auth = &session
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      rpcID.Add(1),
		Auth:    auth,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshaling %s request: %w", method, err)
	}

	req, err := web.NewHTTPRequestWithPath(c.request, urlPathAPI)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating %s request: %w", method, err)
	}

	req.Method = http.MethodPost
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json-rpc")
	c.setTokenHeaders(req)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return gjson.Result{}, c.timeoutError()
		}
		return gjson.Result{}, fmt.Errorf("%s call failed: %w", method, err)
	}
	defer closeBody(resp)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return gjson.Result{}, &fetchError{
			kind:         errKindHTTP,
			msg:          fmt.Sprintf("Zabbix API HTTP %d", resp.StatusCode),
			authResetKey: c.authKey,
		}
	}

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return gjson.Result{}, c.timeoutError()
		}
		return gjson.Result{}, fmt.Errorf("reading %s response: %w", method, err)
	}

	data := gjson.ParseBytes(bs)

	if apiErr := data.Get("error"); apiErr.Exists() {
		msg := apiErr.Get("message").String()
		if msg == "" {
			msg = "Unknown Zabbix API error"
		}
		fe := &fetchError{kind: errKindAPI, msg: msg}
		// "re-login" in the error detail is how Zabbix reports an expired session
		if c.authKey != "" && strings.Contains(apiErr.Get("data").String(), "re-login") {
			fe.authResetKey = c.authKey
		}
		return gjson.Result{}, fe
	}

	return data.Get("result"), nil
}

func (c *apiClient) setTokenHeaders(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		req.Header.Set(headerAuthToken, c.apiToken)
	}
}

func (c *apiClient) timeoutError() *fetchError {
	seconds := int(math.Ceil(c.timeout.Seconds()))
	plural := "s"
	if seconds == 1 {
		plural = ""
	}
	return &fetchError{
		kind:         errKindTimeout,
		msg:          fmt.Sprintf("Zabbix request timed out after %dms", c.timeout.Milliseconds()),
		userMsg:      fmt.Sprintf("Zabbix did not respond within %d second%s. We'll retry automatically.", seconds, plural),
		authResetKey: c.authKey,
	}
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}
