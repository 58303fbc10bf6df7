// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mirrormon/zabbixgraph/pkg/web"
)

// pngMagic is the first four bytes of every PNG file.
var pngMagic = []byte{0x89, 0x50, 0x4e, 0x47}

const (
	imageUserMessage = "Graph image unavailable. Please re-authenticate with Zabbix to refresh your session."

	imagePreviewLen = 120
)

type chartParams struct {
	graphID   int64
	width     int64
	height    int64
	period    int64
	stime     string
	timeShift string
}

// fetchImage downloads the rendered chart and validates that the payload is
// a real PNG. Zabbix answers chart2.php with an HTML login page (status 200)
// when the session is gone, so the content-type check alone is not enough.
// Returns the image base64 encoded.
func (c *apiClient) fetchImage(ctx context.Context, p chartParams, session string) (string, error) {
	req, err := web.NewHTTPRequestWithPath(c.request, urlPathChart)
	if err != nil {
		return "", fmt.Errorf("creating chart request: %w", err)
	}

	q := url.Values{}
	q.Set("graphid", strconv.FormatInt(p.graphID, 10))
	q.Set("width", strconv.FormatInt(p.width, 10))
	q.Set("height", strconv.FormatInt(p.height, 10))
	if p.period > 0 {
		q.Set("period", strconv.FormatInt(p.period, 10))
	}
	if v := strings.TrimSpace(p.stime); v != "" {
		q.Set("stime", v)
	}
	if v := strings.TrimSpace(p.timeShift); v != "" {
		q.Set("timeshift", v)
	}
	if c.apiToken == "" && session != "" {
		q.Set("auth", session)
	}
	req.URL.RawQuery = q.Encode()

	c.setTokenHeaders(req)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", c.timeoutError()
		}
		return "", fmt.Errorf("chart download failed: %w", err)
	}
	defer closeBody(resp)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &fetchError{
			kind: errKindHTTP,
			msg:  fmt.Sprintf("Unable to download graph image (%d)", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", c.timeoutError()
		}
		return "", fmt.Errorf("reading chart response: %w", err)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	looksLikePNG := bytes.HasPrefix(body, pngMagic)

	if !strings.Contains(contentType, "image/png") || !looksLikePNG {
		if contentType == "" {
			contentType = "unknown"
		}
		c.Warningf("expected a PNG from %s but received '%s' (status %d)", urlPathChart, contentType, resp.StatusCode)
		if preview := bodyPreview(body); preview != "" {
			c.Warningf("response preview: %s", preview)
		}

		return "", &fetchError{
			kind:         errKindValidation,
			msg:          "Zabbix returned an unexpected response while fetching the graph image",
			userMsg:      imageUserMessage,
			authResetKey: c.authKey,
		}
	}

	return base64.StdEncoding.EncodeToString(body), nil
}

// bodyPreview returns up to imagePreviewLen characters of the body with
// whitespace collapsed, for diagnostics only.
func bodyPreview(body []byte) string {
	if len(body) > imagePreviewLen {
		body = body[:imagePreviewLen]
	}
	return strings.Join(strings.Fields(string(body)), " ")
}
