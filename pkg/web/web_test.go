// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/mirrormon/zabbixgraph/pkg/confopt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	client, _ := NewHTTPClient(ClientConfig{
		Timeout:           confopt.Duration(time.Second * 5),
		NotFollowRedirect: true,
		ProxyURL:          "http://127.0.0.1:3128",
	})

	assert.IsType(t, (*http.Client)(nil), client)
	assert.Equal(t, time.Second*5, client.Timeout)
	assert.NotNil(t, client.CheckRedirect)
}

func TestNewHTTPRequest(t *testing.T) {
	tests := map[string]struct {
		cfg     RequestConfig
		wantErr bool
		check   func(t *testing.T, req *http.Request)
	}{
		"default GET": {
			cfg: RequestConfig{URL: "http://127.0.0.1:19999/api"},
			check: func(t *testing.T, req *http.Request) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Equal(t, userAgent, req.Header.Get("User-Agent"))
			},
		},
		"method and body": {
			cfg: RequestConfig{URL: "http://127.0.0.1:19999/api", Method: http.MethodPost, Body: `{"ok":1}`},
			check: func(t *testing.T, req *http.Request) {
				assert.Equal(t, http.MethodPost, req.Method)
				bs, err := io.ReadAll(req.Body)
				require.NoError(t, err)
				assert.Equal(t, `{"ok":1}`, string(bs))
			},
		},
		"headers": {
			cfg: RequestConfig{
				URL:     "http://127.0.0.1:19999/api",
				Headers: map[string]string{"X-Auth-Token": "secret", "Host": "zabbix.local"},
			},
			check: func(t *testing.T, req *http.Request) {
				assert.Equal(t, "secret", req.Header.Get("X-Auth-Token"))
				assert.Equal(t, "zabbix.local", req.Host)
			},
		},
		"invalid url": {
			cfg:     RequestConfig{URL: "http://127.0.0.1:19999/api\x00"},
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := NewHTTPRequest(test.cfg)

			if test.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, req)
			test.check(t, req)
		})
	}
}

func TestNewHTTPRequestWithPath(t *testing.T) {
	tests := map[string]struct {
		cfg     RequestConfig
		path    string
		wantURL string
		wantErr bool
	}{
		"base without slash": {
			cfg:     RequestConfig{URL: "http://127.0.0.1:65535"},
			path:    "/api_jsonrpc.php",
			wantURL: "http://127.0.0.1:65535/api_jsonrpc.php",
		},
		"base with slash": {
			cfg:     RequestConfig{URL: "http://127.0.0.1:65535/zabbix/"},
			path:    "chart2.php",
			wantURL: "http://127.0.0.1:65535/zabbix/chart2.php",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := NewHTTPRequestWithPath(test.cfg, test.path)

			if test.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.wantURL, req.URL.String())
		})
	}
}

func TestURLQuery(t *testing.T) {
	assert.Equal(t, "graphid=654321", URLQuery("graphid", "654321"))
	assert.Equal(t, "stime=now-1h", URLQuery("stime", "now-1h"))
}

func TestRequestConfig_Copy(t *testing.T) {
	orig := RequestConfig{
		URL:     "http://127.0.0.1",
		Headers: map[string]string{"Authorization": "Bearer abc"},
	}

	cp := orig.Copy()
	cp.Headers["Authorization"] = "Bearer xyz"

	assert.Equal(t, "Bearer abc", orig.Headers["Authorization"])
}
