// SPDX-License-Identifier: GPL-3.0-or-later

// Package zabbixgraph resolves a Zabbix dashboard widget to a graph,
// authenticates against the Zabbix HTTP API, and fetches the graph metadata
// and rendered PNG. Session tokens and graph metadata are cached between
// requests; failures selectively invalidate the caches so the next attempt
// starts clean.
package zabbixgraph

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mirrormon/zabbixgraph/logger"
	"github.com/mirrormon/zabbixgraph/pkg/confopt"
	"github.com/mirrormon/zabbixgraph/pkg/web"
)

const defaultTimeout = time.Second * 10

func New() *Fetcher {
	return &Fetcher{
		Config: Config{
			HTTPConfig: web.HTTPConfig{
				ClientConfig: web.ClientConfig{
					Timeout: confopt.Duration(defaultTimeout),
				},
			},
		},
		sessions: newSessionStore(),
		metadata: newMetadataStore(),
	}
}

// Fetcher executes graph requests for one configuration. The two caches
// default to per-Fetcher stores; a Service running many configurations
// against the same servers injects shared ones.
type Fetcher struct {
	*logger.Logger
	Config `yaml:",inline" json:""`

	httpClient *http.Client
	client     *apiClient

	sessions *sessionStore
	metadata *metadataStore
}

func (f *Fetcher) Configuration() any {
	return f.Config
}

func (f *Fetcher) Init() error {
	if err := f.validateConfig(); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}

	httpClient, err := web.NewHTTPClient(f.ClientConfig)
	if err != nil {
		return err
	}
	f.httpClient = httpClient

	timeout := f.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var authKey string
	if !f.usesAPIToken() {
		authKey = credentialKey(f.URL, f.Username)
	}

	f.client = &apiClient{
		Logger:     f.Logger,
		httpClient: httpClient,
		request:    f.RequestConfig,
		apiToken:   strings.TrimSpace(f.APIToken),
		timeout:    timeout,
		authKey:    authKey,
	}

	return nil
}

func (f *Fetcher) validateConfig() error {
	if f.URL == "" {
		return errors.New("missing Zabbix URL")
	}
	return nil
}

func (f *Fetcher) Cleanup() {
	if f.httpClient != nil {
		f.httpClient.CloseIdleConnections()
	}
}
