// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"strings"

	"github.com/mirrormon/zabbixgraph/pkg/web"
)

// Config is the configuration of a single graph request target.
//
// Authentication is either session based (Username+Password, a session token
// is obtained via user.login and cached) or token based (APIToken sent as
// HTTP headers on every call). The two modes are mutually exclusive; a
// non-empty APIToken wins.
//
// The graph is referenced through a dashboard widget: DashboardID selects the
// dashboard, WidgetID or WidgetName optionally select a widget on it. GraphID
// is kept for compatibility but direct graph references are rejected.
type Config struct {
	web.HTTPConfig `yaml:",inline" json:""`

	APIToken string `yaml:"api_token,omitempty" json:"api_token"`

	// Deprecated: direct graph references are not supported, configure a dashboard widget instead.
	GraphID string `yaml:"graph_id,omitempty" json:"graph_id"`

	DashboardID string `yaml:"dashboard_id,omitempty" json:"dashboard_id"`
	WidgetID    string `yaml:"widget_id,omitempty" json:"widget_id"`
	WidgetName  string `yaml:"widget_name,omitempty" json:"widget_name"`

	Width  int64 `yaml:"width,omitempty" json:"width"`
	Height int64 `yaml:"height,omitempty" json:"height"`
}

func (c *Config) usesAPIToken() bool {
	return strings.TrimSpace(c.APIToken) != ""
}
