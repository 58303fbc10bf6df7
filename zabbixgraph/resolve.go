// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultWidth  = 600
	defaultHeight = 300
)

// resolvedChart is the outcome of dashboard widget resolution: the graph to
// render plus the overrides the widget declares for the current request.
type resolvedChart struct {
	graphID int64

	// title is the widget name, "" when the widget has none.
	title string

	period    int64
	stime     string
	timeShift string

	width  int64
	height int64
}

// resolveChart turns the configured chart reference into a resolvedChart.
// Direct graph ids are rejected: Zabbix dashboards are the only supported
// way to reference a graph, they carry the time range and sizing the widget
// author intended.
func (f *Fetcher) resolveChart(ctx context.Context, session string) (*resolvedChart, error) {
	if _, ok := normalizeNumericID(f.GraphID); ok {
		return nil, &fetchError{
			kind:    errKindResolution,
			msg:     "Use dashboard widgets instead of direct graph IDs",
			userMsg: "Use dashboard widgets instead of direct graph IDs",
		}
	}

	dashboardID, ok := normalizeNumericID(f.DashboardID)
	if !ok {
		return nil, &fetchError{
			kind:    errKindConfig,
			msg:     "Missing dashboardId and widget selection in configuration",
			userMsg: "Missing dashboardId and widget selection in configuration",
		}
	}

	dashboards, err := f.client.call(ctx, "dashboard.get", map[string]any{
		"dashboardids": []int64{dashboardID},
		"selectPages":  []string{"dashboard_pageid", "widgets"},
	}, session)
	if err != nil {
		return nil, err
	}

	if !dashboards.IsArray() || len(dashboards.Array()) == 0 {
		msg := fmt.Sprintf("Dashboard %d was not found or you lack permission to view it", dashboardID)
		return nil, &fetchError{kind: errKindNotFound, msg: msg, userMsg: msg}
	}

	widgets := collectWidgets(dashboards.Array()[0])
	if len(widgets) == 0 {
		msg := fmt.Sprintf("Dashboard %d does not contain any widgets you can access", dashboardID)
		return nil, &fetchError{kind: errKindResolution, msg: msg, userMsg: msg}
	}

	widget, ok := f.pickWidget(widgets)
	if !ok {
		msg := fmt.Sprintf("No matching graph widget was found on dashboard %d", dashboardID)
		return nil, &fetchError{kind: errKindResolution, msg: msg, userMsg: msg}
	}

	graphID, ok := extractGraphID(widget)
	if !ok {
		msg := "The selected dashboard widget does not reference a graph"
		return nil, &fetchError{kind: errKindResolution, msg: msg, userMsg: msg}
	}

	rc := &resolvedChart{
		graphID: graphID,
		title:   strings.TrimSpace(widget.Get("name").String()),
	}
	extractTimeOverrides(widget, rc)
	f.extractDimensions(widget, rc)

	return rc, nil
}

// collectWidgets flattens the widgets of all dashboard pages into a single
// ordered sequence.
func collectWidgets(dashboard gjson.Result) []gjson.Result {
	var widgets []gjson.Result
	for _, page := range dashboard.Get("pages").Array() {
		widgets = append(widgets, page.Get("widgets").Array()...)
	}
	return widgets
}

// pickWidget selects the target widget: exact widget id match first, then
// exact trimmed name match, then the first widget of a graph type.
func (f *Fetcher) pickWidget(widgets []gjson.Result) (gjson.Result, bool) {
	if id := strings.TrimSpace(f.WidgetID); id != "" {
		for _, w := range widgets {
			if w.Get("widgetid").String() == id {
				return w, true
			}
		}
	}

	if name := strings.TrimSpace(f.WidgetName); name != "" {
		for _, w := range widgets {
			if strings.TrimSpace(w.Get("name").String()) == name {
				return w, true
			}
		}
	}

	for _, w := range widgets {
		if isGraphWidget(w) {
			return w, true
		}
	}

	return gjson.Result{}, false
}

func isGraphWidget(widget gjson.Result) bool {
	switch strings.ToLower(widget.Get("type").String()) {
	case "graph", "graphprototype", "svggraph":
		return true
	}
	return false
}

// extractGraphID finds the graph reference in the widget field list. The
// field is named "graphid" exactly or with an index suffix ("graphid.0").
func extractGraphID(widget gjson.Result) (int64, bool) {
	for _, field := range widget.Get("fields").Array() {
		name := strings.TrimSpace(field.Get("name").String())
		if name != "graphid" && !strings.HasPrefix(name, "graphid.") {
			continue
		}
		if v, ok := fieldValue(field); ok {
			return normalizeJSONID(v)
		}
	}
	return 0, false
}

// extractTimeOverrides scans the widget fields for time range overrides.
// The first non-empty match per category wins.
func extractTimeOverrides(widget gjson.Result, rc *resolvedChart) {
	for _, field := range widget.Get("fields").Array() {
		name := strings.ToLower(strings.TrimSpace(field.Get("name").String()))

		v, ok := fieldValue(field)
		if !ok {
			continue
		}

		switch {
		case name == "time_period" || strings.HasPrefix(name, "time_period."):
			if rc.period == 0 {
				if n, ok := normalizeJSONID(v); ok {
					rc.period = n
				}
			}
		case name == "time_from" || strings.HasPrefix(name, "time_from."):
			if rc.stime == "" {
				rc.stime = strings.TrimSpace(v.String())
			}
		case name == "time_shift" || strings.HasPrefix(name, "time_shift."):
			if rc.timeShift == "" {
				rc.timeShift = strings.TrimSpace(v.String())
			}
		}
	}
}

// extractDimensions picks the chart size: widget declared, then configured,
// then 600x300.
func (f *Fetcher) extractDimensions(widget gjson.Result, rc *resolvedChart) {
	rc.width = pickDimension(widget.Get("width"), f.Width, defaultWidth)
	rc.height = pickDimension(widget.Get("height"), f.Height, defaultHeight)
}

func pickDimension(declared gjson.Result, configured, fallback int64) int64 {
	if v, ok := normalizeJSONID(declared); ok && v > 0 {
		return v
	}
	if configured > 0 {
		return configured
	}
	return fallback
}

// fieldValue extracts a widget field value from its variant representation:
// a generic "value" if present, else "value_int", else "value_str".
func fieldValue(field gjson.Result) (gjson.Result, bool) {
	for _, key := range []string{"value", "value_int", "value_str"} {
		if v := field.Get(key); v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}
