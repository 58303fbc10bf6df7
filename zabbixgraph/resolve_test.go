// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"context"
	"fmt"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_resolveChart_widgetSelection(t *testing.T) {
	tests := map[string]struct {
		widgetID    string
		widgetName  string
		wantGraphID int64
		wantTitle   string
	}{
		"no selector picks first graph widget": {
			wantGraphID: 654321,
			wantTitle:   "CPU load",
		},
		"widget id match": {
			widgetID:    "100",
			wantGraphID: 777,
			wantTitle:   "Memory",
		},
		"widget name match": {
			widgetName:  "Memory",
			wantGraphID: 777,
			wantTitle:   "Memory",
		},
		"widget name match with surrounding spaces": {
			widgetName:  "  CPU load  ",
			wantGraphID: 654321,
			wantTitle:   "CPU load",
		},
		"unknown widget id falls through to type match": {
			widgetID:    "12345",
			wantGraphID: 654321,
			wantTitle:   "CPU load",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			srv := newZbxServer()
			defer srv.Close()

			f := prepareFetcher(t, srv)
			defer f.Cleanup()
			f.WidgetID = test.widgetID
			f.WidgetName = test.widgetName

			rc, err := f.resolveChart(context.Background(), "sess")

			require.NoError(t, err)
			assert.Equal(t, test.wantGraphID, rc.graphID)
			assert.Equal(t, test.wantTitle, rc.title)
		})
	}
}

func TestFetcher_resolveChart_timeOverrides(t *testing.T) {
	srv := newZbxServer()
	defer srv.Close()

	f := prepareFetcher(t, srv)
	defer f.Cleanup()

	rc, err := f.resolveChart(context.Background(), "sess")

	require.NoError(t, err)
	assert.Equal(t, int64(3600), rc.period)
	assert.Equal(t, "now-2h", rc.stime)
	assert.Equal(t, "1h", rc.timeShift)
}

func TestFetcher_resolveChart_noWidgets(t *testing.T) {
	srv := newZbxServer()
	defer srv.Close()
	srv.dashboardResult = []byte(`[{"dashboardid":"555","pages":[{"widgets":[]}]}]`)

	f := prepareFetcher(t, srv)
	defer f.Cleanup()

	_, err := f.resolveChart(context.Background(), "sess")

	require.Error(t, err)
	assert.Equal(t, "Dashboard 555 does not contain any widgets you can access", UserMessage(err))
}

func TestFetcher_resolveChart_noGraphWidget(t *testing.T) {
	srv := newZbxServer()
	defer srv.Close()
	srv.dashboardResult = []byte(`[{"dashboardid":"555","pages":[{"widgets":[{"widgetid":"1","type":"clock","fields":[]}]}]}]`)

	f := prepareFetcher(t, srv)
	defer f.Cleanup()

	_, err := f.resolveChart(context.Background(), "sess")

	require.Error(t, err)
	assert.Equal(t, "No matching graph widget was found on dashboard 555", UserMessage(err))
}

func TestFetcher_resolveChart_widgetWithoutGraphReference(t *testing.T) {
	srv := newZbxServer()
	defer srv.Close()
	srv.dashboardResult = []byte(`[{"dashboardid":"555","pages":[{"widgets":[{"widgetid":"1","type":"graph","fields":[{"name":"ds.color","value_str":"FF0000"}]}]}]}]`)

	f := prepareFetcher(t, srv)
	defer f.Cleanup()

	_, err := f.resolveChart(context.Background(), "sess")

	require.Error(t, err)
	assert.Equal(t, "The selected dashboard widget does not reference a graph", UserMessage(err))
}

func TestExtractGraphID_fieldNaming(t *testing.T) {
	for _, name := range []string{"graphid", "graphid.0", "graphid.1", " graphid "} {
		t.Run(name, func(t *testing.T) {
			widget := gjson.Parse(fmt.Sprintf(`{"fields":[{"name":"%s","value_str":"654321"}]}`, name))

			id, ok := extractGraphID(widget)

			require.True(t, ok)
			assert.Equal(t, int64(654321), id)
		})
	}
}

func TestExtractGraphID_valuePrecedence(t *testing.T) {
	tests := map[string]struct {
		field  string
		wantID int64
	}{
		"generic value wins": {
			field:  `{"name":"graphid","value":"1","value_int":2,"value_str":"3"}`,
			wantID: 1,
		},
		"value_int before value_str": {
			field:  `{"name":"graphid","value_int":2,"value_str":"3"}`,
			wantID: 2,
		},
		"value_str last": {
			field:  `{"name":"graphid","value_str":"3"}`,
			wantID: 3,
		},
		"null value skipped": {
			field:  `{"name":"graphid","value":null,"value_int":2}`,
			wantID: 2,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			widget := gjson.Parse(`{"fields":[` + test.field + `]}`)

			id, ok := extractGraphID(widget)

			require.True(t, ok)
			assert.Equal(t, test.wantID, id)
		})
	}
}

func TestExtractTimeOverrides_firstMatchWins(t *testing.T) {
	widget := gjson.Parse(`{"fields":[
		{"name":"time_period.0","value_int":3600},
		{"name":"time_period.1","value_int":7200},
		{"name":"time_from.0","value_str":"now-2h"},
		{"name":"time_from.1","value_str":"now-4h"}
	]}`)

	var rc resolvedChart
	extractTimeOverrides(widget, &rc)

	assert.Equal(t, int64(3600), rc.period)
	assert.Equal(t, "now-2h", rc.stime)
}

func TestIsGraphWidget(t *testing.T) {
	tests := map[string]bool{
		"graph":          true,
		"GRAPH":          true,
		"graphprototype": true,
		"svggraph":       true,
		"SvgGraph":       true,
		"text":           false,
		"clock":          false,
		"":               false,
	}

	for typ, want := range tests {
		t.Run("type "+typ, func(t *testing.T) {
			widget := gjson.Parse(fmt.Sprintf(`{"type":"%s"}`, typ))
			assert.Equal(t, want, isGraphWidget(widget))
		})
	}
}

func TestPickDimension(t *testing.T) {
	tests := map[string]struct {
		declared   string
		configured int64
		want       int64
	}{
		"widget declared wins":          {declared: `{"v":"250"}`, configured: 800, want: 250},
		"zero declared falls through":   {declared: `{"v":"0"}`, configured: 800, want: 800},
		"missing declared falls through": {declared: `{}`, configured: 800, want: 800},
		"fallback when nothing set":     {declared: `{}`, configured: 0, want: defaultWidth},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			declared := gjson.Parse(test.declared).Get("v")
			assert.Equal(t, test.want, pickDimension(declared, test.configured, defaultWidth))
		})
	}
}
