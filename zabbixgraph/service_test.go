// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Run(t *testing.T) {
	srv := newZbxServer()
	defer srv.Close()

	okCfg := Config{}
	okCfg.URL = srv.URL
	okCfg.Username = "magicmirror"
	okCfg.Password = "secret"
	okCfg.DashboardID = "555"

	badCfg := Config{}
	badCfg.URL = srv.URL
	badCfg.DashboardID = "555"

	requests := make(chan Request)
	results := make(chan Response, 3)

	svc := NewService(requests, results).WithMaxInFlight(2)

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	requests <- Request{ID: "ok", Config: okCfg}
	requests <- Request{ID: "bad", Config: badCfg}
	requests <- Request{Config: okCfg}
	close(requests)

	select {
	case <-done:
	case <-time.After(time.Second * 10):
		t.Fatal("service did not finish")
	}
	close(results)

	got := make(map[string]Response)
	var generated []Response
	for resp := range results {
		switch resp.ID {
		case "ok", "bad":
			got[resp.ID] = resp
		default:
			generated = append(generated, resp)
		}
	}

	require.Len(t, got, 2)
	require.Len(t, generated, 1)

	ok := got["ok"]
	require.NotNil(t, ok.Result)
	assert.Empty(t, ok.Error)
	assert.Equal(t, int64(654321), ok.GraphID)
	assert.NotEmpty(t, ok.Image)

	bad := got["bad"]
	assert.Nil(t, bad.Result)
	assert.Equal(t, "Missing username/password or apiToken in configuration", bad.Error)

	assert.NotEmpty(t, generated[0].ID, "an id must be generated when the request has none")
}

func TestService_sharesSessionAcrossRequests(t *testing.T) {
	srv := newZbxServer()
	defer srv.Close()

	cfg := Config{}
	cfg.URL = srv.URL
	cfg.Username = "magicmirror"
	cfg.Password = "secret"
	cfg.DashboardID = "555"

	requests := make(chan Request)
	results := make(chan Response, 2)

	svc := NewService(requests, results).WithMaxInFlight(1)

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	requests <- Request{ID: "first", Config: cfg}
	requests <- Request{ID: "second", Config: cfg}
	close(requests)
	<-done

	assert.Equal(t, 1, srv.callCount("user.login"), "fetchers must share the session store")
	assert.Equal(t, 1, srv.callCount("graph.get"), "fetchers must share the metadata cache")
}

func TestResponse_JSONShape(t *testing.T) {
	okResp := Response{
		ID: "r1",
		Result: &Result{
			Title:   "CPU load",
			GraphID: 654321,
			Width:   600,
			Height:  300,
			Items:   json.RawMessage("[]"),
			Image:   "aGVsbG8=",
		},
	}

	bs, err := json.Marshal(okResp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "r1",
		"title": "CPU load",
		"graphId": 654321,
		"width": 600,
		"height": 300,
		"items": [],
		"image": "aGVsbG8="
	}`, string(bs))

	errResp := Response{ID: "r2", Error: "Unknown error"}

	bs, err = json.Marshal(errResp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r2","error":"Unknown error"}`, string(bs))
}
