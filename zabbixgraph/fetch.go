// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Result is the successful outcome of a graph request.
type Result struct {
	Title   string          `json:"title"`
	GraphID int64           `json:"graphId"`
	Width   int64           `json:"width"`
	Height  int64           `json:"height"`
	Items   json.RawMessage `json:"items"`
	Image   string          `json:"image"`
}

// Fetch runs one request: authenticate (cache first), resolve the dashboard
// widget, fetch metadata (cache first), download and validate the image.
// On failure the error's advisory signals decide which cache entries are
// evicted before the error is returned; Fetch never retries, the caller owns
// the retry schedule.
func (f *Fetcher) Fetch(ctx context.Context) (*Result, error) {
	res, metaKey, err := f.fetchOnce(ctx)
	if err == nil {
		return res, nil
	}

	f.Errorf("failed to load graph %s: %v", f.graphRef(), err)

	var fe *fetchError
	if errors.As(err, &fe) {
		if fe.authResetKey != "" {
			f.sessions.evict(fe.authResetKey)
		}
		if metaKey != "" && (fe.authResetKey != "" || fe.invalidateMetadata) {
			f.metadata.evict(metaKey)
		}
	}

	return nil, err
}

func (f *Fetcher) fetchOnce(ctx context.Context) (*Result, string, error) {
	session, err := f.authenticate(ctx)
	if err != nil {
		return nil, "", err
	}

	rc, err := f.resolveChart(ctx, session)
	if err != nil {
		return nil, "", err
	}

	metaKey := metadataKey(f.URL, rc.graphID)

	meta, ok := f.metadata.get(metaKey)
	if !ok {
		if meta, err = f.fetchMetadata(ctx, session, rc.graphID); err != nil {
			return nil, metaKey, err
		}
	}

	if rc.title != "" && rc.title != meta.title {
		meta = &graphMetadata{title: rc.title, items: meta.items}
	}

	if metaKey != "" {
		f.metadata.set(metaKey, meta)
	}

	image, err := f.client.fetchImage(ctx, chartParams{
		graphID:   rc.graphID,
		width:     rc.width,
		height:    rc.height,
		period:    rc.period,
		stime:     rc.stime,
		timeShift: rc.timeShift,
	}, session)
	if err != nil {
		return nil, metaKey, err
	}

	return &Result{
		Title:   meta.title,
		GraphID: rc.graphID,
		Width:   rc.width,
		Height:  rc.height,
		Items:   meta.items,
		Image:   image,
	}, metaKey, nil
}

// authenticate returns the session token to use for this request, or "" in
// token mode. Token mode never reads or writes the session store.
func (f *Fetcher) authenticate(ctx context.Context) (string, error) {
	if f.usesAPIToken() {
		return "", nil
	}

	if f.Username == "" || f.Password == "" {
		return "", &fetchError{
			kind: errKindConfig,
			msg:  "Missing username/password or apiToken in configuration",
		}
	}

	key := credentialKey(f.URL, f.Username)

	if token, ok := f.sessions.get(key); ok {
		return token, nil
	}

	res, err := f.client.call(ctx, "user.login", map[string]string{
		"user":     f.Username,
		"password": f.Password,
	}, "")
	if err != nil {
		return "", err
	}

	token := res.String()
	if token == "" {
		return "", &fetchError{kind: errKindAPI, msg: "Zabbix authentication failed"}
	}

	f.sessions.set(key, token)

	return token, nil
}

// fetchMetadata loads the graph title and item list via two API calls.
// A graph.get miss flags the metadata entry for invalidation: the id the
// cache knows is gone on the server.
func (f *Fetcher) fetchMetadata(ctx context.Context, session string, graphID int64) (*graphMetadata, error) {
	graphs, err := f.client.call(ctx, "graph.get", map[string]any{
		"graphids": []int64{graphID},
		"output":   "extend",
	}, session)
	if err != nil {
		return nil, err
	}

	if !graphs.IsArray() || len(graphs.Array()) == 0 {
		return nil, &fetchError{
			kind:               errKindNotFound,
			msg:                fmt.Sprintf("Graph %d was not found", graphID),
			invalidateMetadata: true,
		}
	}

	items, err := f.client.call(ctx, "graphitem.get", map[string]any{
		"graphids": []int64{graphID},
		"output":   "extend",
	}, session)
	if err != nil {
		return nil, err
	}

	itemsRaw := json.RawMessage(items.Raw)
	if !items.IsArray() {
		itemsRaw = json.RawMessage("[]")
	}

	return &graphMetadata{
		title: graphs.Array()[0].Get("name").String(),
		items: itemsRaw,
	}, nil
}

func (f *Fetcher) graphRef() string {
	if v := f.GraphID; v != "" {
		return v
	}
	if v := f.DashboardID; v != "" {
		return "dashboard " + v
	}
	return "unknown"
}
