// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"context"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/mirrormon/zabbixgraph/logger"
)

const defaultMaxInFlight = 4

// Request is a graph request descriptor as submitted by an external
// scheduler. ID correlates the response on the results channel; one is
// generated when left empty.
type Request struct {
	ID     string `yaml:"id,omitempty" json:"id,omitempty"`
	Config `yaml:",inline" json:""`
}

// Response is the outcome of one Request: either the result payload or a
// user-facing error string, never both.
type Response struct {
	ID string `json:"id,omitempty"`
	*Result
	Error string `json:"error,omitempty"`
}

// Service consumes Requests from a channel and emits one Response per
// Request. Requests run concurrently up to a fixed limit; all in-flight
// requests share the session and metadata caches.
type Service struct {
	*logger.Logger

	requests <-chan Request
	results  chan<- Response

	maxInFlight int

	sessions *sessionStore
	metadata *metadataStore
}

func NewService(requests <-chan Request, results chan<- Response) *Service {
	return &Service{
		Logger:      logger.New().With("component", "zabbixgraph"),
		requests:    requests,
		results:     results,
		maxInFlight: defaultMaxInFlight,
		sessions:    newSessionStore(),
		metadata:    newMetadataStore(),
	}
}

// WithMaxInFlight sets the concurrent request limit. Values below 1 keep the
// default.
func (s *Service) WithMaxInFlight(n int) *Service {
	if n >= 1 {
		s.maxInFlight = n
	}
	return s
}

// Run serves requests until the context is cancelled or the requests channel
// is closed, then waits for in-flight requests to finish.
func (s *Service) Run(ctx context.Context) {
	p := pool.New().WithMaxGoroutines(s.maxInFlight)
	defer p.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-s.requests:
			if !ok {
				return
			}
			p.Go(func() {
				s.results <- s.handle(ctx, req)
			})
		}
	}
}

func (s *Service) handle(ctx context.Context, req Request) Response {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	f := New()
	f.Config = req.Config
	f.Logger = s.With("request", id)
	f.sessions = s.sessions
	f.metadata = s.metadata

	if err := f.Init(); err != nil {
		s.Warningf("request %s: %v", id, err)
		return Response{ID: id, Error: UserMessage(err)}
	}
	defer f.Cleanup()

	res, err := f.Fetch(ctx)
	if err != nil {
		return Response{ID: id, Error: UserMessage(err)}
	}

	return Response{ID: id, Result: res}
}
