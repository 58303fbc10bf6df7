// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import "errors"

type errorKind int

const (
	errKindConfig errorKind = iota
	errKindHTTP
	errKindAPI
	errKindTimeout
	errKindValidation
	errKindNotFound
	errKindResolution
)

// fetchError is the error produced by the transport, resolver and image
// fetcher. Besides the message it carries two advisory signals the
// orchestrator uses to decide cache eviction: authResetKey names a credential
// store entry implicated in the failure, invalidateMetadata flags the
// metadata entry of the active request. The signals are hints only; nothing
// but the orchestrator mutates cache state.
type fetchError struct {
	kind errorKind

	msg     string
	userMsg string

	authResetKey       string
	invalidateMetadata bool

	err error
}

func (e *fetchError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *fetchError) Unwrap() error { return e.err }

// userMessage is what gets surfaced to the caller. Internal diagnostic
// detail stays in logs.
func (e *fetchError) userMessage() string {
	if e.userMsg != "" {
		return e.userMsg
	}
	if e.msg != "" {
		return e.msg
	}
	return "Unknown error"
}

// UserMessage returns the user-facing message for an error returned by
// Fetcher.Fetch. Unknown errors are surfaced as their raw message.
func UserMessage(err error) string {
	var fe *fetchError
	if errors.As(err, &fe) {
		return fe.userMessage()
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "Unknown error"
}
