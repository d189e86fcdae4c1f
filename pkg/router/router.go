// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package router resolves "which filesystem, which shell" for the active
// execution context of a tool call: the local machine, or a named remote
// hop. Tools borrow a Filesystem/Terminal handle from the Router for the
// duration of a single call; the router owns no application state beyond
// the hop registry itself.
package router

import (
	"fmt"
	"strings"
	"sync"
)

// LocalContextID is the default context, always present.
const LocalContextID = "local"

// Filesystem is the minimal contract a local or remote filesystem backend
// must satisfy for tools to read, write, and search files through it.
type Filesystem interface {
	Read(path string) (string, error)
	ReadBinary(path string) ([]byte, error)
	Write(path string, data []byte) error
	CreateDirectory(path string) error
	ListDirectory(path string) ([]string, error)
}

// CommandResult is the outcome of running a command through a Terminal.
type CommandResult struct {
	Status    int
	Stdout    string
	Stderr    string
	PID       int
	ContextID string
}

// Terminal is the minimal contract a local or remote shell backend must
// satisfy for run_in_terminal.
type Terminal interface {
	Execute(cmd string) (*CommandResult, error)
}

// ContextInfo describes a resolved execution context for introspection.
type ContextInfo struct {
	ContextID     string
	Status        string
	WorkspaceRoot string
	CWD           string
}

// Hop is a named remote execution context (e.g. SSH-backed). Any transport
// that can provide a filesystem, terminal, and context description can
// register itself as a Hop; no concrete remote transport ships in this
// package — that is left to the embedding application.
type Hop interface {
	ID() string
	Filesystem() Filesystem
	Terminal() Terminal
	Info() ContextInfo
}

// Router maintains the current context id and the set of registered remote
// hops. The zero value is not usable; call New.
type Router struct {
	mu       sync.RWMutex
	current  string
	hops     map[string]Hop
	local    Hop
}

// New creates a Router whose current context is LocalContextID, backed by
// local, the local-filesystem/terminal Hop (see NewLocalHop).
func New(local Hop) *Router {
	return &Router{
		current: LocalContextID,
		hops:    make(map[string]Hop),
		local:   local,
	}
}

// RegisterHop adds or replaces a named remote hop.
func (r *Router) RegisterHop(id string, hop Hop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hops[id] = hop
}

// UnregisterHop removes a remote hop by id.
func (r *Router) UnregisterHop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hops, id)
}

// SetCurrent changes the active context id for subsequent resolution.
func (r *Router) SetCurrent(ctxID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = ctxID
}

// Current returns the active context id.
func (r *Router) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Router) resolve(ctxID string) (Hop, error) {
	if ctxID == "" || ctxID == LocalContextID {
		return r.local, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	hop, ok := r.hops[ctxID]
	if !ok {
		return nil, fmt.Errorf("unknown context: %s", ctxID)
	}
	return hop, nil
}

// GetFilesystem resolves the Filesystem for ctxID ("" means the current context).
func (r *Router) GetFilesystem(ctxID string) (Filesystem, error) {
	hop, err := r.resolve(r.effective(ctxID))
	if err != nil {
		return nil, err
	}
	return hop.Filesystem(), nil
}

// GetTerminal resolves the Terminal for ctxID ("" means the current context).
func (r *Router) GetTerminal(ctxID string) (Terminal, error) {
	hop, err := r.resolve(r.effective(ctxID))
	if err != nil {
		return nil, err
	}
	return hop.Terminal(), nil
}

// GetContext resolves the ContextInfo for ctxID ("" means the current context).
func (r *Router) GetContext(ctxID string) (ContextInfo, error) {
	hop, err := r.resolve(r.effective(ctxID))
	if err != nil {
		return ContextInfo{}, err
	}
	return hop.Info(), nil
}

func (r *Router) effective(ctxID string) string {
	if ctxID != "" {
		return ctxID
	}
	return r.Current()
}

// ParseNamespacedPath splits a raw path of the form "id:/abs/path" into its
// context id and absolute path. Edge cases, per spec:
//   - empty input returns ("local", "/")
//   - a single-letter prefix followed by ':' (a Windows drive letter, e.g.
//     "C:/Users") is NOT treated as a namespace
//   - input without a namespace prefix defaults to "local"
func ParseNamespacedPath(raw string) (ctxID, path string) {
	if raw == "" {
		return LocalContextID, "/"
	}

	idx := strings.Index(raw, ":")
	if idx < 0 {
		return LocalContextID, raw
	}

	prefix := raw[:idx]
	if len(prefix) == 1 {
		// Windows drive letter, e.g. "C:/Users/...".
		return LocalContextID, raw
	}

	return prefix, raw[idx+1:]
}

// FormatNamespacedPath is the inverse of ParseNamespacedPath: it renders a
// context id and path back into "id:/abs/path" form. The local context is
// rendered with its "local:" prefix too (an empty ctxID means local), so that
// ParseNamespacedPath(FormatNamespacedPath("local", p)) == ("local", p).
func FormatNamespacedPath(ctxID, path string) string {
	if ctxID == "" {
		ctxID = LocalContextID
	}
	return ctxID + ":" + path
}
