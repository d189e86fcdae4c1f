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

// Package tool defines the uniform invocation surface for tools that agents
// can call: filesystem reads/writes, shell execution, code search, document
// parsing, media generation, and web fetch.
//
// A Tool self-describes with a JSON-schema parameters document consumed by
// the LLM framework adapters for function-calling, and executes through a
// single dispatch path that never lets an implementation panic or escape
// across the agent boundary - see Dispatch.
package tool

import (
	"context"
	"iter"

	"github.com/agentruntime/core/pkg/router"
)

// Tool is the base descriptor every invocable tool implements.
type Tool interface {
	// Name returns the unique, registry-wide tool name.
	Name() string

	// Description is consumed by LLM adapters to decide when to call this tool.
	Description() string

	// Schema returns the JSON-schema document for the tool's parameters.
	// Returns nil for tools that take no arguments.
	Schema() map[string]any
}

// CallableTool executes synchronously and returns a single Result.
type CallableTool interface {
	Tool

	// Call executes the tool with validated arguments.
	Call(ctx Context, args map[string]any) (*Result, error)
}

// StreamingTool yields incremental output as it becomes available, for any
// tool whose output benefits from progressive display.
type StreamingTool interface {
	Tool

	// CallStreaming executes the tool, yielding Result chunks. The final
	// chunk has Streaming=false. Returning false from yield (consumer
	// stopped reading) must cause the implementation to abandon work at
	// its next suspension point.
	CallStreaming(ctx Context, args map[string]any) iter.Seq2[*Result, error]
}

// Result is the outcome of a tool invocation or one chunk of a streaming one.
type Result struct {
	// Success mirrors spec.md's ToolResult.success.
	Success bool

	// Data carries the tool's structured payload on success.
	Data any

	// Error is a human-readable failure reason; set only when !Success.
	Error string

	// Streaming marks this as a non-final chunk of a StreamingTool's output.
	Streaming bool

	// Metadata carries tool-specific side information (e.g. truncation info).
	Metadata map[string]any
}

// Context is the execution context handed to a tool invocation. It carries
// everything a tool needs to resolve "which filesystem, which shell" without
// importing the router or agent packages directly.
type Context interface {
	context.Context

	// FunctionCallID is the unique id of this invocation, used to correlate
	// a tool_use message with its tool_result.
	FunctionCallID() string

	// Router resolves the active local/remote execution context.
	Router() *router.Router

	// ExecutionContextID names the active context (router.Hop id) for this call.
	ExecutionContextID() string

	// WorkspaceRoot is the sandboxing root for filesystem tools.
	WorkspaceRoot() string

	// SearchMemory looks up relevant entries from the calling agent's memory,
	// nil if the agent has no memory attached.
	SearchMemory(ctx context.Context, query string) ([]MemoryEntry, error)
}

// MemoryEntry is the minimal shape a tool needs from a memory search result;
// the full type lives in pkg/memory and satisfies this via duck typing at
// the call site (agent wires its own memory.Store into Context.SearchMemory).
type MemoryEntry struct {
	Content   string
	Relevance float64
}

// Definition is a provider-agnostic function-calling descriptor built from a Tool.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToDefinition converts a registered tool into its function-calling Definition.
func ToDefinition(t Tool) Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Schema(),
	}
}

// Call represents an LLM's request to invoke a tool.
type Call struct {
	ID   string
	Name string
	Args map[string]any
}

// Dispatch runs a CallableTool and converts any panic or error into a failed
// Result rather than letting it terminate the enclosing agent run, per
// spec.md §4.3's dispatcher contract.
func Dispatch(ctx Context, t CallableTool, args map[string]any) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &Result{Success: false, Error: panicMessage(r)}
		}
	}()

	res, err := t.Call(ctx, args)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}
	}
	if res == nil {
		return &Result{Success: true}
	}
	return res
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "tool panicked"
}

// Predicate determines whether a tool should be exposed in a given call.
type Predicate func(t Tool) bool

// AllowNamed returns a Predicate that allows only the named tools.
func AllowNamed(names ...string) Predicate {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return func(t Tool) bool { return allowed[t.Name()] }
}

// AllowAll allows every tool.
func AllowAll() Predicate { return func(Tool) bool { return true } }
