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

// Package functiontool builds a tool.CallableTool from a typed Go function,
// generating its JSON schema from struct tags (via invopop/jsonschema)
// instead of hand-written schema literals.
//
// Example:
//
//	type GetWeatherArgs struct {
//	    City string `json:"city" jsonschema:"required,description=City name"`
//	}
//
//	weatherTool, err := functiontool.New(
//	    functiontool.Config{Name: "get_weather", Description: "Current weather for a city"},
//	    func(ctx tool.Context, args GetWeatherArgs) (map[string]any, error) {
//	        return map[string]any{"temp": 22}, nil
//	    },
//	)
package functiontool

import (
	"fmt"

	"github.com/agentruntime/core/pkg/apperr"
	"github.com/agentruntime/core/pkg/tool"
)

// Config defines the configuration for a function tool.
type Config struct {
	Name        string
	Description string
}

// New creates a CallableTool from a typed function. Args must be a struct
// with json and jsonschema tags describing the parameters.
func New[Args any](cfg Config, fn func(tool.Context, Args) (map[string]any, error)) (tool.CallableTool, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	schema, err := generateSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %s: %w", cfg.Name, err)
	}

	return &functionTool[Args]{config: cfg, fn: fn, schema: schema}, nil
}

// NewWithValidation creates a CallableTool with custom argument validation,
// run after the typed args are decoded and before fn is invoked.
func NewWithValidation[Args any](
	cfg Config,
	fn func(tool.Context, Args) (map[string]any, error),
	validate func(Args) error,
) (tool.CallableTool, error) {
	baseTool, err := New(cfg, fn)
	if err != nil {
		return nil, err
	}

	return &functionToolWithValidation[Args]{
		functionTool: baseTool.(*functionTool[Args]),
		validate:     validate,
	}, nil
}

// functionTool implements tool.CallableTool by wrapping a typed function.
type functionTool[Args any] struct {
	config Config
	fn     func(tool.Context, Args) (map[string]any, error)
	schema map[string]any
}

func (t *functionTool[Args]) Name() string        { return t.config.Name }
func (t *functionTool[Args]) Description() string { return t.config.Description }
func (t *functionTool[Args]) Schema() map[string]any {
	return t.schema
}

func (t *functionTool[Args]) Call(ctx tool.Context, args map[string]any) (*tool.Result, error) {
	var typedArgs Args
	if err := mapToStruct(args, &typedArgs); err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, fmt.Sprintf("invalid arguments for %s", t.config.Name), err)
	}

	data, err := t.fn(ctx, typedArgs)
	if err != nil {
		return nil, err
	}
	return &tool.Result{Success: true, Data: data}, nil
}

// functionToolWithValidation wraps a function tool with custom validation.
type functionToolWithValidation[Args any] struct {
	*functionTool[Args]
	validate func(Args) error
}

func (t *functionToolWithValidation[Args]) Call(ctx tool.Context, args map[string]any) (*tool.Result, error) {
	var typedArgs Args
	if err := mapToStruct(args, &typedArgs); err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, fmt.Sprintf("invalid arguments for %s", t.config.Name), err)
	}

	if err := t.validate(typedArgs); err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, fmt.Sprintf("validation failed for %s", t.config.Name), err)
	}

	data, err := t.fn(ctx, typedArgs)
	if err != nil {
		return nil, err
	}
	return &tool.Result{Success: true, Data: data}, nil
}

func validateConfig(cfg Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if cfg.Description == "" {
		return fmt.Errorf("tool description is required")
	}
	return nil
}

var _ tool.CallableTool = (*functionTool[struct{}])(nil)
var _ tool.CallableTool = (*functionToolWithValidation[struct{}])(nil)
