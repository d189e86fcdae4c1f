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

// Package filetool implements the workspace-sandboxed file tools:
// read_file, create_file, and replace_string_in_file. Every path is
// resolved through the active tool.Context's router.Filesystem, which
// enforces the workspace-root sandbox - these tools never touch os directly.
package filetool

import (
	"fmt"
	"strings"

	"github.com/agentruntime/core/pkg/apperr"
	"github.com/agentruntime/core/pkg/tool"
	"github.com/agentruntime/core/pkg/tool/functiontool"
)

// ReadFileArgs defines the parameters for read_file.
type ReadFileArgs struct {
	FilePath    string `json:"filePath" jsonschema:"required,description=File path to read (relative to the workspace root)"`
	StartLine   int    `json:"startLine,omitempty" jsonschema:"description=Starting line number (1-indexed),minimum=1"`
	EndLine     int    `json:"endLine,omitempty" jsonschema:"description=Ending line number (inclusive),minimum=1"`
	LineNumbers bool   `json:"lineNumbers,omitempty" jsonschema:"description=Include line numbers in output (always included when no line range is given)"`
}

// NewReadFile creates the read_file tool.
func NewReadFile() (tool.CallableTool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "read_file",
			Description: "Read the contents of a file with optional line numbers and range selection.",
		},
		func(ctx tool.Context, args ReadFileArgs) (map[string]any, error) {
			return readFile(ctx, args)
		},
	)
}

func readFile(ctx tool.Context, args ReadFileArgs) (map[string]any, error) {
	fs, err := ctx.Router().GetFilesystem(ctx.ExecutionContextID())
	if err != nil {
		return nil, err
	}

	content, err := fs.Read(args.FilePath)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(content, "\n")
	totalLines := len(lines)

	startLine := 1
	if args.StartLine > 0 {
		startLine = args.StartLine
		if startLine > totalLines {
			return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("startLine (%d) exceeds file length (%d lines)", startLine, totalLines))
		}
	}

	endLine := totalLines
	if args.EndLine > 0 {
		endLine = args.EndLine
		if endLine > totalLines {
			endLine = totalLines
		}
	}
	if startLine > endLine {
		return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("invalid range: startLine (%d) > endLine (%d)", startLine, endLine))
	}

	showLineNumbers := args.LineNumbers || (args.StartLine == 0 && args.EndLine == 0)

	var out strings.Builder
	for i := startLine - 1; i < endLine && i < len(lines); i++ {
		if showLineNumbers {
			fmt.Fprintf(&out, "%6d| %s\n", i+1, lines[i])
		} else {
			fmt.Fprintf(&out, "%s\n", lines[i])
		}
	}

	return map[string]any{
		"content":     strings.TrimSuffix(out.String(), "\n"),
		"filePath":    args.FilePath,
		"totalLines":  totalLines,
		"startLine":   startLine,
		"endLine":     endLine,
		"linesShown":  endLine - startLine + 1,
	}, nil
}
