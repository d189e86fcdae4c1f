// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filetool

import (
	"fmt"
	"strings"

	"github.com/agentruntime/core/pkg/apperr"
	"github.com/agentruntime/core/pkg/tool"
	"github.com/agentruntime/core/pkg/tool/functiontool"
)

// ReplaceStringArgs defines the parameters for replace_string_in_file.
type ReplaceStringArgs struct {
	FilePath        string `json:"filePath" jsonschema:"required,description=File path to edit (relative to the workspace root)"`
	OldString       string `json:"oldString" jsonschema:"required,description=Exact text to find"`
	NewString       string `json:"newString" jsonschema:"required,description=Replacement text"`
	ValidateContext bool   `json:"validateContext,omitempty" jsonschema:"description=Require exactly one occurrence of oldString,default=false"`
}

// NewReplaceStringInFile creates the replace_string_in_file tool.
func NewReplaceStringInFile() (tool.CallableTool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "replace_string_in_file",
			Description: "Replace an exact substring in a file. When validateContext is set, requires the substring to occur exactly once.",
		},
		func(ctx tool.Context, args ReplaceStringArgs) (map[string]any, error) {
			return replaceStringInFile(ctx, args)
		},
	)
}

func replaceStringInFile(ctx tool.Context, args ReplaceStringArgs) (map[string]any, error) {
	fs, err := ctx.Router().GetFilesystem(ctx.ExecutionContextID())
	if err != nil {
		return nil, err
	}

	content, err := fs.Read(args.FilePath)
	if err != nil {
		return nil, err
	}

	count := strings.Count(content, args.OldString)
	if count == 0 {
		return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("oldString not found in file: %q", truncateString(args.OldString, 50)))
	}
	if args.ValidateContext && count > 1 {
		return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("oldString occurs %d times; must be unique when validateContext is set", count))
	}

	newContent := strings.Replace(content, args.OldString, args.NewString, 1)
	if err := fs.Write(args.FilePath, []byte(newContent)); err != nil {
		return nil, err
	}

	return map[string]any{
		"filePath":     args.FilePath,
		"occurrences":  count,
		"sizeChange":   len(newContent) - len(content),
	}, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
