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
	"path/filepath"

	"github.com/agentruntime/core/pkg/tool"
	"github.com/agentruntime/core/pkg/tool/functiontool"
)

// CreateFileArgs defines the parameters for create_file.
type CreateFileArgs struct {
	FilePath          string `json:"filePath" jsonschema:"required,description=File path relative to the workspace root"`
	Content           string `json:"content" jsonschema:"required,description=Content to write"`
	CreateDirectories bool   `json:"createDirectories,omitempty" jsonschema:"description=Create parent directories if missing,default=false"`
}

// NewCreateFile creates the create_file tool.
func NewCreateFile() (tool.CallableTool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "create_file",
			Description: "Create a new file or overwrite an existing one with content, optionally creating parent directories.",
		},
		func(ctx tool.Context, args CreateFileArgs) (map[string]any, error) {
			return createFile(ctx, args)
		},
	)
}

func createFile(ctx tool.Context, args CreateFileArgs) (map[string]any, error) {
	fs, err := ctx.Router().GetFilesystem(ctx.ExecutionContextID())
	if err != nil {
		return nil, err
	}

	if args.CreateDirectories {
		dir := filepath.Dir(args.FilePath)
		if dir != "." && dir != "/" {
			if err := fs.CreateDirectory(dir); err != nil {
				return nil, fmt.Errorf("create parent directories: %w", err)
			}
		}
	}

	if err := fs.Write(args.FilePath, []byte(args.Content)); err != nil {
		return nil, err
	}

	return map[string]any{
		"filePath": args.FilePath,
		"bytes":    len(args.Content),
	}, nil
}
