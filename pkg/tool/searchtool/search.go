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

// Package searchtool implements semantic_search: a code/content search tool
// with a tiered ripgrep fallback. Every search runs through the active
// tool.Context's router.Terminal, so the same implementation serves both the
// local context and any registered remote hop without branching on which one
// is active.
package searchtool

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentruntime/core/pkg/apperr"
	"github.com/agentruntime/core/pkg/router"
	"github.com/agentruntime/core/pkg/tool"
	"github.com/agentruntime/core/pkg/tool/functiontool"
)

// Mode selects how the query string is interpreted.
type Mode string

const (
	ModeSmart    Mode = "smart"
	ModeContent  Mode = "content"
	ModeFilename Mode = "filename"
	ModeRegex    Mode = "regex"
)

// SemanticSearchArgs defines the parameters for semantic_search.
type SemanticSearchArgs struct {
	Query        string   `json:"query" jsonschema:"required,description=Search query"`
	Scope        string   `json:"scope,omitempty" jsonschema:"description=Directory to scope the search to,default=."`
	FileTypes    []string `json:"fileTypes,omitempty" jsonschema:"description=File extensions to restrict the search to, e.g. [go, md]"`
	Mode         Mode     `json:"mode,omitempty" jsonschema:"description=Search mode,enum=smart|content|filename|regex,default=smart"`
	ContextLines int      `json:"contextLines,omitempty" jsonschema:"description=Lines of context around each match,default=0,minimum=0,maximum=20"`
	MaxResults   int      `json:"maxResults,omitempty" jsonschema:"description=Maximum number of results,default=50,minimum=1,maximum=500"`
}

// Match is a single semantic_search hit.
type Match struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Snippet  string `json:"snippet"`
	FilePath string `json:"filePath"`
}

// New creates the semantic_search tool.
func New() (tool.CallableTool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "semantic_search",
			Description: "Search file contents or filenames. Content search falls back from a literal match through token-based matching until it finds results.",
		},
		func(ctx tool.Context, args SemanticSearchArgs) (map[string]any, error) {
			return search(ctx, args)
		},
	)
}

func search(ctx tool.Context, args SemanticSearchArgs) (map[string]any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, apperr.New(apperr.InvalidArgument, "query must not be empty")
	}

	scope := args.Scope
	if scope == "" {
		scope = "."
	}
	maxResults := args.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	mode := args.Mode
	if mode == "" {
		mode = ModeSmart
	}

	term, err := ctx.Router().GetTerminal(ctx.ExecutionContextID())
	if err != nil {
		return nil, err
	}

	if mode == ModeFilename {
		matches, err := searchFilenames(term, args.Query, scope, maxResults)
		if err != nil {
			return nil, err
		}
		return map[string]any{"matches": namespace(ctx, matches), "mode": string(ModeFilename)}, nil
	}

	tiers := contentTiers(args.Query, mode)
	var lastErr error
	for i, tr := range tiers {
		matches, err := runRipgrep(term, tr, args, scope, maxResults)
		if err != nil {
			lastErr = err
			continue
		}
		if len(matches) > 0 || i == len(tiers)-1 {
			return map[string]any{"matches": namespace(ctx, matches), "tier": tr.name, "mode": string(mode)}, nil
		}
	}
	if lastErr != nil {
		return nil, apperr.Wrap(apperr.External, "search failed on every fallback tier", lastErr)
	}

	return map[string]any{"matches": []Match{}, "mode": string(mode)}, nil
}

func namespace(ctx tool.Context, matches []Match) []Match {
	for i := range matches {
		matches[i].FilePath = router.FormatNamespacedPath(ctx.ExecutionContextID(), matches[i].File)
	}
	return matches
}

type searchTier struct {
	name string
	flag string
}

// contentTiers builds the ordered fallback: literal fixed-string
// case-sensitive, then case-insensitive, then an AND-of-tokens regex
// (ordered, tokens of 3+ chars), then an OR-of-tokens regex.
func contentTiers(query string, mode Mode) []searchTier {
	if mode == ModeRegex {
		return []searchTier{{"regex", "-e " + shellQuote(query)}}
	}

	tiers := []searchTier{
		{"literal", "-F -e " + shellQuote(query)},
		{"literal-insensitive", "-F -i -e " + shellQuote(query)},
	}

	tokens := significantTokens(query)
	if len(tokens) > 1 {
		andPattern := strings.Join(quoteTokens(tokens), ".*")
		tiers = append(tiers, searchTier{"and-tokens", "-U -i -e " + shellQuote(andPattern)})

		orPattern := strings.Join(quoteTokens(tokens), "|")
		tiers = append(tiers, searchTier{"or-tokens", "-i -e " + shellQuote(orPattern)})
	}

	return tiers
}

func significantTokens(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !(r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	var out []string
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

func quoteTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = regexp.QuoteMeta(t)
	}
	return out
}

func runRipgrep(term router.Terminal, tr searchTier, args SemanticSearchArgs, scope string, maxResults int) ([]Match, error) {
	var b strings.Builder
	b.WriteString("rg --line-number --no-heading ")
	if args.ContextLines > 0 {
		fmt.Fprintf(&b, "-C %d ", args.ContextLines)
	}
	for _, ext := range args.FileTypes {
		fmt.Fprintf(&b, "-g %s ", shellQuote("*."+strings.TrimPrefix(ext, ".")))
	}
	fmt.Fprintf(&b, "-m %d ", maxResults)
	b.WriteString(tr.flag)
	b.WriteString(" -- ")
	b.WriteString(shellQuote(scope))

	result, err := term.Execute(b.String())
	if err != nil {
		return nil, err
	}
	if result.Status != 0 && result.Stdout == "" {
		// ripgrep exits 1 for "no matches", which is not an error for us.
		if result.Status == 1 {
			return nil, nil
		}
		return nil, apperr.New(apperr.External, strings.TrimSpace(result.Stderr))
	}

	return parseRipgrepOutput(result.Stdout, maxResults), nil
}

// parseRipgrepOutput parses "path:line:content" lines from ripgrep's
// --line-number --no-heading output, stopping at maxResults.
func parseRipgrepOutput(output string, maxResults int) []Match {
	var matches []Match
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() && len(matches) < maxResults {
		line := scanner.Text()
		if line == "" || line == "--" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		lineNo, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		matches = append(matches, Match{
			File:    parts[0],
			Line:    lineNo,
			Snippet: strings.TrimRight(parts[2], "\r"),
		})
	}
	return matches
}

func searchFilenames(term router.Terminal, query, scope string, maxResults int) ([]Match, error) {
	cmd := fmt.Sprintf("rg --files -g %s -- %s", shellQuote("*"+query+"*"), shellQuote(scope))
	result, err := term.Execute(cmd)
	if err != nil {
		return nil, err
	}
	if result.Status != 0 && result.Stdout == "" {
		// Exit 1 is "no matches"; 127 is the shell's "command not found".
		if result.Status == 1 || result.Status == 127 {
			return filenameFallback(term, query, scope, maxResults)
		}
		return nil, apperr.New(apperr.External, strings.TrimSpace(result.Stderr))
	}

	var matches []Match
	scanner := bufio.NewScanner(strings.NewReader(result.Stdout))
	for scanner.Scan() && len(matches) < maxResults {
		path := scanner.Text()
		if path == "" {
			continue
		}
		matches = append(matches, Match{File: path})
	}
	return matches, nil
}

// filenameFallback uses a shell find when ripgrep produced no hits or is
// unavailable on the hop's PATH.
func filenameFallback(term router.Terminal, query, scope string, maxResults int) ([]Match, error) {
	cmd := fmt.Sprintf("find %s -iname %s 2>/dev/null | head -n %d", shellQuote(scope), shellQuote("*"+query+"*"), maxResults)
	result, err := term.Execute(cmd)
	if err != nil {
		return nil, err
	}

	var matches []Match
	scanner := bufio.NewScanner(strings.NewReader(result.Stdout))
	for scanner.Scan() && len(matches) < maxResults {
		path := scanner.Text()
		if path == "" {
			continue
		}
		matches = append(matches, Match{File: path})
	}
	return matches, nil
}

// shellQuote wraps s in single quotes for safe embedding in a `sh -c`
// command line, escaping any single quotes it contains.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
