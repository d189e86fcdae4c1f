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

package webtool

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentruntime/core/pkg/apperr"
)

func isYouTubeURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host == "youtube.com" || host == "www.youtube.com" || host == "youtu.be" || host == "m.youtube.com"
}

// videoID extracts the v= parameter from a youtube.com/watch URL, or the
// final path segment of a youtu.be short link.
func videoID(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidArgument, "invalid YouTube URL", err)
	}
	if strings.ToLower(parsed.Hostname()) == "youtu.be" {
		id := strings.Trim(parsed.Path, "/")
		if id == "" {
			return "", apperr.New(apperr.InvalidArgument, "youtu.be URL has no video id")
		}
		return id, nil
	}
	id := parsed.Query().Get("v")
	if id == "" {
		return "", apperr.New(apperr.InvalidArgument, "YouTube URL has no v= parameter")
	}
	return id, nil
}

type timedTextTranscript struct {
	XMLName xml.Name      `xml:"transcript"`
	Texts   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

// fetchYouTubeTranscript retrieves the default auto-generated caption track
// for a video via YouTube's unauthenticated timedtext endpoint and
// concatenates it into a single transcript string.
func fetchYouTubeTranscript(ctx context.Context, client *http.Client, rawURL string, maxLength int) (map[string]any, error) {
	id, err := videoID(rawURL)
	if err != nil {
		return nil, err
	}

	endpoint := "https://video.google.com/timedtext?lang=en&v=" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "build transcript request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "fetch transcript", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.External, fmt.Sprintf("transcript request returned HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "read transcript response", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, apperr.New(apperr.NotFound, "no caption track available for this video")
	}

	var parsed timedTextTranscript
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.External, "parse transcript XML", err)
	}

	var b strings.Builder
	for _, line := range parsed.Texts {
		b.WriteString(strings.TrimSpace(line.Text))
		b.WriteString(" ")
	}
	transcript := strings.TrimSpace(b.String())

	truncated := false
	if len(transcript) > maxLength {
		transcript = truncateAtWordBoundary(transcript, maxLength)
		truncated = true
	}

	return map[string]any{
		"url":        rawURL,
		"videoId":    id,
		"content":    transcript,
		"format":     "transcript",
		"truncated":  truncated,
		"isYouTube":  true,
	}, nil
}
