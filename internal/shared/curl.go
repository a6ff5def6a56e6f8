// Utilities for parsing cURL commands copied from a browser session.
//
// The media server's web app issues every request with the access token
// attached, so "Copy as cURL" on any request is the quickest way to obtain
// a working token during setup.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// CurlHeaders represents parsed headers and the access token from a cURL command.
type CurlHeaders struct {
	Headers map[string]string
	Token   string
}

var (
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlURLRegex    = regexp.MustCompile(`curl\s+'([^']+)'|curl\s+"([^"]+)"|curl\s+(\S+)`)
)

// ParseCurlFile reads a file containing a cURL command and extracts headers and token.
func ParseCurlFile(filepath string) (*CurlHeaders, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts headers and the
// X-Plex-Token, whether it was sent as a header or as a URL query parameter.
func ParseCurlCommand(data []byte) (*CurlHeaders, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var token string

	for _, match := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		headerLine := match[1]
		if headerLine == "" {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		headers[key] = value

		if strings.EqualFold(key, "X-Plex-Token") {
			token = value
		}
	}

	if token == "" {
		if m := curlURLRegex.FindStringSubmatch(curlCmd); m != nil {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			if raw == "" {
				raw = m[3]
			}
			if u, err := url.Parse(raw); err == nil {
				token = u.Query().Get("X-Plex-Token")
			}
		}
	}

	if token == "" {
		return nil, fmt.Errorf("%w: no X-Plex-Token found in curl command", ErrMissingCredentials)
	}

	return &CurlHeaders{Headers: headers, Token: token}, nil
}
