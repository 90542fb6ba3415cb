package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/mod/semver"
)

// MinAPIVersion is the oldest catalog API this client speaks.
const MinAPIVersion = "v1.0.0"

type openAPIDoc struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
}

// CheckAPIVersion reads the server's OpenAPI document and verifies the
// API major version matches and is at least MinAPIVersion. It returns
// the canonical server version.
func (c *Client) CheckAPIVersion(ctx context.Context) (string, error) {
	var doc openAPIDoc
	if err := c.do(ctx, "GET", "/openapi.json", nil, nil, &doc); err != nil {
		return "", eris.Wrap(err, "fetch API version")
	}
	v := doc.Info.Version
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("server reported invalid API version %q", doc.Info.Version)
	}
	v = semver.Canonical(v)
	if semver.Major(v) != semver.Major(MinAPIVersion) {
		return v, fmt.Errorf("unsupported API version %s (want %s.x)", v, semver.Major(MinAPIVersion))
	}
	if semver.Compare(v, MinAPIVersion) < 0 {
		return v, fmt.Errorf("API version %s is older than %s", v, MinAPIVersion)
	}
	return v, nil
}
