package schema

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// maxRemoteSize bounds screens documents fetched over HTTP.
const maxRemoteSize = 4 << 20

// Source identifies where a screens document comes from.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindURL  SourceKind = "url"
)

type fileSource struct {
	path string
}

func (s fileSource) Location() string { return s.path }

func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type urlSource struct {
	raw string
}

func (s urlSource) Location() string { return s.raw }

func (s urlSource) Kind() SourceKind { return SourceKindURL }

// SourceFromURL validates raw and returns a Source for it.
func SourceFromURL(raw string) (Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("schema: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("schema: invalid URL %q: %w", raw, err)
	}
	return urlSource{raw: raw}, nil
}

// ParseSource treats http and https locations as URLs and anything else as a
// file path.
func ParseSource(raw string) (Source, error) {
	location := strings.TrimSpace(raw)
	if location == "" {
		return nil, fmt.Errorf("schema: screens location is required")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return SourceFromURL(location)
	}
	return SourceFromFile(location), nil
}

// Load reads the document behind src and parses it. client is used for URL
// sources; http.DefaultClient when nil.
func Load(ctx context.Context, src Source, client *http.Client) (*Catalog, error) {
	if src == nil {
		return nil, fmt.Errorf("schema: source is required")
	}
	switch src.Kind() {
	case SourceKindFile:
		data, err := os.ReadFile(src.Location())
		if err != nil {
			return nil, fmt.Errorf("schema: read %s: %w", src.Location(), err)
		}
		return Parse(data, src.Location())
	case SourceKindURL:
		data, err := fetch(ctx, src.Location(), client)
		if err != nil {
			return nil, err
		}
		return Parse(data, src.Location())
	default:
		return nil, fmt.Errorf("schema: unsupported source kind %q", src.Kind())
	}
}

func fetch(ctx context.Context, location string, client *http.Client) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: build request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("schema: fetch %s: status %d", location, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize))
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", location, err)
	}
	return data, nil
}
