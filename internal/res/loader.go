package res

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ResourceType represents the type of resource
type ResourceType int

const (
	// ResourceTypeUnknown is an unknown resource type
	ResourceTypeUnknown ResourceType = iota
	// ResourceTypeImage is an image resource
	ResourceTypeImage
	// ResourceTypeCSS is a CSS resource
	ResourceTypeCSS
	// ResourceTypeHTML is an HTML document
	ResourceTypeHTML
	// ResourceTypeOther is any other resource
	ResourceTypeOther
)

// ErrNotFound is returned when a local resource exists in none of the
// search locations
var ErrNotFound = errors.New("resource not found")

// Resource represents a loaded resource
type Resource struct {
	URL      string
	Type     ResourceType
	Data     []byte
	MimeType string
}

// Loader handles loading resources. It is safe for concurrent use.
type Loader struct {
	// Base URL or file path for resolving relative URLs
	BaseURL string

	// Logger receives debug output about loaded resources
	Logger *log.Logger

	cache     map[string]*Resource
	cacheLock sync.RWMutex

	sizes     map[string][2]float64
	sizesLock sync.Mutex

	searchPaths []string

	client *http.Client
}

// NewLoader creates a new resource loader
func NewLoader(baseURL string) *Loader {
	return &Loader{
		BaseURL:     baseURL,
		cache:       make(map[string]*Resource),
		sizes:       make(map[string][2]float64),
		searchPaths: []string{},
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// AddSearchPath adds a directory to search for local resources
func (l *Loader) AddSearchPath(path string) {
	l.searchPaths = append(l.searchPaths, path)
}

func (l *Loader) logger() *log.Logger {
	if l.Logger == nil {
		return log.New(io.Discard)
	}
	return l.Logger
}

// Load loads a resource from a URL or file path
func (l *Loader) Load(urlStr string) (*Resource, error) {
	l.cacheLock.RLock()
	if res, ok := l.cache[urlStr]; ok {
		l.cacheLock.RUnlock()
		return res, nil
	}
	l.cacheLock.RUnlock()

	var res *Resource
	var err error
	if strings.HasPrefix(urlStr, "data:") {
		res, err = parseDataURL(urlStr)
	} else {
		var resolved string
		resolved, err = l.resolveURL(urlStr)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", urlStr, err)
		}
		if isRemote(resolved) {
			res, err = l.loadRemote(resolved)
		} else {
			res, err = l.loadLocal(resolved)
		}
	}
	if err != nil {
		return nil, err
	}
	l.logger().Debug("loaded resource", "url", res.URL, "type", res.MimeType, "bytes", len(res.Data))

	l.cacheLock.Lock()
	l.cache[urlStr] = res
	l.cacheLock.Unlock()

	return res, nil
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// parseDataURL parses a data URL (RFC 2397) and returns a Resource.
// Examples:
//
//	data:image/png;base64,<base64>
//	data:text/plain,Hello%20World
func parseDataURL(u string) (*Resource, error) {
	s, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URL")
	}
	meta, dataPart, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URL")
	}

	mime := "text/plain"
	isBase64 := false
	if meta != "" {
		// meta can be like: image/png;base64 or text/plain;charset=utf-8
		comps := strings.Split(meta, ";")
		if comps[0] != "" {
			mime = comps[0]
		}
		for _, c := range comps[1:] {
			if strings.EqualFold(strings.TrimSpace(c), "base64") {
				isBase64 = true
			}
		}
	}

	var data []byte
	if isBase64 {
		var err error
		data, err = base64.StdEncoding.DecodeString(dataPart)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data URL: %w", err)
		}
	} else if d, err := url.PathUnescape(dataPart); err == nil {
		data = []byte(d)
	} else {
		data = []byte(dataPart)
	}

	r := &Resource{URL: u, Data: data, MimeType: mime}
	r.Type = determineResourceType(mime, "")
	return r, nil
}

// resolveURL resolves a URL relative to the base URL
func (l *Loader) resolveURL(urlStr string) (string, error) {
	if isRemote(urlStr) || filepath.IsAbs(urlStr) {
		return urlStr, nil
	}

	if !isRemote(l.BaseURL) {
		if l.BaseURL == "" {
			return urlStr, nil
		}
		return filepath.Join(filepath.Dir(l.BaseURL), urlStr), nil
	}

	baseURL, err := url.Parse(l.BaseURL)
	if err != nil {
		return "", err
	}
	relURL, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(relURL).String(), nil
}

// loadRemote loads a resource from a remote URL
func (l *Loader) loadRemote(urlStr string) (*Resource, error) {
	resp, err := l.client.Get(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: HTTP error: %s", urlStr, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", urlStr, err)
	}

	mime, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	res := &Resource{
		URL:      urlStr,
		Data:     data,
		MimeType: strings.TrimSpace(mime),
	}
	res.Type = determineResourceType(res.MimeType, urlStr)
	return res, nil
}

// loadLocal loads a resource from a local file, falling back to the
// search paths when it does not exist
func (l *Loader) loadLocal(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l.loadFromSearchPaths(path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return localResource(path, data), nil
}

// loadFromSearchPaths tries to load a resource from the search paths
func (l *Loader) loadFromSearchPaths(filename string) (*Resource, error) {
	baseFilename := filepath.Base(filename)

	for _, searchPath := range l.searchPaths {
		path := filepath.Join(searchPath, baseFilename)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return localResource(path, data), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
}

func localResource(path string, data []byte) *Resource {
	res := &Resource{URL: path, Data: data, MimeType: determineMimeType(path)}
	res.Type = determineResourceType(res.MimeType, path)
	return res
}

// determineMimeType determines the MIME type of a file
func determineMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".svg":
		return "image/svg+xml"
	case ".css":
		return "text/css"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

// determineResourceType determines the type of a resource
func determineResourceType(mimeType, path string) ResourceType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return ResourceTypeImage
	case mimeType == "text/css":
		return ResourceTypeCSS
	case mimeType == "text/html":
		return ResourceTypeHTML
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".tiff", ".tif", ".bmp":
		return ResourceTypeImage
	case ".css":
		return ResourceTypeCSS
	case ".html", ".htm":
		return ResourceTypeHTML
	}

	return ResourceTypeOther
}

// LoadImage loads an image resource
func (l *Loader) LoadImage(urlStr string) (*Resource, error) {
	res, err := l.Load(urlStr)
	if err != nil {
		return nil, err
	}
	if res.Type != ResourceTypeImage {
		return nil, fmt.Errorf("resource is not an image: %s", urlStr)
	}
	return res, nil
}

// LoadCSS loads a CSS resource
func (l *Loader) LoadCSS(urlStr string) (*Resource, error) {
	res, err := l.Load(urlStr)
	if err != nil {
		return nil, err
	}
	if res.Type != ResourceTypeCSS {
		return nil, fmt.Errorf("resource is not CSS: %s", urlStr)
	}
	return res, nil
}

// LoadHTML loads an HTML resource. Any type is accepted since servers
// commonly mislabel documents.
func (l *Loader) LoadHTML(urlStr string) (*Resource, error) {
	return l.Load(urlStr)
}

// GetReader returns a reader for a resource
func (r *Resource) GetReader() *bytes.Reader {
	return bytes.NewReader(r.Data)
}

// GetString returns the resource data as a string
func (r *Resource) GetString() string {
	return string(r.Data)
}
