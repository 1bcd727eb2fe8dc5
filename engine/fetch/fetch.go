// Package fetch provides the byte sources the loader resolves external buffer and image URIs through.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedScheme is returned when no source handles a URL's scheme.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// ByteSource retrieves the full contents addressed by a URL or path.
// Implementations must be safe for concurrent use; the loader fetches in parallel.
type ByteSource interface {
	// Fetch reads the resource at url.
	//
	// Parameters:
	//   - ctx: cancels the read
	//   - url: an absolute URL, a file:// URL or a file path
	//
	// Returns:
	//   - []byte: the resource contents
	//   - error: error if the resource cannot be read
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// --- Func ---

// Func adapts a function to ByteSource.
type Func func(ctx context.Context, url string) ([]byte, error)

var _ ByteSource = Func(nil)

func (f Func) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// --- File ---

// fileSourceImpl reads from the local filesystem.
type fileSourceImpl struct {
	root string
}

var _ ByteSource = &fileSourceImpl{}

// NewFileSource creates a source reading files relative to root. Absolute paths and file:// URLs ignore root.
//
// Parameters:
//   - root: the directory relative paths resolve against, "" for the working directory
//
// Returns:
//   - ByteSource: the file source
func NewFileSource(root string) ByteSource {
	return &fileSourceImpl{root: root}
}

func (s *fileSourceImpl) Fetch(ctx context.Context, target string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := target
	if strings.HasPrefix(path, "file://") {
		u, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("invalid file url %q: %w", target, err)
		}
		path = u.Path
	} else if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	if !filepath.IsAbs(path) && s.root != "" {
		path = filepath.Join(s.root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// --- HTTP ---

// HTTPSourceOption is a functional option for configuring an HTTP source via NewHTTPSource.
type HTTPSourceOption func(*httpSourceImpl)

// httpSourceImpl performs GET requests.
type httpSourceImpl struct {
	client  *http.Client
	headers http.Header
}

var _ ByteSource = &httpSourceImpl{}

// NewHTTPSource creates a source that GETs http and https URLs.
//
// Parameters:
//   - options: a variadic list of HTTPSourceOption functions
//
// Returns:
//   - ByteSource: the HTTP source
func NewHTTPSource(options ...HTTPSourceOption) ByteSource {
	s := &httpSourceImpl{
		client:  http.DefaultClient,
		headers: make(http.Header),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// WithClient is an option builder that sets the HTTP client.
//
// Parameters:
//   - c: the client
//
// Returns:
//   - HTTPSourceOption: a function that applies the client option
func WithClient(c *http.Client) HTTPSourceOption {
	return func(s *httpSourceImpl) {
		s.client = c
	}
}

// WithHeader is an option builder that adds a request header to every fetch.
func WithHeader(key, value string) HTTPSourceOption {
	return func(s *httpSourceImpl) {
		s.headers.Add(key, value)
	}
}

func (s *httpSourceImpl) Fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", target, err)
	}
	for k, vs := range s.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to get %s: status %s", target, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", target, err)
	}
	return data, nil
}

// --- Scheme Router ---

// routerImpl dispatches by URL scheme.
type routerImpl struct {
	schemes  map[string]ByteSource
	fallback ByteSource
}

var _ ByteSource = &routerImpl{}

// NewRouter creates a source that picks a delegate by URL scheme ("http", "https", "file", ...).
// URLs without a scheme, or with a one-letter scheme (Windows drive), go to fallback.
//
// Parameters:
//   - schemes: delegates keyed by lowercase scheme
//   - fallback: the delegate for paths, nil to reject them
//
// Returns:
//   - ByteSource: the router
func NewRouter(schemes map[string]ByteSource, fallback ByteSource) ByteSource {
	return &routerImpl{schemes: schemes, fallback: fallback}
}

// NewDefault routes http and https to an HTTP source and everything else to the filesystem under root.
//
// Parameters:
//   - root: the directory relative paths resolve against
//
// Returns:
//   - ByteSource: the default source
func NewDefault(root string) ByteSource {
	web := NewHTTPSource()
	files := NewFileSource(root)
	return NewRouter(map[string]ByteSource{
		"http":  web,
		"https": web,
		"file":  files,
	}, files)
}

func (r *routerImpl) Fetch(ctx context.Context, target string) ([]byte, error) {
	scheme := Scheme(target)
	if scheme == "" {
		if r.fallback == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, target)
		}
		return r.fallback.Fetch(ctx, target)
	}
	src, ok := r.schemes[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	return src.Fetch(ctx, target)
}

// Scheme returns the lowercase URL scheme of target, or "" for plain paths.
func Scheme(target string) string {
	i := strings.Index(target, ":")
	if i <= 1 {
		return ""
	}
	for _, c := range target[:i] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return ""
		}
	}
	return strings.ToLower(target[:i])
}

// --- Layered ---

// layeredImpl tries each source in order.
type layeredImpl struct {
	sources []ByteSource
}

var _ ByteSource = &layeredImpl{}

// NewLayered creates a source that returns the first successful fetch among sources.
// When every source fails, the errors are joined.
func NewLayered(sources ...ByteSource) ByteSource {
	return &layeredImpl{sources: sources}
}

func (l *layeredImpl) Fetch(ctx context.Context, target string) ([]byte, error) {
	var errs []error
	for _, s := range l.sources {
		data, err := s.Fetch(ctx, target)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no sources configured for %s", target)
	}
	return nil, errors.Join(errs...)
}
