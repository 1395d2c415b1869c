// Package sources fetches template images from URLs, local files and the
// bundled default list, and stores them in the templates directory.
package sources

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Kind identifies where a template comes from.
type Kind string

// Source kinds.
const (
	KindURL      Kind = "url"
	KindFile     Kind = "file"
	KindDefaults Kind = "defaults"
)

// MaxNameLength bounds template names.
const MaxNameLength = 255

var (
	// ErrInvalidRequest is matched by *RequestError.
	ErrInvalidRequest = errors.New("invalid template request")
	// ErrNameUnknown is returned when no file name can be derived.
	ErrNameUnknown = errors.New("could not determine file name")
)

// RequestError reports a malformed request field.
type RequestError struct {
	Field   string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrInvalidRequest.
func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Request describes one template to fetch.
type Request struct {
	Kind Kind   `yaml:"-"`
	Name string `yaml:"name,omitempty"`
	Key  string `yaml:"key,omitempty"`
	URL  string `yaml:"url,omitempty"`
	Path string `yaml:"path,omitempty"`
}

// Origin is the URL or file the request reads from.
func (r Request) Origin() string {
	if r.Kind == KindFile {
		return r.Path
	}
	return r.URL
}

// Label is a human-readable identifier for progress and errors.
func (r Request) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Origin()
}

// Validate checks the request's fields.
func (r Request) Validate() error {
	switch r.Kind {
	case KindURL, KindDefaults:
		if err := ValidateURL(r.URL); err != nil {
			return err
		}
	case KindFile:
		if strings.TrimSpace(r.Path) == "" {
			return &RequestError{Field: "path", Message: "is required"}
		}
	default:
		return &RequestError{Field: "kind", Message: fmt.Sprintf("unknown source %q", r.Kind)}
	}
	if r.Name != "" {
		if err := ValidateName(r.Name); err != nil {
			return err
		}
	}
	if r.Key != "" && strings.ContainsFunc(r.Key, unicode.IsSpace) {
		return &RequestError{Field: "key", Message: "must not contain whitespace"}
	}
	return nil
}

// Fetched is the content of a template ready to be stored.
type Fetched struct {
	Name   string
	Key    string
	Data   []byte
	Origin string
	// FileName is the name to store the data under, extension included.
	FileName string
}

type pullList struct {
	Templates []Request `yaml:"templates"`
}

// ParsePullList parses a YAML document of the form
//
//	templates:
//	  - name: Drake
//	    url: https://example.com/drake.jpg
//
// Entries with a path instead of a url are local files.
func ParsePullList(data []byte) ([]Request, error) {
	var list pullList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse pull list: %w", err)
	}

	reqs := make([]Request, 0, len(list.Templates))
	for i, req := range list.Templates {
		switch {
		case req.URL != "" && req.Path != "":
			return nil, &RequestError{Field: fmt.Sprintf("templates[%d]", i), Message: "set either url or path, not both"}
		case req.URL != "":
			req.Kind = KindURL
		case req.Path != "":
			req.Kind = KindFile
		default:
			return nil, &RequestError{Field: fmt.Sprintf("templates[%d]", i), Message: "url or path is required"}
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// LoadPullList reads a pull list file. Relative paths inside it resolve
// against the file's directory.
func LoadPullList(file string) ([]Request, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read pull list: %w", err)
	}
	reqs, err := ParsePullList(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	base := filepath.Dir(file)
	for i := range reqs {
		if reqs[i].Kind == KindFile && !filepath.IsAbs(reqs[i].Path) {
			reqs[i].Path = filepath.Join(base, reqs[i].Path)
		}
	}
	return reqs, nil
}

// Dedupe drops requests whose origin was already seen, keeping the first.
func Dedupe(reqs []Request) []Request {
	seen := make(map[string]struct{}, len(reqs))
	out := make([]Request, 0, len(reqs))
	for _, req := range reqs {
		origin := strings.TrimSpace(req.Origin())
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		out = append(out, req)
	}
	return out
}

// ValidateName rejects names that are too long or contain path or control
// characters.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &RequestError{Field: "name", Message: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &RequestError{Field: "name", Message: fmt.Sprintf("too long (max %d characters)", MaxNameLength)}
	}
	if strings.ContainsAny(name, `<>:"/\|?*`) {
		return &RequestError{Field: "name", Message: `must not contain any of <>:"/\|?*`}
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return &RequestError{Field: "name", Message: "must not contain control characters"}
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &RequestError{Field: "url", Message: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &RequestError{Field: "url", Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &RequestError{Field: "url", Message: fmt.Sprintf("unsupported scheme %q (want http or https)", u.Scheme)}
	}
	if u.Host == "" {
		return &RequestError{Field: "url", Message: "host is required"}
	}
	return nil
}

// FileName derives the stored file name for a request. An explicit name
// without an extension inherits the origin's extension; spaces become
// underscores.
func FileName(req Request) (string, error) {
	originBase := originBase(req)
	name := req.Name
	if name == "" {
		name = originBase
	}
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%s: %w", req.Origin(), ErrNameUnknown)
	}
	if !hasImageExt(name) {
		name += path.Ext(originBase)
	}
	return strings.ReplaceAll(name, " ", "_"), nil
}

// DisplayName is the catalog name for a request: the explicit name without
// an image extension, or empty to let the catalog derive one.
func DisplayName(req Request) string {
	if hasImageExt(req.Name) {
		return strings.TrimSuffix(req.Name, filepath.Ext(req.Name))
	}
	return req.Name
}

var imageExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".bmp": {},
}

func hasImageExt(name string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

func originBase(req Request) string {
	if req.Kind == KindFile {
		return filepath.Base(req.Path)
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return base
}
