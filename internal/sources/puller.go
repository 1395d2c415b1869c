package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/opencode-ai/memer/internal/events"
	"github.com/opencode-ai/memer/internal/logging"
	"github.com/opencode-ai/memer/internal/models"
	"github.com/opencode-ai/memer/internal/templates"
	"github.com/rs/zerolog"
)

// RecordStore persists metadata for stored templates.
type RecordStore interface {
	Upsert(ctx context.Context, rec *models.TemplateRecord) error
}

// New template files are readable by everyone, like the system templates dir.
const templateFileMode os.FileMode = 0o644

// Pulled is a template stored on disk.
type Pulled struct {
	Request Request
	Path    string
	Info    templates.ImageInfo
}

// Failure is a request that could not be pulled.
type Failure struct {
	Request Request
	Err     error
}

// Result summarizes a pull.
type Result struct {
	Pulled []Pulled
	Failed []Failure
}

// Puller fetches requests and stores them in a templates directory.
type Puller struct {
	dir     string
	fetcher Fetcher
	store   RecordStore
	events  events.Repository
	now     func() time.Time
	logger  zerolog.Logger
}

// PullerOption configures a Puller.
type PullerOption func(*Puller)

// WithRecordStore records metadata for each stored template.
func WithRecordStore(store RecordStore) PullerOption {
	return func(p *Puller) { p.store = store }
}

// WithEventLog appends a history event per request.
func WithEventLog(repo events.Repository) PullerOption {
	return func(p *Puller) { p.events = repo }
}

// NewPuller creates a puller writing into dir.
func NewPuller(dir string, fetcher Fetcher, opts ...PullerOption) *Puller {
	p := &Puller{
		dir:     dir,
		fetcher: fetcher,
		now:     time.Now,
		logger:  logging.Component("pull"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pull de-duplicates reqs and fetches each one. Individual failures are
// collected in the result; only a context cancellation or an unusable target
// directory stops the pull early. progress, if set, is called after each
// request.
func (p *Puller) Pull(ctx context.Context, reqs []Request, progress func(done, total int, req Request)) (*Result, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create templates directory: %w", err)
	}

	reqs = Dedupe(reqs)
	result := &Result{}
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pulled, err := p.pullOne(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}
			p.logger.Debug().Err(err).Str("origin", req.Origin()).Msg("pull failed")
			result.Failed = append(result.Failed, Failure{Request: req, Err: err})
			p.record(func(repo events.Repository) error {
				return events.LogPullFailed(ctx, repo, req.Label(), req.Origin(), err)
			})
		} else {
			p.logger.Info().Str("path", pulled.Path).Str("origin", req.Origin()).Msg("template pulled")
			result.Pulled = append(result.Pulled, *pulled)
			p.record(func(repo events.Repository) error {
				return events.LogTemplatePulled(ctx, repo, req.Label(), req.Origin(), pulled.Path)
			})
		}

		if progress != nil {
			progress(i+1, len(reqs), req)
		}
	}
	return result, nil
}

func (p *Puller) pullOne(ctx context.Context, req Request) (*Pulled, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fileName, err := FileName(req)
	if err != nil {
		return nil, err
	}
	if err := ValidateName(fileName); err != nil {
		return nil, err
	}

	data, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	fetched := Fetched{
		Name:     DisplayName(req),
		Key:      req.Key,
		Data:     data,
		Origin:   req.Origin(),
		FileName: fileName,
	}
	pulled, err := p.save(ctx, fetched)
	if err != nil {
		return nil, err
	}
	pulled.Request = req
	return pulled, nil
}

// save validates the fetched bytes and writes them atomically.
func (p *Puller) save(ctx context.Context, f Fetched) (*Pulled, error) {
	info, err := templates.ProbeBytes(f.Origin, f.Data)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, f.FileName)
	_, statErr := os.Stat(path)
	if err := atomic.WriteFile(path, bytes.NewReader(f.Data)); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	if errors.Is(statErr, os.ErrNotExist) {
		if err := os.Chmod(path, templateFileMode); err != nil {
			return nil, fmt.Errorf("chmod %s: %w", path, err)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	if p.store != nil {
		name := f.Name
		if name == "" {
			stem := strings.TrimSuffix(f.FileName, filepath.Ext(f.FileName))
			name = templates.NiceName(stem)
		}
		rec := &models.TemplateRecord{
			Path:     abs,
			Name:     name,
			Key:      f.Key,
			Origin:   f.Origin,
			PulledAt: p.now().UTC(),
			Metadata: map[string]string{
				"format": info.Format,
				"width":  strconv.Itoa(info.Width),
				"height": strconv.Itoa(info.Height),
				"bytes":  strconv.Itoa(len(f.Data)),
			},
		}
		if err := p.store.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("record %s: %w", abs, err)
		}
	}

	return &Pulled{Path: abs, Info: info}, nil
}

func (p *Puller) record(log func(events.Repository) error) {
	if p.events == nil {
		return
	}
	if err := log(p.events); err != nil {
		p.logger.Warn().Err(err).Msg("failed to record history event")
	}
}
