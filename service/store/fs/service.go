package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/service/store"
)

// Service implements a filesystem-backed document store. Each stage is a
// directory under the base URL and each document a JSON file named by its
// id, so the durable layout mirrors the lifecycle: moving a file between
// stage directories is the stage transition. The base URL accepts any afs
// scheme (file:///, mem://, s3:// ...).
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.Mutex
}

var _ store.Service = (*Service)(nil)

// New creates a filesystem document store rooted at baseURL and ensures
// every stage directory exists.
func New(baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	fsService := afs.New()
	ctx := context.Background()
	baseURL = url.Normalize(baseURL, file.Scheme)
	for _, stage := range document.Stages {
		stageURL := url.Join(baseURL, string(stage))
		exists, _ := fsService.Exists(ctx, stageURL)
		if !exists {
			if err := fsService.Create(ctx, stageURL, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create stage directory %s: %w", stageURL, err)
			}
		}
	}
	return &Service{baseURL: baseURL, fs: fsService}, nil
}

// Deposit stores a new document in its stage directory.
func (s *Service) Deposit(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return store.ErrNilDocument
	}
	if doc.ID == "" {
		return store.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if stage, _ := s.locate(ctx, doc.ID); stage != "" {
		return store.ErrDuplicateDocument
	}
	return s.upload(ctx, doc)
}

// List returns the ids in a stage ordered by creation time, id tie-break.
func (s *Service) List(ctx context.Context, stage document.Stage) ([]string, error) {
	objects, err := s.fs.List(ctx, url.Join(s.baseURL, string(stage)))
	if err != nil {
		return nil, fmt.Errorf("failed to list stage %s: %w", stage, err)
	}
	type entry struct {
		id  string
		doc *document.Document
	}
	var entries []entry
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			continue
		}
		var doc document.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		entries = append(entries, entry{id: doc.ID, doc: &doc})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].doc.CreatedAt.Equal(entries[j].doc.CreatedAt) {
			return entries[i].id < entries[j].id
		}
		return entries[i].doc.CreatedAt.Before(entries[j].doc.CreatedAt)
	})
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}

// Move relocates the document file between stage directories. The rename is
// the claim primitive: once the source file is gone a concurrent Move on
// the same edge fails with ErrNotFound.
func (s *Service) Move(ctx context.Context, id string, from, to document.Stage) error {
	if id == "" {
		return store.ErrInvalidID
	}
	if !from.CanTransition(to) {
		return store.ErrInvalidTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sourceURL := s.documentURL(from, id)
	exists, err := s.fs.Exists(ctx, sourceURL)
	if err != nil {
		return fmt.Errorf("failed to check document %s: %w", id, err)
	}
	if !exists {
		return store.ErrNotFound
	}
	doc, err := s.download(ctx, sourceURL)
	if err != nil {
		return err
	}
	doc.Stage = to
	doc.Touch()
	if err := s.upload(ctx, doc); err != nil {
		return err
	}
	if err := s.fs.Delete(ctx, sourceURL); err != nil {
		return fmt.Errorf("failed to remove document %s from stage %s: %w", id, from, err)
	}
	return nil
}

// Read locates and returns the document regardless of stage.
func (s *Service) Read(ctx context.Context, id string) (*document.Document, error) {
	if id == "" {
		return nil, store.ErrInvalidID
	}
	stage, doc := s.locate(ctx, id)
	if stage == "" {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

// Write overwrites the document in its current stage.
func (s *Service) Write(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return store.ErrNilDocument
	}
	if doc.ID == "" {
		return store.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stage, _ := s.locate(ctx, doc.ID)
	if stage == "" {
		return store.ErrNotFound
	}
	updated := doc.Clone()
	updated.Stage = stage
	updated.Touch()
	return s.upload(ctx, updated)
}

func (s *Service) locate(ctx context.Context, id string) (document.Stage, *document.Document) {
	for _, stage := range document.Stages {
		candidate := s.documentURL(stage, id)
		if exists, _ := s.fs.Exists(ctx, candidate); !exists {
			continue
		}
		doc, err := s.download(ctx, candidate)
		if err != nil {
			continue
		}
		return stage, doc
	}
	return "", nil
}

func (s *Service) download(ctx context.Context, URL string) (*document.Document, error) {
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file %s: %w", URL, err)
	}
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", URL, err)
	}
	return &doc, nil
}

func (s *Service) upload(ctx context.Context, doc *document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
	}
	URL := s.documentURL(doc.Stage, doc.ID)
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save document to %s: %w", URL, err)
	}
	return nil
}

func (s *Service) documentURL(stage document.Stage, id string) string {
	return url.Join(s.baseURL, path.Join(string(stage), id+".json"))
}
