package pages

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/senzi/llm-render-box/internal/idgen"
)

// Service is the page repository plus view state consumed by the transport layer.
type Service interface {
	LoadPages(ctx context.Context) error
	CreateNewPage(ctx context.Context, params CreateParams) (*Page, error)
	UpdatePage(ctx context.Context, id string, patch PagePatch) (*Page, error)
	DeletePage(ctx context.Context, id string) error
	SetCurrentPage(id string)
	ImportJSON(ctx context.Context, raw []byte) (int, error)
	Import(ctx context.Context, backup *Backup) (int, error)
	ExportAll(ctx context.Context) (*Backup, error)

	Pages() []Page
	FindPage(id string) *Page
	CurrentPageID() string
	CurrentPage() *Page
	Loading() bool
	Snapshot() State
}

// StoreOptions configures a Store.
type StoreOptions struct {
	Repository  Repository
	IDGenerator idgen.Generator
	Clock       func() time.Time
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
}

// Store mirrors the pages table in memory, newest first, and tracks the current page.
//
// The mutex only guards the in-memory state. Writes to the repository happen
// outside of it, so overlapping mutations of the same page may persist in
// either order and memory can run ahead of storage when a write fails.
// LoadPages resynchronises the two.
type Store struct {
	repo      Repository
	newID     idgen.Generator
	now       func() time.Time
	logger    *logrus.Logger
	sentryHub *sentry.Hub

	mu            sync.RWMutex
	pages         []Page
	currentPageID string
	loading       bool
}

var _ Service = (*Store)(nil)

// NewStore wires a Store with its dependencies. The in-memory list starts empty
// until LoadPages is called.
func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Repository == nil {
		return nil, eris.New("pages repository is required")
	}

	newID := opts.IDGenerator
	if newID == nil {
		newID = idgen.Default
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Store{
		repo:      opts.Repository,
		newID:     newID,
		now:       clock,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
		pages:     []Page{},
	}, nil
}

// LoadPages replaces the in-memory list with the full table sorted by updatedAt, newest first.
// The loading flag is cleared on every exit path.
func (s *Store) LoadPages(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	list, err := s.repo.All(ctx)
	if err != nil {
		s.recordError(nil, err, "loading pages")
		return err
	}

	sortByUpdatedDesc(list)

	s.mu.Lock()
	s.pages = list
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.WithField("count", len(list)).Debug("pages loaded")
	}

	return nil
}

// CreateNewPage persists a new page and puts it at the front of the list as the current page.
func (s *Store) CreateNewPage(ctx context.Context, params CreateParams) (*Page, error) {
	title := DefaultTitle
	if params.Title != nil {
		title = *params.Title
	}

	code := BlankHTML
	if params.Code != nil {
		code = *params.Code
	}

	now := s.nowMillis()
	page := Page{
		ID:        s.newID(),
		Title:     title,
		Code:      code,
		Thumbnail: nil,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Add(ctx, &page); err != nil {
		s.recordError(logrus.Fields{"page_id": page.ID}, err, "creating page")
		return nil, err
	}

	s.mu.Lock()
	s.pages = append([]Page{page}, s.pages...)
	s.currentPageID = page.ID
	s.mu.Unlock()

	created := page.clone()
	return &created, nil
}

// UpdatePage merges patch into the page with the given id and re-sorts the list
// before persisting. It returns nil without error when the id is unknown.
func (s *Store) UpdatePage(ctx context.Context, id string, patch PagePatch) (*Page, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx == -1 {
		s.mu.Unlock()
		return nil, nil
	}

	updated := mergePatch(s.pages[idx], patch, s.nowMillis())
	// Front first, so a page edited within the same millisecond as another still leads.
	s.pages = slices.Insert(slices.Delete(s.pages, idx, idx+1), 0, updated)
	sortByUpdatedDesc(s.pages)
	s.mu.Unlock()

	if err := s.repo.Put(ctx, &updated); err != nil {
		// TODO: roll the in-memory record back once the UI can surface a stale-write state.
		s.recordError(logrus.Fields{"page_id": id}, err, "persisting updated page")
		return nil, err
	}

	result := updated.clone()
	return &result, nil
}

// DeletePage drops the page from memory, clearing the current page if it matches,
// then removes it from the table. Unknown ids are ignored.
func (s *Store) DeletePage(ctx context.Context, id string) error {
	s.mu.Lock()
	s.pages = slices.DeleteFunc(s.pages, func(p Page) bool { return p.ID == id })
	if s.currentPageID == id {
		s.currentPageID = ""
	}
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.recordError(logrus.Fields{"page_id": id}, err, "deleting page")
		return err
	}

	return nil
}

// SetCurrentPage records id as the current page without checking that it exists.
func (s *Store) SetCurrentPage(id string) {
	s.mu.Lock()
	s.currentPageID = id
	s.mu.Unlock()
}

// ImportJSON validates and decodes a raw backup, then imports it.
func (s *Store) ImportJSON(ctx context.Context, raw []byte) (int, error) {
	backup, err := DecodeBackup(raw)
	if err != nil {
		return 0, err
	}

	return s.Import(ctx, backup)
}

// Import stores every backup entry under a fresh id and reloads the list.
// Missing timestamps default to now. The first failed insert aborts the import;
// entries written before it are kept.
func (s *Store) Import(ctx context.Context, backup *Backup) (int, error) {
	if backup == nil || backup.Pages == nil {
		return 0, eris.Wrap(ErrInvalidBackup, "backup has no pages array")
	}

	imported := 0
	for _, entry := range backup.Pages {
		now := s.nowMillis()

		page := entry.clone()
		page.ID = s.newID()
		if page.CreatedAt == 0 {
			page.CreatedAt = now
		}
		if page.UpdatedAt == 0 {
			page.UpdatedAt = now
		}

		if err := s.repo.Add(ctx, &page); err != nil {
			s.recordError(logrus.Fields{"page_id": page.ID, "imported": imported}, err, "importing page")
			return imported, err
		}
		imported++
	}

	if err := s.LoadPages(ctx); err != nil {
		return imported, err
	}

	if s.logger != nil {
		s.logger.WithField("count", imported).Info("pages imported")
	}

	return imported, nil
}

// ExportAll reads the table, not the in-memory list, and wraps it as a Backup.
func (s *Store) ExportAll(ctx context.Context) (*Backup, error) {
	list, err := s.repo.All(ctx)
	if err != nil {
		s.recordError(nil, err, "exporting pages")
		return nil, err
	}

	return &Backup{Pages: list}, nil
}

// Pages returns a copy of the in-memory list, newest first.
func (s *Store) Pages() []Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clonePages(s.pages)
}

// FindPage looks a page up in the in-memory list.
func (s *Store) FindPage(id string) *Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findLocked(id)
}

func (s *Store) CurrentPageID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentPageID
}

// CurrentPage resolves the current page id, returning nil when it is unset or unknown.
func (s *Store) CurrentPage() *Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentPageID == "" {
		return nil
	}
	return s.findLocked(s.currentPageID)
}

// Loading reports whether a full reload is in progress. It is advisory only.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Pages:         clonePages(s.pages),
		CurrentPageID: nullableID(s.currentPageID),
		Loading:       s.loading,
	}
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.pages, func(p Page) bool { return p.ID == id })
}

func (s *Store) findLocked(id string) *Page {
	idx := s.indexOf(id)
	if idx == -1 {
		return nil
	}
	found := s.pages[idx].clone()
	return &found
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *Store) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func sortByUpdatedDesc(list []Page) {
	slices.SortStableFunc(list, func(a, b Page) int {
		return cmp.Compare(b.UpdatedAt, a.UpdatedAt)
	})
}

func clonePages(list []Page) []Page {
	out := make([]Page, len(list))
	for i := range list {
		out[i] = list[i].clone()
	}
	return out
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
