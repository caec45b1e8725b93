package dictionary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the record store behind the dictionary API
type Store interface {
	Search(ctx context.Context, query, lang string) ([]Entry, error)
	Entry(ctx context.Context, id string) (*Entry, error)

	ListCustomWords(ctx context.Context, userID string) ([]CustomWord, error)
	CreateCustomWord(ctx context.Context, in NewCustomWord) (*CustomWord, error)
	UpdateCustomWord(ctx context.Context, id string, patch CustomWordPatch) (*CustomWord, error)
	DeleteCustomWord(ctx context.Context, id string) error

	ListPackages(ctx context.Context) ([]Package, error)
	UpdatePackage(ctx context.Context, id string, patch PackagePatch) (*Package, error)

	User(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, in NewUser) (*User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error)
}

// MemoryStore keeps every record in memory. It is seeded with the built-in
// entries and packages.
type MemoryStore struct {
	now func() time.Time

	mu       sync.RWMutex
	entries  []Entry
	byID     map[string]int
	words    map[string]*CustomWord
	packages []*Package
	users    map[string]*User
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithNow sets the time source used for timestamps
func WithNow(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a seeded store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:   time.Now,
		byID:  make(map[string]int),
		words: make(map[string]*CustomWord),
		users: make(map[string]*User),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, e := range seedEntries() {
		e.ID = uuid.New().String()
		s.byID[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	for _, p := range seedPackages() {
		p := p
		p.ID = uuid.New().String()
		if p.IsDownloaded {
			at := s.now()
			p.DownloadedAt = &at
		}
		s.packages = append(s.packages, &p)
	}
	return s
}

// Search returns up to SearchLimit entries in lang whose word contains
// query, ignoring case. An empty lang searches English.
func (s *MemoryStore) Search(ctx context.Context, query, lang string) ([]Entry, error) {
	if lang == "" {
		lang = LangEnglish
	}
	if !ValidLanguage(lang) {
		return nil, fmt.Errorf("%w: language %q", ErrInvalid, lang)
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalid)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Entry, 0)
	for _, e := range s.entries {
		if e.Language != lang || !strings.Contains(strings.ToLower(e.Word), needle) {
			continue
		}
		results = append(results, cloneEntry(e))
		if len(results) == SearchLimit {
			break
		}
	}
	return results, nil
}

// Entry returns one entry by id
func (s *MemoryStore) Entry(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	e := cloneEntry(s.entries[i])
	return &e, nil
}

// ListCustomWords returns userID's words, oldest first
func (s *MemoryStore) ListCustomWords(ctx context.Context, userID string) ([]CustomWord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	words := make([]CustomWord, 0)
	for _, w := range s.words {
		if w.UserID == userID {
			words = append(words, *w)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].CreatedAt.Equal(words[j].CreatedAt) {
			return words[i].ID < words[j].ID
		}
		return words[i].CreatedAt.Before(words[j].CreatedAt)
	})
	return words, nil
}

// CreateCustomWord validates and stores a new word
func (s *MemoryStore) CreateCustomWord(ctx context.Context, in NewCustomWord) (*CustomWord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	w := &CustomWord{
		ID:                uuid.New().String(),
		UserID:            in.UserID,
		EnglishWord:       strings.TrimSpace(in.EnglishWord),
		BanglaTranslation: strings.TrimSpace(in.BanglaTranslation),
		Definition:        in.Definition,
		CreatedAt:         s.now(),
	}

	s.mu.Lock()
	s.words[w.ID] = w
	s.mu.Unlock()

	out := *w
	return &out, nil
}

// UpdateCustomWord applies the non-nil fields of patch
func (s *MemoryStore) UpdateCustomWord(ctx context.Context, id string, patch CustomWordPatch) (*CustomWord, error) {
	if patch.EnglishWord != nil && strings.TrimSpace(*patch.EnglishWord) == "" {
		return nil, fmt.Errorf("%w: englishWord cannot be empty", ErrInvalid)
	}
	if patch.BanglaTranslation != nil && strings.TrimSpace(*patch.BanglaTranslation) == "" {
		return nil, fmt.Errorf("%w: banglaTranslation cannot be empty", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.words[id]
	if !ok {
		return nil, fmt.Errorf("custom word %s: %w", id, ErrNotFound)
	}
	if patch.EnglishWord != nil {
		w.EnglishWord = strings.TrimSpace(*patch.EnglishWord)
	}
	if patch.BanglaTranslation != nil {
		w.BanglaTranslation = strings.TrimSpace(*patch.BanglaTranslation)
	}
	if patch.Definition != nil {
		w.Definition = *patch.Definition
	}

	out := *w
	return &out, nil
}

// DeleteCustomWord removes a word
func (s *MemoryStore) DeleteCustomWord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.words[id]; !ok {
		return fmt.Errorf("custom word %s: %w", id, ErrNotFound)
	}
	delete(s.words, id)
	return nil
}

// ListPackages returns the catalogue in seed order
func (s *MemoryStore) ListPackages(ctx context.Context) ([]Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Package, len(s.packages))
	for i, p := range s.packages {
		out[i] = clonePackage(p)
	}
	return out, nil
}

// UpdatePackage marks a package downloaded or removed. DownloadedAt is set
// the first time the package becomes downloaded and kept afterwards.
func (s *MemoryStore) UpdatePackage(ctx context.Context, id string, patch PackagePatch) (*Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.packages {
		if p.ID != id {
			continue
		}
		if patch.IsDownloaded != nil {
			p.IsDownloaded = *patch.IsDownloaded
			if p.IsDownloaded && p.DownloadedAt == nil {
				at := s.now()
				p.DownloadedAt = &at
			}
		}
		out := clonePackage(p)
		return &out, nil
	}
	return nil, fmt.Errorf("package %s: %w", id, ErrNotFound)
}

// User returns a user by id
func (s *MemoryStore) User(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	out := *u
	return &out, nil
}

// CreateUser stores a new user. Usernames are unique.
func (s *MemoryStore) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	u := &User{
		ID:              uuid.New().String(),
		Username:        strings.TrimSpace(in.Username),
		Theme:           in.Theme,
		CurrentLanguage: in.CurrentLanguage,
	}
	if u.Theme == "" {
		u.Theme = ThemeLight
	}
	if u.CurrentLanguage == "" {
		u.CurrentLanguage = LangEnglish
	}
	if err := validateProfile(u.Username, u.Theme, u.CurrentLanguage); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameTakenLocked(u.Username, "") {
		return nil, fmt.Errorf("username %q: %w", u.Username, ErrConflict)
	}
	s.users[u.ID] = u

	out := *u
	return &out, nil
}

// UpdateUser applies the non-nil fields of patch
func (s *MemoryStore) UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	next := *u
	if patch.Username != nil {
		next.Username = strings.TrimSpace(*patch.Username)
	}
	if patch.Theme != nil {
		next.Theme = *patch.Theme
	}
	if patch.CurrentLanguage != nil {
		next.CurrentLanguage = *patch.CurrentLanguage
	}
	if err := validateProfile(next.Username, next.Theme, next.CurrentLanguage); err != nil {
		return nil, err
	}
	if s.usernameTakenLocked(next.Username, id) {
		return nil, fmt.Errorf("username %q: %w", next.Username, ErrConflict)
	}
	*u = next

	out := next
	return &out, nil
}

func (s *MemoryStore) usernameTakenLocked(username, exceptID string) bool {
	for id, u := range s.users {
		if id != exceptID && strings.EqualFold(u.Username, username) {
			return true
		}
	}
	return false
}

func cloneEntry(e Entry) Entry {
	e.Synonyms = append([]string{}, e.Synonyms...)
	e.Antonyms = append([]string{}, e.Antonyms...)
	e.Examples = append([]Example{}, e.Examples...)
	return e
}

func clonePackage(p *Package) Package {
	out := *p
	if p.DownloadedAt != nil {
		at := *p.DownloadedAt
		out.DownloadedAt = &at
	}
	return out
}
