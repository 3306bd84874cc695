// Package knowledge holds the in-memory knowledge base: URL groups, uploaded documents
// and company profiles. Every AI call reads an immutable Snapshot of it.
package knowledge

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"ledgerchat/internal/config"
	"ledgerchat/internal/logging"
	"ledgerchat/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultGroupName names the group that exists at start.
const DefaultGroupName = "Default"

// Options bounds the store.
type Options struct {
	MaxURLs      int
	MaxFileBytes int64

	// MultiCompany scopes visible documents to the active company.
	MultiCompany bool
}

// OptionsFromConfig converts the knowledge config section.
func OptionsFromConfig(cfg config.KnowledgeConfig) Options {
	return Options{
		MaxURLs:      cfg.MaxURLs,
		MaxFileBytes: cfg.MaxFileBytes,
		MultiCompany: cfg.MultiCompany,
	}
}

// Store is the thread-safe knowledge base.
type Store struct {
	mu       sync.RWMutex
	opts     Options
	validate *validator.Validate

	groups      []*types.URLGroup
	activeGroup string

	companies     []*types.CompanyProfile
	activeCompany string

	documents []types.LocalDocument

	now   func() time.Time
	newID func() string
}

// NewStore creates a store holding one empty default group.
func NewStore(opts Options) *Store {
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = 20
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 10 * 1024 * 1024
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Store{
		opts:     opts,
		validate: validate,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	def := &types.URLGroup{ID: s.newID(), Name: DefaultGroupName, URLs: []string{}}
	s.groups = []*types.URLGroup{def}
	s.activeGroup = def.ID
	return s
}

// Options returns the limits the store enforces.
func (s *Store) Options() Options {
	return s.opts
}

// Snapshot returns the read-only context for one AI call: the active group's URLs,
// the documents visible under the company filter and the active company.
func (s *Store) Snapshot() types.KnowledgeBaseContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := types.KnowledgeBaseContext{
		URLs:      append([]string{}, s.activeGroupLocked().URLs...),
		Documents: s.visibleDocumentsLocked(),
	}
	if c := s.companyLocked(s.activeCompany); c != nil {
		cp := *c
		snap.ActiveCompany = &cp
	}
	return snap
}

// visibleDocumentsLocked applies the company filter. In multi-company mode only documents
// owned by the active company are visible; with no active company only unowned ones are.
func (s *Store) visibleDocumentsLocked() []types.LocalDocument {
	out := make([]types.LocalDocument, 0, len(s.documents))
	for _, d := range s.documents {
		if s.opts.MultiCompany && d.CompanyID != s.activeCompany {
			continue
		}
		out = append(out, d)
	}
	return out
}

// =============================================================================
// URL GROUPS
// =============================================================================

// Groups returns copies of all groups in creation order.
func (s *Store) Groups() []types.URLGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.URLGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, copyGroup(g))
	}
	return out
}

// ActiveGroup returns a copy of the active group.
func (s *Store) ActiveGroup() types.URLGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyGroup(s.activeGroupLocked())
}

// CreateGroup adds an empty group. It does not change the active group.
func (s *Store) CreateGroup(name string) (types.URLGroup, error) {
	name = strings.TrimSpace(name)
	if err := s.validateGroupName(name); err != nil {
		return types.URLGroup{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := &types.URLGroup{ID: s.newID(), Name: name, URLs: []string{}}
	s.groups = append(s.groups, g)
	logging.Knowledge("created url group %q (%s)", name, g.ID)
	return copyGroup(g), nil
}

// RenameGroup changes a group's name.
func (s *Store) RenameGroup(id, name string) error {
	name = strings.TrimSpace(name)
	if err := s.validateGroupName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.groupLocked(id)
	if g == nil {
		return ErrNotFound
	}
	g.Name = name
	return nil
}

// DeleteGroup removes a group. The last group cannot be deleted; deleting the
// active group activates the first remaining one.
func (s *Store) DeleteGroup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, g := range s.groups {
		if g.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	if len(s.groups) == 1 {
		return ErrLastGroup
	}

	s.groups = append(s.groups[:idx], s.groups[idx+1:]...)
	if s.activeGroup == id {
		s.activeGroup = s.groups[0].ID
	}
	logging.Knowledge("deleted url group %s", id)
	return nil
}

// ActivateGroup makes a group the source of snapshot URLs.
func (s *Store) ActivateGroup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.groupLocked(id) == nil {
		return ErrNotFound
	}
	s.activeGroup = id
	return nil
}

// AddURL appends a URL to the active group. The URL must be non-empty, carry an explicit
// http:// or https:// scheme, be unique in the group and fit under the limit.
func (s *Store) AddURL(raw string) error {
	u := strings.TrimSpace(raw)
	if u == "" {
		return invalid("url", "must not be empty", nil)
	}
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return invalid("url", "must start with http:// or https://", nil)
	}
	if err := s.validate.Var(u, "url"); err != nil {
		return invalid("url", "is not a valid URL", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.activeGroupLocked()
	for _, existing := range g.URLs {
		if existing == u {
			return invalid("url", "is already in this group", ErrDuplicateURL)
		}
	}
	if len(g.URLs) >= s.opts.MaxURLs {
		return invalid("url", "a group holds at most "+strconv.Itoa(s.opts.MaxURLs)+" URLs", ErrTooManyURLs)
	}

	g.URLs = append(g.URLs, u)
	logging.KnowledgeDebug("added url %s to group %s (%d/%d)", u, g.ID, len(g.URLs), s.opts.MaxURLs)
	return nil
}

// RemoveURL removes a URL from the active group.
func (s *Store) RemoveURL(raw string) error {
	u := strings.TrimSpace(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.activeGroupLocked()
	for i, existing := range g.URLs {
		if existing == u {
			g.URLs = append(g.URLs[:i], g.URLs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) validateGroupName(name string) error {
	if err := s.validate.Var(name, "required,max=80"); err != nil {
		return invalid("name", "must be between 1 and 80 characters", nil)
	}
	return nil
}

func (s *Store) activeGroupLocked() *types.URLGroup {
	if g := s.groupLocked(s.activeGroup); g != nil {
		return g
	}
	return s.groups[0]
}

func (s *Store) groupLocked(id string) *types.URLGroup {
	for _, g := range s.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func copyGroup(g *types.URLGroup) types.URLGroup {
	return types.URLGroup{ID: g.ID, Name: g.Name, URLs: append([]string{}, g.URLs...)}
}
