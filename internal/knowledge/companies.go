package knowledge

import (
	"strings"

	"ledgerchat/internal/logging"
	"ledgerchat/internal/types"
)

// SaveCompany creates a profile when ID is empty, otherwise replaces the existing one.
func (s *Store) SaveCompany(p types.CompanyProfile) (types.CompanyProfile, error) {
	p.LegalName = strings.TrimSpace(p.LegalName)
	p.TaxID = strings.TrimSpace(p.TaxID)
	p.RegistrationNumber = strings.TrimSpace(p.RegistrationNumber)
	p.Activity = strings.TrimSpace(p.Activity)

	if err := s.validate.Struct(p); err != nil {
		return types.CompanyProfile{}, fromValidator(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.newID()
		cp := p
		s.companies = append(s.companies, &cp)
		logging.Knowledge("created company %q (%s)", p.LegalName, p.ID)
		return p, nil
	}

	existing := s.companyLocked(p.ID)
	if existing == nil {
		return types.CompanyProfile{}, ErrNotFound
	}
	*existing = p
	logging.Knowledge("updated company %q (%s)", p.LegalName, p.ID)
	return p, nil
}

// Companies returns copies of all profiles in creation order.
func (s *Store) Companies() []types.CompanyProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.CompanyProfile, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, *c)
	}
	return out
}

// Company returns one profile.
func (s *Store) Company(id string) (types.CompanyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.companyLocked(id)
	if c == nil {
		return types.CompanyProfile{}, ErrNotFound
	}
	return *c, nil
}

// DeleteCompany removes a profile. Its documents are kept and stay owned by the
// removed id, so in multi-company mode they are no longer visible to any company.
func (s *Store) DeleteCompany(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.companies {
		if c.ID != id {
			continue
		}
		s.companies = append(s.companies[:i], s.companies[i+1:]...)
		if s.activeCompany == id {
			s.activeCompany = ""
		}
		logging.Knowledge("deleted company %s", id)
		return nil
	}
	return ErrNotFound
}

// ActivateCompany makes a profile the active one. At most one is active.
func (s *Store) ActivateCompany(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.companyLocked(id) == nil {
		return ErrNotFound
	}
	s.activeCompany = id
	return nil
}

// DeactivateCompany clears the active profile.
func (s *Store) DeactivateCompany() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCompany = ""
}

// ActiveCompany returns a copy of the active profile, or nil.
func (s *Store) ActiveCompany() *types.CompanyProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.companyLocked(s.activeCompany)
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (s *Store) companyLocked(id string) *types.CompanyProfile {
	if id == "" {
		return nil
	}
	for _, c := range s.companies {
		if c.ID == id {
			return c
		}
	}
	return nil
}
