package knowledge

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"ledgerchat/internal/logging"
	"ledgerchat/internal/types"

	"github.com/gabriel-vasile/mimetype"
)

// UploadRequest is one file crossing the upload boundary.
type UploadRequest struct {
	Name      string
	Data      []byte
	MIMEType  string // detected from content when empty or generic
	Category  string // empty means general
	CompanyID string // empty means the active company in multi-company mode
}

// AddDocument validates and stores an upload. Files above the size ceiling are
// rejected before anything is encoded.
func (s *Store) AddDocument(req UploadRequest) (types.LocalDocument, error) {
	name := filepath.Base(strings.TrimSpace(req.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return types.LocalDocument{}, invalid("name", "must not be empty", nil)
	}
	if int64(len(req.Data)) > s.opts.MaxFileBytes {
		return types.LocalDocument{}, invalid("file",
			fmt.Sprintf("%s exceeds the %s limit", name, formatBytes(s.opts.MaxFileBytes)), ErrFileTooLarge)
	}
	if len(req.Data) == 0 {
		return types.LocalDocument{}, invalid("file", "must not be empty", nil)
	}

	category, err := types.ParseDocumentCategory(req.Category)
	if err != nil {
		return types.LocalDocument{}, invalid("category", err.Error(), nil)
	}

	mimeType := normalizeMIME(req.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMIME(mimetype.Detect(req.Data).String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner := strings.TrimSpace(req.CompanyID)
	if owner != "" {
		if s.companyLocked(owner) == nil {
			return types.LocalDocument{}, invalid("company_id", "unknown company", ErrNotFound)
		}
	} else if s.opts.MultiCompany {
		owner = s.activeCompany
	}

	doc := types.LocalDocument{
		ID:        s.newID(),
		CompanyID: owner,
		Name:      name,
		MIMEType:  mimeType,
		Data:      base64.StdEncoding.EncodeToString(req.Data),
		Category:  category,
		CreatedAt: s.now(),
	}
	s.documents = append(s.documents, doc)

	logging.Knowledge("added document %q (%s, %s, %d bytes) company=%q", name, mimeType, category, len(req.Data), owner)
	return doc, nil
}

// RemoveDocument deletes a document by id.
func (s *Store) RemoveDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.documents {
		if d.ID == id {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			logging.Knowledge("removed document %s", id)
			return nil
		}
	}
	return ErrNotFound
}

// Documents returns every stored document regardless of the company filter.
func (s *Store) Documents() []types.LocalDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.LocalDocument{}, s.documents...)
}

func normalizeMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}

func formatBytes(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%d MiB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
