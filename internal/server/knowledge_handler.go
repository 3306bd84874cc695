package server

import (
	"io"
	"time"

	"ledgerchat/internal/knowledge"
	"ledgerchat/internal/types"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

// documentView is a document without its payload.
type documentView struct {
	ID        string                 `json:"id"`
	CompanyID string                 `json:"company_id,omitempty"`
	Name      string                 `json:"name"`
	MIMEType  string                 `json:"mime_type"`
	Category  types.DocumentCategory `json:"category"`
	CreatedAt time.Time              `json:"created_at"`
}

func viewDocument(d types.LocalDocument) documentView {
	return documentView{
		ID:        d.ID,
		CompanyID: d.CompanyID,
		Name:      d.Name,
		MIMEType:  d.MIMEType,
		Category:  d.Category,
		CreatedAt: d.CreatedAt,
	}
}

type knowledgeResponse struct {
	URLs          []string               `json:"urls"`
	Documents     []documentView         `json:"documents"`
	ActiveCompany *types.CompanyProfile  `json:"active_company,omitempty"`
	ActiveGroup   string                 `json:"active_group"`
	Groups        []types.URLGroup       `json:"groups"`
	Companies     []types.CompanyProfile `json:"companies"`
	MultiCompany  bool                   `json:"multi_company"`
}

func (s *Server) handleKnowledge(c *fiber.Ctx) error {
	snap := s.store.Snapshot()

	docs := make([]documentView, 0, len(snap.Documents))
	for _, d := range snap.Documents {
		docs = append(docs, viewDocument(d))
	}

	return c.JSON(knowledgeResponse{
		URLs:          snap.URLs,
		Documents:     docs,
		ActiveCompany: snap.ActiveCompany,
		ActiveGroup:   s.store.ActiveGroup().ID,
		Groups:        s.store.Groups(),
		Companies:     s.store.Companies(),
		MultiCompany:  s.store.Options().MultiCompany,
	})
}

// =============================================================================
// URL GROUPS
// =============================================================================

type groupParams struct {
	Name string `json:"name" validate:"required"`
}

func (s *Server) handleCreateGroup(c *fiber.Ctx) error {
	var params groupParams
	if err := s.bind(c, &params); err != nil {
		return err
	}
	g, err := s.store.CreateGroup(params.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

func (s *Server) handleRenameGroup(c *fiber.Ctx) error {
	var params groupParams
	if err := s.bind(c, &params); err != nil {
		return err
	}
	if err := s.store.RenameGroup(c.Params("id"), params.Name); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleActivateGroup(c *fiber.Ctx) error {
	if err := s.store.ActivateGroup(c.Params("id")); err != nil {
		return err
	}
	return c.JSON(s.store.ActiveGroup())
}

func (s *Server) handleDeleteGroup(c *fiber.Ctx) error {
	if err := s.store.DeleteGroup(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// =============================================================================
// URLS
// =============================================================================

// urlParams skips tag validation; the store owns the URL rules.
type urlParams struct {
	URL string `json:"url"`
}

func (s *Server) handleAddURL(c *fiber.Ctx) error {
	var params urlParams
	if err := s.bind(c, &params); err != nil {
		return err
	}
	if err := s.store.AddURL(params.URL); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s.store.ActiveGroup())
}

func (s *Server) handleRemoveURL(c *fiber.Ctx) error {
	var params urlParams
	if err := s.bind(c, &params); err != nil {
		return err
	}
	if err := s.store.RemoveURL(params.URL); err != nil {
		return err
	}
	return c.JSON(s.store.ActiveGroup())
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (s *Server) handleUploadDocument(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(map[string]string{"file": "is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	// Read one byte past the ceiling so the store can reject oversized files.
	data, err := io.ReadAll(io.LimitReader(file, s.store.Options().MaxFileBytes+1))
	if err != nil {
		return err
	}

	doc, err := s.store.AddDocument(knowledge.UploadRequest{
		Name:      fileHeader.Filename,
		Data:      data,
		MIMEType:  fileHeader.Header.Get(fiber.HeaderContentType),
		Category:  c.FormValue("category"),
		CompanyID: c.FormValue("company_id"),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(viewDocument(doc))
}

func (s *Server) handleRemoveDocument(c *fiber.Ctx) error {
	if err := s.store.RemoveDocument(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// =============================================================================
// COMPANIES
// =============================================================================

func (s *Server) handleCreateCompany(c *fiber.Ctx) error {
	var p types.CompanyProfile
	if err := c.BodyParser(&p); err != nil {
		return ErrBadRequest()
	}
	p.ID = ""
	saved, err := s.store.SaveCompany(p)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (s *Server) handleUpdateCompany(c *fiber.Ctx) error {
	var p types.CompanyProfile
	if err := c.BodyParser(&p); err != nil {
		return ErrBadRequest()
	}
	p.ID = c.Params("id")
	saved, err := s.store.SaveCompany(p)
	if err != nil {
		return err
	}
	return c.JSON(saved)
}

func (s *Server) handleDeleteCompany(c *fiber.Ctx) error {
	if err := s.store.DeleteCompany(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleActivateCompany(c *fiber.Ctx) error {
	if err := s.store.ActivateCompany(c.Params("id")); err != nil {
		return err
	}
	return c.JSON(s.store.ActiveCompany())
}

func (s *Server) handleDeactivateCompany(c *fiber.Ctx) error {
	s.store.DeactivateCompany()
	return c.SendStatus(fiber.StatusNoContent)
}
