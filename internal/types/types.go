// Package types provides shared type definitions used across ledgerchat packages.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

// DocumentCategory tags an uploaded document with its accounting role.
type DocumentCategory string

const (
	CategoryIncomingInvoice   DocumentCategory = "incoming_invoice"
	CategoryOutgoingInvoice   DocumentCategory = "outgoing_invoice"
	CategoryBankStatement     DocumentCategory = "bank_statement"
	CategoryContract          DocumentCategory = "contract"
	CategoryFiscalDeclaration DocumentCategory = "fiscal_declaration"
	CategoryGeneral           DocumentCategory = "general"
)

// DocumentCategories lists every accepted category in display order.
var DocumentCategories = []DocumentCategory{
	CategoryIncomingInvoice,
	CategoryOutgoingInvoice,
	CategoryBankStatement,
	CategoryContract,
	CategoryFiscalDeclaration,
	CategoryGeneral,
}

// ParseDocumentCategory converts user input into a DocumentCategory.
// Empty input maps to CategoryGeneral.
func ParseDocumentCategory(s string) (DocumentCategory, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryGeneral, nil
	}
	for _, c := range DocumentCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown document category %q", s)
}

// Label returns the upper-cased tag used inside prompts.
func (c DocumentCategory) Label() string {
	return strings.ToUpper(string(c))
}

// LocalDocument is an uploaded file attached to the knowledge base.
// Documents are immutable once created.
type LocalDocument struct {
	ID        string           `json:"id"`
	CompanyID string           `json:"company_id,omitempty"`
	Name      string           `json:"name"`
	MIMEType  string           `json:"mime_type"`
	Data      string           `json:"data"` // base64
	Category  DocumentCategory `json:"category"`
	CreatedAt time.Time        `json:"created_at"`
}

// CompanyProfile describes a company the assistant can act as accountant for.
type CompanyProfile struct {
	ID                 string `json:"id"`
	LegalName          string `json:"legal_name" validate:"required"`
	TaxID              string `json:"tax_id" validate:"required"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	Activity           string `json:"activity,omitempty"`
	FoundingYear       int    `json:"founding_year,omitempty" validate:"omitempty,gte=1800,lte=2200"`
}

// URLGroup is a named, ordered list of reference URLs.
type URLGroup struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	URLs []string `json:"urls"`
}

// KnowledgeBaseContext is the read-only snapshot handed to every AI call.
type KnowledgeBaseContext struct {
	URLs          []string        `json:"urls"`
	Documents     []LocalDocument `json:"documents"`
	ActiveCompany *CompanyProfile `json:"active_company,omitempty"`
}

// =============================================================================
// CONVERSATION
// =============================================================================

// MessageSender identifies who authored a chat message.
type MessageSender string

const (
	SenderUser   MessageSender = "user"
	SenderModel  MessageSender = "model"
	SenderSystem MessageSender = "system"
)

// URLContextMetadata reports whether the provider fetched a URL while answering.
type URLContextMetadata struct {
	RetrievedURL string `json:"retrieved_url"`
	Status       string `json:"status"`
}

// ChatMessage is a single entry of the conversation log.
type ChatMessage struct {
	ID         string               `json:"id"`
	Sender     MessageSender        `json:"sender"`
	Text       string               `json:"text"`
	Timestamp  time.Time            `json:"timestamp"`
	IsLoading  bool                 `json:"is_loading,omitempty"`
	URLContext []URLContextMetadata `json:"url_context,omitempty"`
}

// =============================================================================
// MIND MAP
// =============================================================================

// MindMapNode is a node of the generated topic tree.
type MindMapNode struct {
	Label    string         `json:"label"`
	Detail   string         `json:"detail,omitempty"`
	Children []*MindMapNode `json:"children,omitempty"`
}

// Complexity shapes how deep and wide a generated mind map should be.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ParseComplexity validates a complexity level. Empty input maps to moderate.
func ParseComplexity(s string) (Complexity, error) {
	switch Complexity(strings.ToLower(strings.TrimSpace(s))) {
	case "", ComplexityModerate:
		return ComplexityModerate, nil
	case ComplexitySimple:
		return ComplexitySimple, nil
	case ComplexityComplex:
		return ComplexityComplex, nil
	default:
		return "", fmt.Errorf("unknown complexity %q (valid: simple, moderate, complex)", s)
	}
}
