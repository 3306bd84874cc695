// Package prompt turns a knowledge-base snapshot and a query into a provider request.
// Assembly is a pure function of its input: the same snapshot always yields the same request.
package prompt

import (
	"encoding/base64"
	"fmt"
	"strings"

	"ledgerchat/internal/llm"
	"ledgerchat/internal/types"
)

// Input is everything the assembler needs for one call.
type Input struct {
	Query     string
	URLs      []string
	Documents []types.LocalDocument
	Company   *types.CompanyProfile
	Model     string

	// JSON asks the provider for a JSON response.
	JSON bool
}

// Assemble builds the request: one binary part per document in document order,
// followed by exactly one text part. The URL retrieval tool is declared iff URLs are present.
func Assemble(in Input) *llm.Request {
	parts := make([]llm.Part, 0, len(in.Documents)+1)
	for _, doc := range in.Documents {
		parts = append(parts, llm.BlobPart(doc.Name, doc.MIMEType, decodePayload(doc.Data)))
	}
	parts = append(parts, llm.TextPart(composeText(in.Query, in.URLs, in.Documents)))

	return &llm.Request{
		Model:             in.Model,
		SystemInstruction: Persona(in.Company),
		Parts:             parts,
		URLContext:        len(in.URLs) > 0,
		JSON:              in.JSON,
	}
}

// decodePayload returns the document bytes. A payload that is not valid base64
// is sent as its raw text so the document is never dropped.
func decodePayload(data string) []byte {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return []byte(data)
	}
	return decoded
}

func composeText(query string, urls []string, docs []types.LocalDocument) string {
	var sb strings.Builder
	sb.WriteString(query)

	if len(urls) > 0 {
		sb.WriteString("\n\nReference URLs:\n")
		sb.WriteString(strings.Join(urls, "\n"))
	}

	if len(docs) > 0 {
		sb.WriteString("\n\nAttached documents:")
		for _, doc := range docs {
			fmt.Fprintf(&sb, "\n- [%s] %s", doc.Category.Label(), doc.Name)
		}
	}

	return sb.String()
}

// Persona returns the system instruction. With a company it speaks as that
// company's accountant, otherwise as a generic accountant.
func Persona(company *types.CompanyProfile) string {
	if company == nil {
		return genericPersona
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the dedicated accountant and fiscal advisor of %s (tax ID %s).", company.LegalName, company.TaxID)
	if company.RegistrationNumber != "" {
		fmt.Fprintf(&sb, " Its trade register number is %s.", company.RegistrationNumber)
	}
	if company.Activity != "" {
		fmt.Fprintf(&sb, " Its main activity is %s.", company.Activity)
	}
	if company.FoundingYear > 0 {
		fmt.Fprintf(&sb, " It was founded in %d.", company.FoundingYear)
	}
	sb.WriteString(" " + personaRules)
	return sb.String()
}

const personaRules = "Answer using the attached documents and reference URLs first, " +
	"cite the source you relied on, and say plainly when the sources do not cover the question."

const genericPersona = "You are an experienced accountant and fiscal advisor. " + personaRules
