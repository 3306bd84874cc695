package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ledgerchat/internal/assistant"
	"ledgerchat/internal/knowledge"
	"ledgerchat/internal/mindmap"
	"ledgerchat/internal/types"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Knowledge flags shared by the one-shot commands
var (
	urlFlags    []string
	docFlags    []string
	docCategory string
	modelFlag   string
	complexity  string
	companyName string
	companyTax  string
)

// askCmd answers one question
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question against the given URLs and documents",
	Long: `Sends a single question with the given reference URLs and local documents
and renders the answer as markdown.

Example:
  ledgerchat ask "Which VAT rate applies?" --url https://example.com/vat --doc invoice.pdf --category incoming_invoice`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// suggestCmd proposes follow-up questions
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest questions about the given URLs",
	Args:  cobra.NoArgs,
	RunE:  runSuggest,
}

// mindmapCmd prints a topic tree of the sources
var mindmapCmd = &cobra.Command{
	Use:   "mindmap",
	Short: "Generate a mind map of the given URLs and documents",
	Args:  cobra.NoArgs,
	RunE:  runMindMap,
}

func init() {
	for _, c := range []*cobra.Command{askCmd, suggestCmd, mindmapCmd} {
		c.Flags().StringArrayVar(&urlFlags, "url", nil, "Reference URL (repeatable)")
		c.Flags().StringVar(&modelFlag, "model", "", "Model to use instead of the configured one")
	}
	for _, c := range []*cobra.Command{askCmd, mindmapCmd} {
		c.Flags().StringArrayVar(&docFlags, "doc", nil, "Local document to attach (repeatable)")
		c.Flags().StringVar(&docCategory, "category", "", "Category of the attached documents")
		c.Flags().StringVar(&companyName, "company", "", "Legal name of the company to answer for")
		c.Flags().StringVar(&companyTax, "tax-id", "", "Tax id of the company")
	}
	mindmapCmd.Flags().StringVar(&complexity, "complexity", "moderate", "simple, moderate or complex")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := populate(cmd.Context(), store); err != nil {
		return err
	}

	msg, err := service.Chat(cmd.Context(), assistant.ChatRequest{
		Query:   strings.Join(args, " "),
		Model:   modelFlag,
		Context: store.Snapshot(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, msg.Text)
		return err
	}

	fmt.Print(renderMarkdown(msg.Text))
	if len(msg.URLContext) > 0 {
		fmt.Println(renderRetrieval(msg.URLContext))
	}
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if err := populate(cmd.Context(), store); err != nil {
		return err
	}

	for i, s := range service.Suggestions(cmd.Context(), store.Snapshot().URLs, modelFlag) {
		fmt.Printf("%d. %s\n", i+1, s)
	}
	return nil
}

func runMindMap(cmd *cobra.Command, args []string) error {
	if err := populate(cmd.Context(), store); err != nil {
		return err
	}

	root, err := service.MindMap(cmd.Context(), assistant.MindMapRequest{
		Complexity: complexity,
		Model:      modelFlag,
		Context:    store.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", assistant.FailureMessage(err), err)
	}

	st := mindmap.Summarize(root)
	fmt.Println(renderTree(root))
	fmt.Printf("\n%d topics, depth %d, %d leaves\n", st.Nodes, st.Depth, st.Leaves)
	return nil
}

// populate loads the flag-provided URLs, company and documents into s.
func populate(ctx context.Context, s *knowledge.Store) error {
	for _, u := range urlFlags {
		if err := s.AddURL(u); err != nil {
			return fmt.Errorf("--url %s: %w", u, err)
		}
	}

	if companyName != "" || companyTax != "" {
		p, err := s.SaveCompany(types.CompanyProfile{LegalName: companyName, TaxID: companyTax})
		if err != nil {
			return fmt.Errorf("company: %w", err)
		}
		if err := s.ActivateCompany(p.ID); err != nil {
			return err
		}
	}

	uploads, err := readDocuments(ctx, docFlags, docCategory)
	if err != nil {
		return err
	}
	for _, u := range uploads {
		if _, err := s.AddDocument(u); err != nil {
			return fmt.Errorf("--doc %s: %w", u.Name, err)
		}
	}
	return nil
}

// readDocuments reads paths concurrently, keeping their order.
func readDocuments(ctx context.Context, paths []string, category string) ([]knowledge.UploadRequest, error) {
	uploads := make([]knowledge.UploadRequest, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			uploads[i] = knowledge.UploadRequest{
				Name:     filepath.Base(path),
				Data:     data,
				Category: category,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uploads, nil
}
