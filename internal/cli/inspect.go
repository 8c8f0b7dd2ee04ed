package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bookcaseapp/bookcase-server/internal/store"
)

func newInspectCmd(e *env) *cobra.Command {
	var (
		where  []string
		output string
	)

	cmd := &cobra.Command{
		Use:   "inspect <collection>",
		Short: "Dump the documents of a collection",
		Long: `Dump the documents of a collection as stored.

--where takes field=value and may be repeated; values that parse as JSON
(numbers, booleans, quoted strings) are compared as JSON, anything else as a
plain string.`,
		Example: `  bookcasectl inspect bookCases --where userId=u1
  bookcasectl inspect users --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preds, err := parseWhere(where)
			if err != nil {
				return err
			}
			if err := e.openStore(); err != nil {
				return err
			}
			docs, err := e.docs.Query(cmd.Context(), args[0], preds...)
			if err != nil {
				return err
			}
			return writeDocuments(cmd.OutOrStdout(), output, docs)
		},
	}
	cmd.Flags().StringArrayVar(&where, "where", nil, "Filter as field=value (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json, yaml)")
	return cmd
}

func parseWhere(clauses []string) ([]store.Predicate, error) {
	preds := make([]store.Predicate, 0, len(clauses))
	for _, clause := range clauses {
		field, raw, ok := strings.Cut(clause, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --where %q: want field=value", clause)
		}
		var value any = raw
		if json.Valid([]byte(raw)) {
			_ = json.Unmarshal([]byte(raw), &value)
		}
		preds = append(preds, store.Eq(field, value))
	}
	return preds, nil
}

// inspected is the printable form of a document. Fields are decoded so YAML
// output shows structure instead of raw JSON bytes.
type inspected struct {
	ID        string         `json:"id"                yaml:"id"`
	Revision  int64          `json:"revision"          yaml:"revision"`
	CreatedAt string         `json:"createdAt"         yaml:"createdAt"`
	UpdatedAt string         `json:"updatedAt"         yaml:"updatedAt"`
	Fields    map[string]any `json:"fields,omitempty"  yaml:"fields,omitempty"`
}

func writeDocuments(w io.Writer, format string, docs []*store.Document) error {
	out := make([]inspected, 0, len(docs))
	for _, doc := range docs {
		fields := make(map[string]any, len(doc.Fields))
		for name, raw := range doc.Fields {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("document %s field %s: %w", doc.ID, name, err)
			}
			fields[name] = v
		}
		out = append(out, inspected{
			ID:        doc.ID,
			Revision:  doc.Revision,
			CreatedAt: doc.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
			UpdatedAt: doc.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
			Fields:    fields,
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
