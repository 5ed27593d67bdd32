package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"appcatalog/cmd/catalog/ui"
	"appcatalog/internal/api"
	"appcatalog/internal/pagination"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// RESOURCE COMMANDS
// =============================================================================

var (
	listPage     int
	listPageSize int
	listFilters  []string
	outputFormat string
	itemFile     string
)

// resourceCmd manages catalog resources
var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "List, show and edit catalog resources",
	Long: `Generic access to the catalog's REST collections.

Kinds:
  ` + strings.Join(api.Kinds(), ", "),
}

var resourceListCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List resources of a kind",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceList,
}

var resourceGetCmd = &cobra.Command{
	Use:   "get <kind> <id>",
	Short: "Show one resource",
	Args:  cobra.ExactArgs(2),
	RunE:  runResourceGet,
}

var resourceCreateCmd = &cobra.Command{
	Use:   "create <kind>",
	Short: "Create a resource from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceCreate,
}

var resourceUpdateCmd = &cobra.Command{
	Use:   "update <kind> <id>",
	Short: "Replace a resource from a YAML or JSON file",
	Args:  cobra.ExactArgs(2),
	RunE:  runResourceUpdate,
}

var resourceDeleteCmd = &cobra.Command{
	Use:   "delete <kind> <id>",
	Short: "Delete a resource",
	Args:  cobra.ExactArgs(2),
	RunE:  runResourceDelete,
}

func init() {
	resourceListCmd.Flags().IntVar(&listPage, "page", 1, "Page to show")
	resourceListCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Rows per page (default: ui.page_size)")
	resourceListCmd.Flags().StringSliceVarP(&listFilters, "filter", "f", nil, "Query filter key=value (repeatable)")

	for _, c := range []*cobra.Command{resourceGetCmd, resourceCreateCmd, resourceUpdateCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "yaml", "Output format: yaml or json")
	}
	for _, c := range []*cobra.Command{resourceCreateCmd, resourceUpdateCmd} {
		c.Flags().StringVar(&itemFile, "file", "", "Resource file, - for stdin (required)")
		c.MarkFlagRequired("file")
	}

	resourceCmd.AddCommand(resourceListCmd)
	resourceCmd.AddCommand(resourceGetCmd)
	resourceCmd.AddCommand(resourceCreateCmd)
	resourceCmd.AddCommand(resourceUpdateCmd)
	resourceCmd.AddCommand(resourceDeleteCmd)
}

type item = map[string]interface{}

func genericResource(kind string) (*api.Resource[item], error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	return client.Generic(kind)
}

// parseFilters turns key=value flags into query parameters.
func parseFilters(filters []string) (url.Values, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, f := range filters {
		k, v, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid filter %q (want key=value)", f)
		}
		q.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return q, nil
}

// field returns the first non-empty string value among keys.
func field(it item, keys ...string) string {
	for _, k := range keys {
		if v, ok := it[k]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func runResourceList(cmd *cobra.Command, args []string) error {
	res, err := genericResource(args[0])
	if err != nil {
		return err
	}
	query, err := parseFilters(listFilters)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	items, err := res.List(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", args[0], err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return field(items[i], "id") < field(items[j], "id")
	})

	size := listPageSize
	if size < 1 {
		size = cfg.GetPageSize()
	}
	page := pagination.Paginate(items, size, listPage)

	table := ui.NewSimpleTable(fmt.Sprintf("%s (%d)", args[0], page.TotalItems), []string{"ID", "Name", "Details"})
	for _, it := range page.Items {
		table.AddRow(field(it, "id"), field(it, "name", "title", "key", "projectKey"), summarize(it))
	}
	table.Footer = ui.PageFooter(page)
	fmt.Fprint(cmd.OutOrStdout(), table.View(ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))))
	return nil
}

// summarize lists the remaining scalar fields as key=value pairs.
func summarize(it item) string {
	keys := make([]string, 0, len(it))
	for k := range it {
		switch k {
		case "id", "name", "title":
			continue
		}
		switch it[k].(type) {
		case string, float64, bool:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, it[k]))
	}
	s := strings.Join(parts, " ")
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

func runResourceGet(cmd *cobra.Command, args []string) error {
	res, err := genericResource(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	it, err := res.Get(ctx, args[1])
	if err != nil {
		if api.IsNotFound(err) {
			return fmt.Errorf("%s %q not found", args[0], args[1])
		}
		return fmt.Errorf("failed to get %s: %w", args[0], err)
	}
	return writeItem(cmd.OutOrStdout(), *it)
}

func runResourceCreate(cmd *cobra.Command, args []string) error {
	res, err := genericResource(args[0])
	if err != nil {
		return err
	}
	body, err := readItem(cmd.InOrStdin(), itemFile)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	created, err := res.Create(ctx, body)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	logger.Debug("Created resource", zap.String("kind", args[0]), zap.String("id", field(*created, "id")))
	return writeItem(cmd.OutOrStdout(), *created)
}

func runResourceUpdate(cmd *cobra.Command, args []string) error {
	res, err := genericResource(args[0])
	if err != nil {
		return err
	}
	body, err := readItem(cmd.InOrStdin(), itemFile)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	updated, err := res.Update(ctx, args[1], body)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", args[0], err)
	}
	return writeItem(cmd.OutOrStdout(), *updated)
}

func runResourceDelete(cmd *cobra.Command, args []string) error {
	res, err := genericResource(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := res.Delete(ctx, args[1]); err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", args[0], args[1])
	return nil
}

// readItem decodes a resource from path ("-" reads stdin). YAML is a superset
// of JSON so both formats are accepted.
func readItem(stdin io.Reader, path string) (item, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var it item
	if err := yaml.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(it) == 0 {
		return nil, fmt.Errorf("%s: empty resource", path)
	}
	return it, nil
}

func writeItem(w io.Writer, it item) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(it)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(it); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (valid: yaml, json)", outputFormat)
	}
}
