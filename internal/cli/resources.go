package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/panel"
)

// resourceSpec describes one resource's command group. The generic
// list/get/create/edit/delete commands are built from it.
type resourceSpec[T blog.Record] struct {
	resource blog.Resource
	singular string
	short    string
	example  string

	payload func() blog.Payload
	// form turns a fetched record back into editable payload fields.
	form func(T) map[string]any
	// editing adjusts the payload of an edit once it was decoded.
	editing func(current T, p blog.Payload)

	columns []string
	row     func(T) []string

	listFlags func(*cobra.Command)
	// narrow reads the extra list flags into the list options.
	narrow func(ctx context.Context, cmd *cobra.Command, client *apiclient.Client, opts *panel.ListOptions[T]) error
}

func newResourceCmd[T blog.Record](a *app, spec resourceSpec[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.resource.Name,
		Short: spec.short,
		Long:  spec.short + "\n\nExamples:\n" + spec.example,
	}
	cmd.AddCommand(
		newListCmd(a, spec),
		newGetCmd(a, spec),
		newCreateCmd(a, spec),
		newEditCmd(a, spec),
		newDeleteCmd(a, spec),
	)
	return cmd
}

func newListCmd[T blog.Record](a *app, spec resourceSpec[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + spec.resource.Name,
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.authed(ctx)
			if err != nil {
				return err
			}
			opts, err := listOptions[T](a, cmd)
			if err != nil {
				return err
			}
			if spec.narrow != nil {
				if err := spec.narrow(ctx, cmd, client, &opts); err != nil {
					return err
				}
			}

			ctrl := panel.NewController[T](client, spec.resource, a.panelOptions())
			res, err := ctrl.List(ctx, opts)
			if err != nil {
				return err
			}
			return printPage(a, res.Page, spec)
		}),
	}
	f := cmd.Flags()
	f.StringP("search", "s", "", "case-insensitive search; #<id> matches references")
	f.StringToString("filter", nil, "exact field filters, e.g. --filter status=draft")
	f.StringToString("param", nil, "query parameters sent to the API")
	f.String("order", "", "ordering: field or -field (one of "+strings.Join(spec.resource.Ordering, ", ")+")")
	f.Int("page", 1, "page number")
	f.Int("page-size", 0, "items per page (default panel.pagesize)")
	if spec.listFlags != nil {
		spec.listFlags(cmd)
	}
	return cmd
}

func listOptions[T blog.Record](a *app, cmd *cobra.Command) (panel.ListOptions[T], error) {
	f := cmd.Flags()
	search, _ := f.GetString("search")
	equals, _ := f.GetStringToString("filter")
	params, _ := f.GetStringToString("param")
	order, _ := f.GetString("order")
	page, _ := f.GetInt("page")
	size, _ := f.GetInt("page-size")
	if size <= 0 {
		size = a.cfg.Panel.PageSize
	}

	query := make(map[string][]string, len(params))
	for k, v := range params {
		query[k] = []string{v}
	}
	return panel.ListOptions[T]{
		Params:   query,
		Filter:   panel.Filter[T]{Query: search, Equals: equals},
		Ordering: order,
		Page:     page,
		PageSize: size,
	}, nil
}

func newGetCmd[T blog.Record](a *app, spec resourceSpec[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "get <" + spec.resource.Identity + ">",
		Short: "Show one " + spec.singular,
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.authed(ctx)
			if err != nil {
				return err
			}
			rec, err := panel.NewController[T](client, spec.resource, a.panelOptions()).Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printRecord(a, rec, spec)
		}),
	}
}

func newCreateCmd[T blog.Record](a *app, spec resourceSpec[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a " + spec.singular,
		Long: `Create a ` + spec.singular + ` from a YAML or JSON file and/or --set
key=value pairs. Values given with --set are parsed as YAML scalars, so
numbers, booleans and [1, 2] lists keep their types.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			input, err := readInput(cmd, a.in)
			if err != nil {
				return err
			}
			payload := spec.payload()
			if err := decodePayload(input, payload); err != nil {
				return err
			}

			client, err := a.authed(ctx)
			if err != nil {
				return err
			}
			rec, err := panel.NewController[T](client, spec.resource, a.panelOptions()).Create(ctx, payload)
			if err != nil {
				return err
			}
			if ok, err := a.printStructured(rec.Fields()); ok {
				return err
			}
			a.printSuccess("Created %s %s", spec.singular, a.bold(recordLabel(rec)))
			return nil
		}),
	}
	addInputFlags(cmd)
	return cmd
}

func newEditCmd[T blog.Record](a *app, spec resourceSpec[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <" + spec.resource.Identity + ">",
		Short: "Edit a " + spec.singular,
		Long: `Edit a ` + spec.singular + `. The current values are fetched first and the
given fields are laid over them. Identity fields cannot be changed.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			input, err := readInput(cmd, a.in)
			if err != nil {
				return err
			}
			if len(input) == 0 {
				return fmt.Errorf("nothing to change: pass --file or --set")
			}

			client, err := a.authed(ctx)
			if err != nil {
				return err
			}
			ctrl := panel.NewController[T](client, spec.resource, a.panelOptions())
			current, err := ctrl.Get(ctx, args[0])
			if err != nil {
				return err
			}

			fields := spec.form(current)
			for k, v := range input {
				fields[k] = v
			}
			payload := spec.payload()
			if err := decodePayload(fields, payload); err != nil {
				return err
			}
			if spec.editing != nil {
				spec.editing(current, payload)
			}

			rec, err := ctrl.Update(ctx, args[0], payload)
			if err != nil {
				return err
			}
			if ok, err := a.printStructured(rec.Fields()); ok {
				return err
			}
			a.printSuccess("Saved %s %s", spec.singular, a.bold(recordLabel(rec)))
			return nil
		}),
	}
	addInputFlags(cmd)
	return cmd
}

func newDeleteCmd[T blog.Record](a *app, spec resourceSpec[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <" + spec.resource.Identity + ">",
		Short: "Delete a " + spec.singular,
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.authed(ctx)
			if err != nil {
				return err
			}
			done, err := panel.NewController[T](client, spec.resource, a.panelOptions()).Delete(ctx, args[0], a.confirmer(cmd))
			if err != nil {
				return err
			}
			if !done {
				fmt.Fprintln(a.out, "Cancelled")
				return nil
			}
			a.printSuccess("Deleted %s %s", spec.singular, args[0])
			return nil
		}),
	}
	cmd.Flags().BoolP("force", "f", false, "skip confirmation prompt")
	return cmd
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "F", "", "YAML or JSON file with the fields ('-' reads stdin)")
	cmd.Flags().StringArray("set", nil, "field=value, repeatable")
}

// readInput merges the --file document with --set pairs, the latter winning.
func readInput(cmd *cobra.Command, stdin io.Reader) (map[string]any, error) {
	fields := map[string]any{}

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}

	pairs, _ := cmd.Flags().GetStringArray("set")
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: want field=value", pair)
		}
		fields[key] = parseValue(raw)
	}
	return fields, nil
}

// parseValue reads a --set value as a YAML scalar or flow list. Text that is
// not valid YAML stays a string.
func parseValue(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case map[string]any:
		return raw
	}
	return v
}

func decodePayload(fields map[string]any, payload blog.Payload) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("input does not fit the form: %w", err)
	}
	return nil
}

type pageOutput struct {
	Page       int              `json:"page" yaml:"page"`
	PageSize   int              `json:"page_size" yaml:"page_size"`
	Total      int              `json:"total" yaml:"total"`
	TotalPages int              `json:"total_pages" yaml:"total_pages"`
	Results    []map[string]any `json:"results" yaml:"results"`
}

func printPage[T blog.Record](a *app, page panel.Page[T], spec resourceSpec[T]) error {
	if a.structured() {
		results := make([]map[string]any, 0, len(page.Items))
		for _, item := range page.Items {
			results = append(results, item.Fields())
		}
		_, err := a.printStructured(pageOutput{
			Page:       page.Number,
			PageSize:   page.PageSize,
			Total:      page.Total,
			TotalPages: page.TotalPages,
			Results:    results,
		})
		return err
	}

	if page.Total == 0 {
		fmt.Fprintf(a.out, "No %s found\n", spec.resource.Name)
		return nil
	}
	w := a.newTable()
	a.printTableHeader(w, spec.columns...)
	for _, item := range page.Items {
		printRow(w, spec.row(item)...)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n%d-%d of %d  page %s\n", page.Start+1, page.End, page.Total, pageWindow(page))
	return nil
}

func pageWindow[T any](page panel.Page[T]) string {
	parts := make([]string, 0, len(page.Window)+2)
	if page.HasPrev() {
		parts = append(parts, "‹")
	}
	for _, n := range page.Window {
		if n == page.Number {
			parts = append(parts, fmt.Sprintf("[%d]", n))
			continue
		}
		parts = append(parts, fmt.Sprint(n))
	}
	if page.HasNext() {
		parts = append(parts, "›")
	}
	return strings.Join(parts, " ")
}

func printRecord[T blog.Record](a *app, rec T, spec resourceSpec[T]) error {
	if ok, err := a.printStructured(rec.Fields()); ok {
		return err
	}
	return a.printFields(rec.Fields(), append([]string{"id", spec.resource.Identity}, fieldNames(spec.columns)...))
}

func fieldNames(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, strings.ToLower(strings.ReplaceAll(c, " ", "_")))
	}
	return out
}

func recordLabel(rec blog.Record) string {
	if key := rec.Key(); key != "" && key != "0" {
		return key
	}
	return "(new)"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func refOrNil(v any) any {
	if id, ok := blog.RefID(v); ok {
		return id
	}
	return nil
}

func idOrDash(id int) string {
	if id <= 0 {
		return "-"
	}
	return fmt.Sprintf("#%d", id)
}
