package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// ModuleInfo is the JSON form of a module definition.
type ModuleInfo struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Paging   string   `json:"paging"`
	PageSize int      `json:"pageSize"`
	Columns  []string `json:"columns"`
	Sortable []string `json:"sortable"`
}

// RowOutput is the JSON form of a table row.
type RowOutput struct {
	ID    string            `json:"id"`
	Title string            `json:"title"`
	Cells map[string]string `json:"cells"`
}

// ListOutput is the JSON form of a listing.
type ListOutput struct {
	Module     string      `json:"module"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
	TotalItems int         `json:"totalItems"`
	Rows       []RowOutput `json:"rows"`
}

// DetailOutput is the JSON form of a record.
type DetailOutput struct {
	Module string            `json:"module"`
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Fields map[string]string `json:"fields"`
}

// NewModulesCommand lists the registered modules.
func NewModulesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List CRM modules with their paging and columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := *rootOpts
			if opts.APIURL == "" {
				// Definitions are static; no request is sent.
				opts.APIURL = "http://crm.invalid/api"
			}
			reg, err := opts.registry()
			if err != nil {
				return err
			}
			var infos []ModuleInfo
			for _, m := range reg.Modules() {
				infos = append(infos, moduleInfo(m.Definition()))
			}
			return rootOpts.formatter(cmd).Success(infos, func(w io.Writer) error {
				rows := make([][]string, 0, len(infos))
				for _, info := range infos {
					rows = append(rows, []string{info.Key, info.Label, info.Paging, strconv.Itoa(info.PageSize), strings.Join(info.Sortable, ",")})
				}
				return table(w, []string{"KEY", "LABEL", "PAGING", "PAGE SIZE", "SORTABLE"}, rows)
			})
		},
	}
}

type listOptions struct {
	search   string
	sort     string
	page     int
	pageSize int
	all      bool
}

// NewListCommand prints one page, or every page with --all, of a module table.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	lo := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list <module>",
		Short: "List records of a module",
		Long: `List records of a module. --sort takes a column key, prefixed with "-" for
descending order. --all walks every page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, lo, args[0], cmd)
		},
	}
	cmd.Flags().StringVarP(&lo.search, "search", "s", "", "search term")
	cmd.Flags().StringVar(&lo.sort, "sort", "", `sort column, "-" prefix for descending`)
	cmd.Flags().IntVarP(&lo.page, "page", "p", 1, "page number")
	cmd.Flags().IntVar(&lo.pageSize, "page-size", 0, "rows per page (module default when 0)")
	cmd.Flags().BoolVar(&lo.all, "all", false, "fetch every page")
	return cmd
}

func runList(opts *RootOptions, lo *listOptions, key string, cmd *cobra.Command) error {
	m, err := opts.module(key)
	if err != nil {
		return err
	}
	def := m.Definition()
	if lo.pageSize < 0 || lo.pageSize > viewquery.MaxPageSize {
		return NewExitError(ExitCommandError, fmt.Sprintf("--page-size must be between 1 and %d", viewquery.MaxPageSize))
	}
	if lo.sort != "" && !sortable(def, strings.TrimPrefix(lo.sort, "-")) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s cannot be sorted by %q", def.Key, lo.sort))
	}

	state := viewquery.NewState(def.PageSize)
	if lo.pageSize > 0 {
		state.SetPageSize(lo.pageSize)
	}
	state.SetSearch(lo.search)
	state.SetSort(viewquery.ParseSort(lo.sort))
	state.SetPage(lo.page)

	ctx := opts.context(cmd)
	f := opts.formatter(cmd)
	out := ListOutput{Module: def.Key}
	for {
		f.VerboseLog("fetching %s page %d", def.Key, state.Page)
		listing, err := m.Load(ctx, state)
		if err != nil {
			return apiError("list "+def.Key, err)
		}
		out.Page, out.PageSize = listing.Page, listing.PageSize
		out.TotalPages, out.TotalItems = listing.TotalPages, listing.TotalItems
		for _, row := range listing.Rows {
			out.Rows = append(out.Rows, rowOutput(def, row))
		}
		if !lo.all || !listing.HasNext() {
			break
		}
		state.SetPage(listing.Page + 1)
	}

	return f.Success(out, func(w io.Writer) error {
		header := []string{"ID"}
		for _, c := range def.Columns {
			header = append(header, strings.ToUpper(c.Label))
		}
		rows := make([][]string, 0, len(out.Rows))
		for _, r := range out.Rows {
			line := []string{r.ID}
			for _, c := range def.Columns {
				line = append(line, r.Cells[c.Key])
			}
			rows = append(rows, line)
		}
		if err := table(w, header, rows); err != nil {
			return err
		}
		if lo.all {
			_, err := fmt.Fprintf(w, "\n%d %s\n", out.TotalItems, strings.ToLower(def.Label))
			return err
		}
		_, err := fmt.Fprintf(w, "\npage %d of %d, %d %s\n", out.Page, max(out.TotalPages, 1), out.TotalItems, strings.ToLower(def.Label))
		return err
	})
}

// NewGetCommand prints one record.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <module> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := rootOpts.module(args[0])
			if err != nil {
				return err
			}
			detail, err := m.Detail(rootOpts.context(cmd), args[1])
			if err != nil {
				return apiError("get "+args[0]+" "+args[1], err)
			}
			out := DetailOutput{Module: m.Definition().Key, ID: detail.ID, Title: detail.Title, Fields: map[string]string{}}
			for _, field := range detail.Fields {
				out.Fields[field.Label] = field.Text
			}
			return rootOpts.formatter(cmd).Success(out, func(w io.Writer) error {
				fmt.Fprintf(w, "%s (%s)\n", detail.Title, detail.ID)
				rows := make([][]string, 0, len(detail.Fields))
				for _, field := range detail.Fields {
					rows = append(rows, []string{field.Label, field.Text})
				}
				return table(w, []string{"FIELD", "VALUE"}, rows)
			})
		},
	}
}

// NewDeleteCommand deletes one record after confirmation.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <module> <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to delete without --yes")
			}
			m, err := rootOpts.module(args[0])
			if err != nil {
				return err
			}
			if err := m.Delete(rootOpts.context(cmd), args[1]); err != nil {
				return apiError("delete "+args[0]+" "+args[1], err)
			}
			result := map[string]string{"module": m.Definition().Key, "id": args[1], "deleted": "true"}
			return rootOpts.formatter(cmd).Success(result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "deleted %s %s\n", strings.ToLower(m.Definition().Singular), args[1])
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}

func moduleInfo(def crm.Definition) ModuleInfo {
	info := ModuleInfo{
		Key:      def.Key,
		Label:    def.Label,
		Paging:   def.Paging.String(),
		PageSize: def.PageSize,
	}
	for _, c := range def.Columns {
		info.Columns = append(info.Columns, c.Key)
		if c.Sortable {
			info.Sortable = append(info.Sortable, c.Key)
		}
	}
	return info
}

func rowOutput(def crm.Definition, row crm.Row) RowOutput {
	out := RowOutput{ID: row.ID, Title: row.Title, Cells: make(map[string]string, len(row.Cells))}
	for i, cell := range row.Cells {
		if i < len(def.Columns) {
			out.Cells[def.Columns[i].Key] = cell.Text
		}
	}
	return out
}

func sortable(def crm.Definition, key string) bool {
	for _, c := range def.Columns {
		if c.Key == key {
			return c.Sortable
		}
	}
	return false
}
