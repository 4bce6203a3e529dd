package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/contactcard/internal/core"
)

type assignmentFlags struct {
	pairs       []string
	mappingFile string
	auto        bool
}

func (f *assignmentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.pairs, "map", nil, `Bind a column to a field, as "Column=Field" (repeatable)`)
	cmd.Flags().StringVar(&f.mappingFile, "mapping", "", "Mapping file (.toml, .yaml or .yml)")
	cmd.Flags().BoolVar(&f.auto, "auto", false, "Bind columns whose header names a field")
}

func (f *assignmentFlags) set() bool {
	return f.auto || f.mappingFile != "" || len(f.pairs) > 0
}

// resolve merges the sources in increasing precedence: --auto suggestions,
// the mapping file, then --map pairs. A mapping file written for a different
// header is reported on warn but still applied.
func (f *assignmentFlags) resolve(columns []string, warn io.Writer) (map[string]core.FieldTag, error) {
	assignment := make(map[string]core.FieldTag)

	if f.auto {
		for col, tag := range core.SuggestMapping(columns) {
			assignment[col] = tag
		}
	}

	if f.mappingFile != "" {
		tmpl, err := core.LoadMappingFile(f.mappingFile)
		if err != nil {
			return nil, err
		}
		if score := tmpl.MatchScore(columns); score < core.TemplateMatchThreshold {
			fmt.Fprintf(warn, "warning: mapping %s matches only %.0f%% of the CSV headers\n", f.mappingFile, score*100)
		}
		fromFile, err := tmpl.Assignment()
		if err != nil {
			return nil, err
		}
		for col, tag := range fromFile {
			assignment[col] = tag
		}
	}

	labels := make(map[string]string, len(f.pairs))
	for _, pair := range f.pairs {
		// Field labels never contain '=', column names might.
		i := strings.LastIndex(pair, "=")
		if i <= 0 {
			return nil, &core.MappingError{Reason: fmt.Sprintf("invalid --map %q, want Column=Field", pair)}
		}
		labels[pair[:i]] = strings.TrimSpace(pair[i+1:])
	}
	fromFlags, err := core.ParseAssignment(labels)
	if err != nil {
		return nil, err
	}
	for col, tag := range fromFlags {
		assignment[col] = tag
	}

	return assignment, nil
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var modeFlag string
	var flags assignmentFlags

	cmd := &cobra.Command{
		Use:   "convert <csv>",
		Short: "Convert a CSV file to vCards",
		Long: `Convert a CSV file to vCard 3.0 files.

Columns are bound to fields with --auto, a --mapping file and --map pairs;
later sources override earlier ones. Unbound columns are skipped. Records
without both a first and a last name are counted as failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ctx.ensureService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg := ctx.configValue()

			if modeFlag == "" {
				modeFlag = cfg.Export.Mode
			}
			mode, err := core.ParseExportMode(modeFlag)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.Export.OutputDir
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer file.Close()

			set, err := service.Load(cmd.Context(), file)
			if err != nil {
				return err
			}

			assignment, err := flags.resolve(set.Columns, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			res, err := service.Export(cmd.Context(), set, assignment, mode, outDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Mode", "Destination", "Converted", "Failed"},
				[][]string{{string(mode), outDir, strconv.Itoa(res.Succeeded), strconv.Itoa(res.Failed)}},
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				isTerminal(out),
			))
			for _, werr := range res.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", werr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Destination directory (default from config)")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "per-contact or combined (default from config)")
	flags.register(cmd)

	return cmd
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var saveMapping string
	var flags assignmentFlags

	cmd := &cobra.Command{
		Use:   "inspect <csv>",
		Short: "Show a CSV's columns, field mapping and convertible rows",
		Long: `Show how a CSV file would convert without writing anything.

Without mapping flags the suggested mapping (as with --auto) is shown.
--save-mapping writes the shown mapping to a file usable with
"convert --mapping".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ctx.ensureService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer file.Close()

			set, err := service.Load(cmd.Context(), file)
			if err != nil {
				return err
			}

			var assignment map[string]core.FieldTag
			if flags.set() {
				assignment, err = flags.resolve(set.Columns, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}

			preview, err := service.Preview(cmd.Context(), set, assignment)
			if err != nil {
				return err
			}

			if saveMapping != "" {
				if err := saveMappingFile(saveMapping, filepath.Base(args[0]), set.Columns, preview.Mapping); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Mapping saved to %s\n", saveMapping)
			}

			if jsonOutput {
				return writeJSON(cmd, preview)
			}
			printPreview(cmd.OutOrStdout(), preview)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&saveMapping, "save-mapping", "", "Write the mapping to a .toml, .yaml or .yml file")
	flags.register(cmd)

	return cmd
}

// saveMappingFile records labels together with the header they were made
// for, so a later convert can report a mismatched CSV.
func saveMappingFile(path, name string, headers []string, labels map[string]string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml", ".yaml", ".yml":
	default:
		return &core.MappingError{Reason: fmt.Sprintf("unsupported mapping file type %q (use .toml, .yaml or .yml)", ext)}
	}
	if len(labels) == 0 {
		return &core.MappingError{Reason: "refusing to save an empty mapping", Err: core.ErrNothingMapped}
	}

	tmpl := &core.MappingTemplate{
		Name:    name,
		Headers: headers,
		Columns: labels,
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	if err := core.EncodeMapping(file, tmpl, ext); err != nil {
		file.Close()
		return fmt.Errorf("save mapping: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return nil
}

func printPreview(out io.Writer, p *core.PreviewResponse) {
	fancy := isTerminal(out)

	rows := make([][]string, 0, len(p.Columns))
	for i, col := range p.Columns {
		field := p.Mapping[col]
		if field == "" {
			field = "-"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), col, field})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Column", "Field"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft},
		fancy,
	))

	fmt.Fprintf(out, "Rows: %d  Convertible: %d  Skipped: %d\n",
		p.Summary.TotalRows, p.Summary.Convertible, p.Summary.Skipped)
	if len(p.MissingRequired) > 0 {
		missing := append([]string(nil), p.MissingRequired...)
		sort.Strings(missing)
		fmt.Fprintf(out, "Missing required fields: %s\n", strings.Join(missing, ", "))
	}

	if len(p.ContactSamples) > 0 {
		rows = rows[:0]
		for _, c := range p.ContactSamples {
			rows = append(rows, []string{strconv.Itoa(c.LineNumber), c.FullName, c.FileName})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Line", "Name", "File"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft},
			fancy,
		))
	}
}
