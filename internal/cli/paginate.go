package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gompdf/gompage/internal/config"
	"github.com/gompdf/gompage/pkg/api"
)

type paginateFlags struct {
	output      string
	config      string
	size        string
	orientation string
	measure     string
	maxPages    int
	noChrome    bool
}

func newPaginateCmd() *cobra.Command {
	var f paginateFlags

	cmd := &cobra.Command{
		Use:   "paginate <input|url>",
		Short: "Break an HTML document into pages",
		Long: `Paginate reads an HTML file or URL and writes it back with its body split into <page> elements.

The output defaults to <input>.paged.html for files and to standard output for URLs; "-" always means standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			if opts.Debug {
				logger.SetLevel(log.DebugLevel)
			}
			opts.Logger = logger
			opts.Debug = logger.GetLevel() <= log.DebugLevel

			prog := newProgress(logger)
			input := args[0]
			conv := api.NewWithOptions(opts)
			src, err := conv.Load(input)
			if err != nil {
				return err
			}
			res, err := conv.Paginate(cmd.Context(), src)
			if err != nil {
				return err
			}

			output := f.output
			if output == "" {
				output = defaultOutput(input)
			}
			if err := writeResult(cmd.OutOrStdout(), output, res); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Paginated %s into %d pages", input, res.Pages))
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (\"-\" for stdout)")
	cmd.Flags().StringVar(&f.config, "config", "", "YAML or TOML config file")
	cmd.Flags().StringVar(&f.size, "size", "", "page size name (A0-A6, Letter, Legal)")
	cmd.Flags().StringVar(&f.orientation, "orientation", "", "portrait or landscape")
	cmd.Flags().StringVar(&f.measure, "measure", "", "text metrics: font or mono")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "abort when more pages are needed")
	cmd.Flags().BoolVar(&f.noChrome, "no-chrome", false, "do not repeat header and footer on every page")
	return cmd
}

// options builds the converter options: defaults, then the config file,
// then flags set on the command line
func (f *paginateFlags) options(cmd *cobra.Command) (api.Options, error) {
	opts := api.DefaultOptions()
	cfg := &config.Config{}
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return opts, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("size") {
		cfg.Page.Size, cfg.Page.Width, cfg.Page.Height = f.size, "", ""
	}
	if flags.Changed("orientation") {
		cfg.Page.Orientation = f.orientation
	}
	if flags.Changed("measure") {
		cfg.Layout.Measure = f.measure
	}
	if flags.Changed("max-pages") {
		cfg.Layout.MaxPages = f.maxPages
	}
	if flags.Changed("no-chrome") {
		chrome := !f.noChrome
		cfg.Layout.Chrome = &chrome
	}
	if err := cfg.Apply(&opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func defaultOutput(input string) string {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return "-"
	}
	ext := filepath.Ext(input)
	return input[:len(input)-len(ext)] + ".paged.html"
}

func writeResult(stdout io.Writer, output string, res *api.Result) error {
	if output == "-" {
		return res.Render(stdout)
	}
	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := res.Render(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	return file.Close()
}
