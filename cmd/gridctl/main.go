package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-datagrid/pkg/dom"
	"github.com/goliatone/go-datagrid/pkg/grid"
	"github.com/goliatone/go-datagrid/pkg/plugins/luaplugin"
	"github.com/goliatone/go-datagrid/pkg/plugins/pagination"
	"github.com/goliatone/go-datagrid/pkg/plugins/sorting"
	"github.com/goliatone/go-datagrid/pkg/render/sanitize"
	"github.com/goliatone/go-datagrid/pkg/render/template/gotemplate"
	"github.com/goliatone/go-datagrid/pkg/transport"
)

type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(value string) error {
	*l = append(*l, value)
	return nil
}

type options struct {
	page        string
	selector    string
	optionsFile string
	templates   string
	url         string
	origin      string
	output      string
	timeout     time.Duration
	paginate    bool
	sort        bool
	sanitize    bool
	interactive bool
	verbosity   int
	scripts     listFlag
}

// prompter asks for a value the page and options did not provide.
type prompter func(message string) (string, error)

func surveyPrompt(message string) (string, error) {
	var out string
	prompt := &survey.Input{Message: message}
	if err := survey.AskOne(prompt, &out, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func main() {
	var opts options
	flag.StringVar(&opts.page, "page", "", "HTML page containing the grid container (required)")
	flag.StringVar(&opts.selector, "grid", "#grid", "container selector")
	flag.StringVar(&opts.optionsFile, "options", "", "YAML file with grid options")
	flag.StringVar(&opts.templates, "templates", "", "directory of named templates, used when the template option matches no element")
	flag.StringVar(&opts.url, "url", "", "data URL, overrides the url option")
	flag.StringVar(&opts.origin, "origin", "", "origin used to resolve relative data URLs")
	flag.StringVar(&opts.output, "output", "", "output file (stdout if empty)")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	flag.BoolVar(&opts.paginate, "paginate", false, "enable the pagination plugin")
	flag.BoolVar(&opts.sort, "sort", false, "enable the sorting plugin")
	flag.BoolVar(&opts.sanitize, "sanitize", false, "sanitize rendered markup")
	flag.BoolVar(&opts.interactive, "interactive", false, "prompt for missing settings")
	flag.IntVar(&opts.verbosity, "v", 0, "log verbosity")
	flag.Var(&opts.scripts, "lua", "Lua plugin script (repeatable)")
	flag.Parse()

	logger := funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: opts.verbosity})

	if err := run(context.Background(), opts, os.Stdout, logger, surveyPrompt); err != nil {
		fmt.Fprintf(os.Stderr, "gridctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer, logger logr.Logger, prompt prompter) error {
	if strings.TrimSpace(opts.page) == "" {
		return errors.New("-page is required")
	}

	doc, err := loadPage(opts.page)
	if err != nil {
		return err
	}

	gridOptions, err := loadOptions(opts.optionsFile)
	if err != nil {
		return err
	}
	if opts.url != "" {
		gridOptions[grid.OptionURL] = opts.url
	}

	container, err := doc.QuerySelector(opts.selector)
	if err != nil {
		return fmt.Errorf("container %q: %w", opts.selector, err)
	}
	if container == nil {
		return fmt.Errorf("container %q: %w", opts.selector, grid.ErrContainerNotFound)
	}
	if grid.NewConfigResolver(container, gridOptions, nil).String(grid.OptionURL, "") == "" {
		if !opts.interactive || prompt == nil {
			return errors.New("no data url: set data-url, the url option or -url")
		}
		answer, err := prompt("Data URL")
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		gridOptions[grid.OptionURL] = answer
	}

	plugins := grid.NewPluginRegistry(grid.WithRegistryLogger(logger))
	if opts.paginate {
		pagination.Register(plugins)
	}
	if opts.sort {
		sorting.Register(plugins)
	}
	for _, path := range opts.scripts {
		script, err := luaplugin.FromFile(path, luaplugin.WithLogger(logger))
		if err != nil {
			return err
		}
		script.Register(plugins)
	}

	var transportOptions []transport.Option
	if opts.timeout > 0 {
		transportOptions = append(transportOptions, transport.WithTimeout(opts.timeout))
	}
	if opts.origin != "" {
		transportOptions = append(transportOptions, transport.WithOrigin(opts.origin))
	}

	gridOpts := []grid.Option{
		grid.WithContext(ctx),
		grid.WithLogger(logger),
		grid.WithFetcher(transport.NewHTTP(transportOptions...)),
		grid.WithPluginRegistry(plugins),
		grid.WithInstanceRegistry(grid.NewInstanceRegistry()),
	}
	if opts.sanitize {
		gridOpts = append(gridOpts, grid.WithSanitizer(sanitize.GridPolicy()))
	}
	if opts.templates != "" {
		engine, err := gotemplate.New(gotemplate.WithDir(opts.templates))
		if err != nil {
			return err
		}
		gridOpts = append(gridOpts, grid.WithRenderer(engine))
	}

	g, err := grid.Mount(ctx, doc, opts.selector, gridOptions, gridOpts...)
	if g != nil {
		defer func() {
			if cerr := g.Close(); cerr != nil {
				logger.Error(cerr, "close grid")
			}
		}()
	}
	if err != nil {
		return err
	}
	logger.V(1).Info("grid rendered", "records", len(g.Fetched()), "url", g.RequestURL())

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(doc.String()), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(stdout, "Grid written to %s\n", opts.output)
		return nil
	}
	return doc.Render(stdout)
}

func loadPage(path string) (*dom.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func loadOptions(path string) (grid.Options, error) {
	out := grid.Options{}
	if strings.TrimSpace(path) == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options: %w", err)
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	for key, value := range parsed {
		out[key] = value
	}
	return out, nil
}
