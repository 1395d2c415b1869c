package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opencode-ai/memer/internal/config"
	"github.com/opencode-ai/memer/internal/db"
	"github.com/opencode-ai/memer/internal/events"
	"github.com/opencode-ai/memer/internal/sources"
	"github.com/opencode-ai/memer/internal/templates"
	"github.com/spf13/cobra"
)

var (
	templatesListVerbose bool

	templatesPullURL      string
	templatesPullName     string
	templatesPullKey      string
	templatesPullImport   string
	templatesPullFromFile string
	templatesPullDefaults bool

	templatesForgetKeepFile bool
)

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesSearchCmd)
	templatesCmd.AddCommand(templatesPullCmd)
	templatesCmd.AddCommand(templatesForgetCmd)

	templatesListCmd.Flags().BoolVarP(&templatesListVerbose, "long", "l", false, "show whether each template was pulled, and its path")

	templatesPullCmd.Flags().StringVarP(&templatesPullURL, "url", "u", "", "image URL to download")
	templatesPullCmd.Flags().StringVarP(&templatesPullName, "name", "n", "", "name for --url or --import (default from the file name)")
	templatesPullCmd.Flags().StringVar(&templatesPullKey, "key", "", "short key for --url or --import")
	templatesPullCmd.Flags().StringVar(&templatesPullImport, "import", "", "local image file to copy into the templates directory")
	templatesPullCmd.Flags().StringVarP(&templatesPullFromFile, "from-file", "f", "", "YAML pull list (templates: [{name, url|path, key}])")
	templatesPullCmd.Flags().BoolVarP(&templatesPullDefaults, "defaults", "d", false, "pull the bundled default templates")

	templatesForgetCmd.Flags().BoolVar(&templatesForgetKeepFile, "keep-file", false, "only drop stored metadata, keep the image")
}

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"template", "tpl"},
	Short:   "Manage meme templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		items := catalog.List()

		if IsJSONOutput() {
			return WriteOutput(stdout, templateViews(items))
		}
		if len(items) == 0 {
			fmt.Fprintln(stdout, "No templates found. Run 'memer templates pull --defaults' to download some.")
			return nil
		}

		rows := make([][]string, 0, len(items))
		for _, t := range items {
			if templatesListVerbose {
				rows = append(rows, []string{t.Name, t.Key, formatYesNo(t.Origin != ""), t.Path})
			} else {
				rows = append(rows, []string{t.Name, t.Key})
			}
		}
		headers := []string{"NAME", "KEY"}
		if templatesListVerbose {
			headers = append(headers, "PULLED", "PATH")
		}
		return writeTable(stdout, headers, rows)
	},
}

var templatesSearchCmd = &cobra.Command{
	Use:   "search <phrase>",
	Short: "Search templates by name",
	Long:  "Search templates whose name contains the phrase, best matches first. An empty phrase lists everything.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		phrase := ""
		if len(args) == 1 {
			phrase = args[0]
		}
		catalog, err := loadCatalog(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		matches := templates.NewSearchIndex(catalog).Search(phrase)

		if IsJSONOutput() {
			views := make([]searchView, 0, len(matches))
			for _, m := range matches {
				views = append(views, searchView{templateView: newTemplateView(m.Template), Score: m.Score})
			}
			return WriteOutput(stdout, views)
		}

		fmt.Fprintln(stdout, styles().Title.Render(fmt.Sprintf("Search results for %q:", phrase)))
		if len(matches) == 0 {
			fmt.Fprintln(stdout, "No matching templates.")
			return nil
		}
		rows := make([][]string, 0, len(matches))
		for _, m := range matches {
			rows = append(rows, []string{m.Template.Name, m.Template.Key, strconv.FormatFloat(m.Score, 'f', 2, 64)})
		}
		return writeTable(stdout, []string{"NAME", "KEY", "SCORE"}, rows)
	},
}

var templatesPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download templates",
	Long: `Download templates into the user templates directory.

Sources can be combined; duplicate URLs are fetched once. Failed downloads are
reported at the end and do not stop the others.`,
	Example: `  memer templates pull --defaults
  memer templates pull --url https://i.imgflip.com/30b1gx.jpg --name "Drake Hotline Bling" --key drake
  memer templates pull --from-file my-templates.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reqs, err := pullRequestsFromFlags()
		if err != nil {
			return err
		}
		return runPull(cmd.Context(), GetConfig(), reqs)
	},
}

var templatesForgetCmd = &cobra.Command{
	Use:   "forget <template>",
	Short: "Remove a pulled template",
	Long:  "Delete a template from the user templates directory together with its stored name and key.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForget(cmd.Context(), GetConfig(), args[0], templatesForgetKeepFile)
	},
}

type templateView struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Source string `json:"source"`
	Path   string `json:"path"`
	Origin string `json:"origin,omitempty"`
}

type searchView struct {
	templateView
	Score float64 `json:"score"`
}

func newTemplateView(t *templates.Template) templateView {
	return templateView{Name: t.Name, Key: t.Key, Source: t.Source, Path: t.Path, Origin: t.Origin}
}

func templateViews(items []*templates.Template) []templateView {
	views := make([]templateView, 0, len(items))
	for _, t := range items {
		views = append(views, newTemplateView(t))
	}
	return views
}

func pullRequestsFromFlags() ([]sources.Request, error) {
	var reqs []sources.Request

	if templatesPullURL != "" && templatesPullImport != "" {
		return nil, &UsageError{Message: "--url and --import are mutually exclusive"}
	}
	if (templatesPullName != "" || templatesPullKey != "") && templatesPullURL == "" && templatesPullImport == "" {
		return nil, &UsageError{Message: "--name and --key require --url or --import"}
	}

	if templatesPullURL != "" {
		reqs = append(reqs, sources.Request{Kind: sources.KindURL, URL: templatesPullURL, Name: templatesPullName, Key: templatesPullKey})
	}
	if templatesPullImport != "" {
		reqs = append(reqs, sources.Request{Kind: sources.KindFile, Path: templatesPullImport, Name: templatesPullName, Key: templatesPullKey})
	}
	if templatesPullFromFile != "" {
		list, err := sources.LoadPullList(templatesPullFromFile)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, list...)
	}
	if templatesPullDefaults {
		defaults, err := sources.LoadDefaults()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, defaults...)
	}

	if len(reqs) == 0 {
		return nil, &UsageError{
			Message: "nothing to pull",
			Hint:    "Pass --url, --import, --from-file or --defaults.",
		}
	}
	return reqs, nil
}

type pullView struct {
	Pulled []pulledView `json:"pulled"`
	Failed []failedView `json:"failed"`
}

type pulledView struct {
	Name   string `json:"name"`
	Origin string `json:"origin"`
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type failedView struct {
	Name   string `json:"name"`
	Origin string `json:"origin"`
	Error  string `json:"error"`
}

func runPull(ctx context.Context, cfg *config.Config, reqs []sources.Request) error {
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	fetcher := sources.NewHTTPFetcher(nil, sources.HTTPOptions{
		Timeout:   cfg.Remote.Timeout,
		VerifySSL: cfg.Remote.VerifySSL,
		UserAgent: cfg.Remote.UserAgent,
	})
	puller := sources.NewPuller(cfg.TemplatesDir(), fetcher,
		sources.WithRecordStore(db.NewTemplateRepository(database)),
		sources.WithEventLog(db.NewEventRepository(database)),
	)

	result, err := puller.Pull(ctx, reqs, pullProgress(len(sources.Dedupe(reqs))))
	if err != nil {
		return err
	}

	view := pullView{Pulled: []pulledView{}, Failed: []failedView{}}
	for _, p := range result.Pulled {
		view.Pulled = append(view.Pulled, pulledView{
			Name:   p.Request.Label(),
			Origin: p.Request.Origin(),
			Path:   p.Path,
			Width:  p.Info.Width,
			Height: p.Info.Height,
		})
	}
	for _, f := range result.Failed {
		view.Failed = append(view.Failed, failedView{Name: f.Request.Name, Origin: f.Request.Origin(), Error: f.Err.Error()})
	}

	if IsJSONOutput() {
		if err := WriteOutput(stdout, view); err != nil {
			return err
		}
	} else {
		s := styles()
		for _, p := range view.Pulled {
			fmt.Fprintf(stdout, "%s %s\n", s.Muted.Render("Template downloaded to:"), p.Path)
		}
		fmt.Fprintln(stdout, s.Success.Render(fmt.Sprintf("Successfully pulled %d templates", len(view.Pulled))))
		if len(view.Failed) > 0 {
			fmt.Fprintln(stdout, s.Warning.Render("Error while pulling templates (please check the provided URL(s)):"))
			rows := make([][]string, 0, len(view.Failed))
			for _, f := range view.Failed {
				rows = append(rows, []string{f.Name, f.Origin, f.Error})
			}
			if err := writeTable(stdout, []string{"NAME", "URL", "ERROR"}, rows); err != nil {
				return err
			}
		}
	}

	if len(view.Pulled) == 0 && len(view.Failed) > 0 {
		return fmt.Errorf("all %d templates failed to download", len(view.Failed))
	}
	return nil
}

func runForget(ctx context.Context, cfg *config.Config, identifier string, keepFile bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	tmpl, err := templates.NewResolver(catalog).Resolve(identifier)
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(cfg.TemplatesDir())
	if err != nil {
		return err
	}
	if filepath.Dir(tmpl.Path) != dir {
		return &UsageError{
			Message: fmt.Sprintf("%s is not in the user templates directory", tmpl.Path),
			Hint:    "Only pulled templates can be forgotten; delete other files yourself.",
		}
	}

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.NewTemplateRepository(database).Delete(ctx, tmpl.Path); err != nil && !errors.Is(err, db.ErrTemplateRecordNotFound) {
		return err
	}
	if !keepFile {
		if err := os.Remove(tmpl.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", tmpl.Path, err)
		}
	}

	if err := events.LogTemplateForgotten(ctx, db.NewEventRepository(database), tmpl.Name, tmpl.Origin, tmpl.Path); err != nil {
		return fmt.Errorf("record history: %w", err)
	}

	if IsJSONOutput() {
		return WriteOutput(stdout, map[string]any{
			"forgotten": newTemplateView(tmpl),
			"kept_file": keepFile,
		})
	}
	fmt.Fprintf(stdout, "Forgot %s (%s)\n", tmpl.Name, tmpl.Key)
	return nil
}
