package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencode-ai/memer/internal/compose"
	"github.com/opencode-ai/memer/internal/config"
	"github.com/opencode-ai/memer/internal/db"
	"github.com/opencode-ai/memer/internal/events"
	"github.com/opencode-ai/memer/internal/layout"
	"github.com/opencode-ai/memer/internal/logging"
	"github.com/opencode-ai/memer/internal/meme"
	"github.com/opencode-ai/memer/internal/models"
	"github.com/opencode-ai/memer/internal/templates"
	"github.com/spf13/cobra"
)

var (
	createTemplate string
	createTop      string
	createBottom   string
	createOutput   string
	createOverflow string
)

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVarP(&createTemplate, "template", "n", "", "template key, name or image path")
	createCmd.Flags().StringVarP(&createTop, "top", "t", "", "top caption")
	createCmd.Flags().StringVarP(&createBottom, "bottom", "b", "", "bottom caption")
	createCmd.Flags().StringVarP(&createOutput, "output", "o", "", "output file (default <stem>_<timestamp>.<ext> in output.dir)")
	createCmd.Flags().StringVar(&createOverflow, "overflow", "", "overflow policy (render, abort); overrides text.overflow")
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a meme",
	Long: `Render top and/or bottom captions onto a template.

The template is found by file path, then by key, then by case-insensitive name.`,
	Example: `  memer create -n drake -t "Writing tests" -b "Writing memes"
  memer create -n ./cat.png -b "I CAN HAS CHEEZBURGER" -o cat.jpg`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(cmd.Context(), GetConfig(), createRequest{
			Template: createTemplate,
			Top:      createTop,
			Bottom:   createBottom,
			Output:   createOutput,
			Overflow: createOverflow,
		})
	},
}

type createRequest struct {
	Template string
	Top      string
	Bottom   string
	Output   string
	Overflow string
}

type createResult struct {
	Template string          `json:"template"`
	Key      string          `json:"key"`
	Strategy string          `json:"strategy"`
	Output   string          `json:"output"`
	Captions []captionResult `json:"captions"`
}

type captionResult struct {
	Position string   `json:"position"`
	Size     int      `json:"size"`
	Lines    []string `json:"lines"`
	Fits     bool     `json:"fits"`
}

func runCreate(ctx context.Context, cfg *config.Config, req createRequest) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(req.Template) == "" {
		return &UsageError{
			Message: "a template is required",
			Hint:    "Pass --template with a key, name or path; see 'memer templates list'.",
		}
	}
	if strings.TrimSpace(req.Top) == "" && strings.TrimSpace(req.Bottom) == "" {
		return &UsageError{
			Message: meme.ErrNoCaptions.Error(),
			Hint:    "Pass --top and/or --bottom.",
		}
	}

	opts, err := meme.OptionsFromConfig(cfg.Text)
	if err != nil {
		return err
	}
	if req.Overflow != "" {
		switch req.Overflow {
		case config.OverflowRender, config.OverflowAbort:
			opts.Overflow = req.Overflow
		default:
			return &UsageError{Message: fmt.Sprintf("unknown overflow policy %q (want render or abort)", req.Overflow)}
		}
	}

	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	tmpl, strategy, err := templates.NewResolver(catalog).ResolveWithStrategy(req.Template)
	if err != nil {
		return err
	}

	logger := logging.Component("create")
	logger.Debug().
		Str("template", tmpl.Name).
		Str("key", tmpl.Key).
		Str("strategy", string(strategy)).
		Str("path", tmpl.Path).
		Msg("template resolved")

	img, err := meme.LoadImage(tmpl.Path)
	if err != nil {
		return err
	}

	fonts := layout.NewFonts(filepath.Join(cfg.Templates.DataDir, "fonts"))
	defer fonts.Close()

	step := startProgress(fmt.Sprintf("Rendering %s", tmpl.Name))
	generated, err := meme.NewGenerator(fonts).Generate(img, []meme.Caption{
		{Text: req.Top, Position: compose.PositionTop},
		{Text: req.Bottom, Position: compose.PositionBottom},
	}, opts)
	if err != nil {
		step.Fail(err)
		return err
	}
	step.Done()

	outPath, format, err := meme.ResolveOutput(meme.OutputRequest{
		Explicit:    req.Output,
		Dir:         cfg.Output.Dir,
		Pattern:     cfg.Output.Name,
		Format:      cfg.Output.Format,
		TemplateExt: filepath.Ext(tmpl.Path),
		Vars:        meme.NewNameVars(tmpl.Stem(), tmpl.Name, tmpl.Key, time.Now()),
	})
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	if err := meme.Save(generated.Image, outPath, format); err != nil {
		return err
	}

	result := createResult{
		Template: tmpl.Name,
		Key:      tmpl.Key,
		Strategy: string(strategy),
		Output:   outPath,
	}
	size := 0
	for _, pos := range []compose.Position{compose.PositionTop, compose.PositionBottom} {
		res, ok := generated.Layouts[pos]
		if !ok {
			continue
		}
		size = res.Size
		result.Captions = append(result.Captions, captionResult{
			Position: string(pos),
			Size:     res.Size,
			Lines:    res.Lines,
			Fits:     res.Fits,
		})
	}
	recordMemeCreated(ctx, cfg, result, size, len(generated.Overflowed()) > 0)

	if IsJSONOutput() {
		return WriteOutput(stdout, result)
	}

	s := styles()
	for _, pos := range generated.Overflowed() {
		fmt.Fprintln(stderr, s.Warning.Render(fmt.Sprintf("Warning: %s caption does not fit at %dpx and may be clipped", pos, generated.Layouts[pos].Size)))
	}
	fmt.Fprintf(stdout, "%s %s\n", s.Success.Render("Meme saved to"), outPath)
	return nil
}

func recordMemeCreated(ctx context.Context, cfg *config.Config, result createResult, size int, overflow bool) {
	logger := logging.Component("create")
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.Debug().Err(err).Msg("history unavailable")
		return
	}
	defer database.Close()

	err = events.LogMemeCreated(ctx, db.NewEventRepository(database), models.MemeCreatedPayload{
		Template: result.Template,
		Output:   result.Output,
		Size:     size,
		Overflow: overflow,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to record history event")
	}
}
