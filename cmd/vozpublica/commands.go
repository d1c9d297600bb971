package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Perruchok/vozpublica"
	"github.com/Perruchok/vozpublica/config"
	"github.com/Perruchok/vozpublica/ingestion"
	"github.com/Perruchok/vozpublica/narrative"
	"github.com/Perruchok/vozpublica/reembed"
	"github.com/Perruchok/vozpublica/report"
	"github.com/Perruchok/vozpublica/server"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func openDatabase(c *cli.Context) (*vozpublica.Database, *config.Config, error) {
	cfg, err := loadedConfig(c)
	if err != nil {
		return nil, nil, err
	}
	aiConfig, err := cfg.AIConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []vozpublica.DatabaseOption{
		vozpublica.WithAIConfig(aiConfig),
		vozpublica.WithSettings(cfg.Settings()),
		vozpublica.WithLogger(slog.Default()),
	}
	if cfg.Database.InMemory {
		opts = append(opts, vozpublica.WithInMemory())
	}
	db, err := vozpublica.NewDatabase(cfg.Database.Path, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

func withNarrative(c *cli.Context, fn func(ctx context.Context, svc *narrative.Service) (any, error)) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := db.NewNarrativeService()
	if err != nil {
		return err
	}
	defer svc.Release()

	result, err := fn(c.Context, svc)
	if err != nil {
		return err
	}
	return writeOutput(c.App.Writer, result, c.String("format"))
}

// writeOutput encodes v as indented JSON or as YAML.
func writeOutput(w io.Writer, v any, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

func thresholdFlag(c *cli.Context) *float64 {
	if !c.IsSet("threshold") {
		return nil
	}
	v := c.Float64("threshold")
	return &v
}

func day(c *cli.Context, name string) time.Time {
	if t := c.Timestamp(name); t != nil {
		return *t
	}
	return time.Time{}
}

func dateFlag(name, usage string) *cli.TimestampFlag {
	return &cli.TimestampFlag{
		Name:     name,
		Usage:    usage + " (YYYY-MM-DD)",
		Layout:   time.DateOnly,
		Timezone: time.UTC,
		Required: true,
	}
}

func conceptFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "concept",
		Usage:    "Concept to analyze",
		Required: true,
	}
}

func thresholdFlagDef() cli.Flag {
	return &cli.Float64Flag{
		Name:  "threshold",
		Usage: "Minimum cosine similarity (default from configuration)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (json, yaml)",
		Value:   "json",
	}
}

func contrastFlags() []cli.Flag {
	return []cli.Flag{
		conceptFlag(),
		dateFlag("pre-start", "First day of the earlier range"),
		dateFlag("pre-end", "Last day of the earlier range"),
		dateFlag("post-start", "First day of the later range"),
		dateFlag("post-end", "Last day of the later range"),
		thresholdFlagDef(),
		&cli.IntFlag{
			Name:  "min-evidence",
			Usage: "Turns a speaker needs in each range (default from configuration)",
		},
		&cli.IntFlag{
			Name:  "top-k",
			Usage: "Rows fetched per range (default from configuration)",
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import transcripts and speech turns from JSON Lines files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "transcripts",
				Usage: "JSONL file of transcript metadata",
			},
			&cli.StringFlag{
				Name:  "turns",
				Usage: "JSONL file of speech turns",
			},
			&cli.IntFlag{
				Name:  "pool-size",
				Usage: "Concurrent embedding workers",
			},
			&cli.IntFlag{
				Name:  "embed-batch-size",
				Usage: "Turns per embedding request",
				Value: ingestion.DefaultEmbedBatchSize,
			},
		},
		Action: func(c *cli.Context) error {
			if c.String("transcripts") == "" && c.String("turns") == "" {
				return fmt.Errorf("at least one of --transcripts or --turns is required")
			}

			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			opts := []ingestion.Option{ingestion.WithEmbedBatchSize(c.Int("embed-batch-size"))}
			if c.IsSet("pool-size") {
				opts = append(opts, ingestion.WithPoolSize(c.Int("pool-size")))
			}
			pipeline, err := db.NewIngestionPipeline(opts...)
			if err != nil {
				return err
			}
			defer pipeline.Release()

			if path := c.String("transcripts"); path != "" {
				stats, err := importFile(path, func(source string, r io.Reader) (*ingestion.ImportStats, error) {
					return pipeline.ImportTranscripts(c.Context, source, r)
				})
				if err != nil {
					return err
				}
				if err := writeOutput(c.App.Writer, stats, "json"); err != nil {
					return err
				}
			}
			if path := c.String("turns"); path != "" {
				stats, err := importFile(path, func(source string, r io.Reader) (*ingestion.ImportStats, error) {
					return pipeline.ImportTurns(c.Context, source, r)
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.ErrWriter, "Waiting for embeddings...")
				pipeline.Wait()
				if err := writeOutput(c.App.Writer, stats, "json"); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// importFile runs fn over the file at path. The checkpoint source is the
// absolute path so resumes survive a change of working directory.
func importFile(path string, fn func(source string, r io.Reader) (*ingestion.ImportStats, error)) (*ingestion.ImportStats, error) {
	source, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return fn(source, f)
}

func evolutionCommand() *cli.Command {
	return &cli.Command{
		Name:  "evolution",
		Usage: "Show how strongly a concept is present per period",
		Flags: []cli.Flag{
			conceptFlag(),
			&cli.StringFlag{
				Name:  "granularity",
				Usage: "Period size (day, week, month)",
				Value: "month",
			},
			dateFlag("start", "First day"),
			dateFlag("end", "Last day"),
			thresholdFlagDef(),
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			return withNarrative(c, func(ctx context.Context, svc *narrative.Service) (any, error) {
				return svc.Evolution(ctx, narrative.EvolutionRequest{
					Concept:             c.String("concept"),
					Granularity:         c.String("granularity"),
					StartDate:           day(c, "start"),
					EndDate:             day(c, "end"),
					SimilarityThreshold: thresholdFlag(c),
				})
			})
		},
	}
}

func explainDriftCommand() *cli.Command {
	return &cli.Command{
		Name:  "explain-drift",
		Usage: "Explain how a concept's framing changed between two months",
		Flags: []cli.Flag{
			conceptFlag(),
			&cli.StringFlag{
				Name:     "from",
				Usage:    "Earlier month (YYYY-MM)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Later month (YYYY-MM)",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "max-examples",
				Usage: "Excerpts per month given to the model",
			},
			thresholdFlagDef(),
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			return withNarrative(c, func(ctx context.Context, svc *narrative.Service) (any, error) {
				return svc.ExplainDrift(ctx, narrative.ExplainRequest{
					Concept:             c.String("concept"),
					FromPeriod:          c.String("from"),
					ToPeriod:            c.String("to"),
					MaxExamples:         c.Int("max-examples"),
					SimilarityThreshold: thresholdFlag(c),
				})
			})
		},
	}
}

func speakersCommand() *cli.Command {
	return &cli.Command{
		Name:  "speakers",
		Usage: "Rank speakers by how much their discourse on a concept moved",
		Flags: append(contrastFlags(), formatFlag()),
		Action: func(c *cli.Context) error {
			return withNarrative(c, func(ctx context.Context, svc *narrative.Service) (any, error) {
				return svc.SpeakerDrift(ctx, narrative.SpeakerDriftRequest{
					Concept:             c.String("concept"),
					PreStart:            day(c, "pre-start"),
					PreEnd:              day(c, "pre-end"),
					PostStart:           day(c, "post-start"),
					PostEnd:             day(c, "post-end"),
					SimilarityThreshold: thresholdFlag(c),
					MinEvidence:         c.Int("min-evidence"),
					TopK:                c.Int("top-k"),
				})
			})
		},
	}
}

func reportCommand() *cli.Command {
	flags := append(contrastFlags(),
		&cli.IntFlag{
			Name:  "max-examples",
			Usage: "Excerpts per range",
		},
		&cli.BoolFlag{
			Name:  "skip-explanation",
			Usage: "Do not ask the model for a narration",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Report format (text, json, yaml; default from configuration)",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Directory the report is written to (default from configuration)",
		},
		&cli.BoolFlag{
			Name:  "stdout",
			Usage: "Print the report instead of saving it",
		},
	)

	return &cli.Command{
		Name:  "report",
		Usage: "Build a narrative report contrasting two date ranges",
		Flags: flags,
		Action: func(c *cli.Context) error {
			db, cfg, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			formatName := cfg.Report.Format
			if c.IsSet("format") {
				formatName = c.String("format")
			}
			format, err := report.ParseFormat(formatName)
			if err != nil {
				return err
			}

			svc, err := db.NewNarrativeService()
			if err != nil {
				return err
			}
			defer svc.Release()

			r, err := svc.Report(c.Context, narrative.ReportRequest{
				Concept:             c.String("concept"),
				PreStart:            day(c, "pre-start"),
				PreEnd:              day(c, "pre-end"),
				PostStart:           day(c, "post-start"),
				PostEnd:             day(c, "post-end"),
				SimilarityThreshold: thresholdFlag(c),
				MinEvidence:         c.Int("min-evidence"),
				TopK:                c.Int("top-k"),
				MaxExamples:         c.Int("max-examples"),
				SkipExplanation:     c.Bool("skip-explanation"),
			})
			if err != nil {
				return err
			}

			if c.Bool("stdout") {
				return report.Render(c.App.Writer, r, format)
			}
			dir := cfg.Report.Dir
			if c.IsSet("out") {
				dir = c.String("out")
			}
			path, err := report.Save(dir, r, format)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, path)
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find the speech turns closest to a query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "top-k",
				Aliases: []string{"k"},
				Usage:   "Number of results",
			},
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return fmt.Errorf("a query is required")
			}
			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			searcher, err := db.NewSearcher()
			if err != nil {
				return err
			}
			results, err := searcher.Search(c.Context, query, c.Int("top-k"))
			if err != nil {
				return err
			}
			return writeOutput(c.App.Writer, results, c.String("format"))
		},
	}
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question from the most relevant speech turns",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "top-k",
				Aliases: []string{"k"},
				Usage:   "Speech turns used as context",
			},
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			question := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("a question is required")
			}
			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			searcher, err := db.NewSearcher()
			if err != nil {
				return err
			}
			answer, err := searcher.Ask(c.Context, question, c.Int("top-k"))
			if err != nil {
				return err
			}
			return writeOutput(c.App.Writer, answer, c.String("format"))
		},
	}
}

func reembedCommand() *cli.Command {
	return &cli.Command{
		Name:  "reembed",
		Usage: "Regenerate the embeddings of stored speech turns",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of turns to process in each batch",
				Value: reembed.DefaultBatchSize,
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N turns",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum attempts per batch",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "only-missing",
				Usage: "Only embed turns that have no vector yet",
			},
		},
		Action: func(c *cli.Context) error {
			reembedConfig := reembed.DefaultConfig()
			reembedConfig.BatchSize = c.Int("batch-size")
			reembedConfig.ReportInterval = c.Int("report-interval")
			reembedConfig.Retry.MaxAttempts = c.Int("max-retries")
			reembedConfig.Retry.BaseDelay = c.Duration("retry-delay")
			reembedConfig.OnlyMissing = c.Bool("only-missing")

			if reembedConfig.BatchSize <= 0 {
				return fmt.Errorf("batch-size must be greater than 0")
			}
			if reembedConfig.ReportInterval <= 0 {
				return fmt.Errorf("report-interval must be greater than 0")
			}
			if reembedConfig.Retry.MaxAttempts <= 0 {
				return fmt.Errorf("max-retries must be greater than 0")
			}

			db, cfg, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			reembedder, err := db.NewReembedder(reembedConfig, c.App.ErrWriter)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Database.Path)
			fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
			fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
			fmt.Fprintln(c.App.ErrWriter)

			result, err := reembedder.Run(c.Context)
			if err != nil {
				return fmt.Errorf("reembedding failed: %w", err)
			}
			return writeOutput(c.App.Writer, result, "json")
		},
	}
}

func backfillCommand() *cli.Command {
	return &cli.Command{
		Name:  "backfill-speakers",
		Usage: "Re-parse raw speaker labels and store the normalized name and role",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report changes without writing them",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of turns to process in each batch",
				Value: reembed.DefaultBatchSize,
			},
		},
		Action: func(c *cli.Context) error {
			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			backfiller, err := db.NewSpeakerBackfiller(c.App.ErrWriter,
				reembed.WithDryRun(c.Bool("dry-run")),
				reembed.WithBatchSize(c.Int("batch-size")))
			if err != nil {
				return err
			}
			result, err := backfiller.Run(c.Context)
			if err != nil {
				return fmt.Errorf("speaker backfill failed: %w", err)
			}
			return writeOutput(c.App.Writer, result, "json")
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from configuration)",
			},
		},
		Action: func(c *cli.Context) error {
			db, cfg, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := db.NewNarrativeService()
			if err != nil {
				return err
			}
			defer svc.Release()
			searcher, err := db.NewSearcher()
			if err != nil {
				return err
			}
			aiConfig, err := cfg.AIConfig()
			if err != nil {
				return err
			}

			srv, err := server.New(svc, searcher,
				server.WithStore(db),
				server.WithAIConfig(aiConfig),
				server.WithVersion(version),
				server.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			addr := cfg.Server.Addr
			if c.IsSet("addr") {
				addr = c.String("addr")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}
}
