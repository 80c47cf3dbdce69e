package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/matthewjhunter/tristore"
	"github.com/matthewjhunter/tristore/config"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

// env is the state every subcommand starts from.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	index  *tristore.TripleIndex
	loader *tristore.Loader
}

func newEnv(g *globalFlags) (*env, error) {
	cfg := config.DefaultConfig()
	if g.configPath != "" {
		c, err := config.LoadFromFile(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.dbPath != "" {
		cfg.Store.DB = g.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	idx := tristore.NewTripleIndex(tristore.WithLogger(logger))
	return &env{
		cfg:    cfg,
		logger: logger,
		index:  idx,
		loader: tristore.NewLoader(idx, tristore.WithLoaderLogger(logger)),
	}, nil
}

// openDB opens the snapshot database. create allows a missing file.
func openDB(path string, create bool) (*sql.DB, *tristore.SQLiteStore, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("--db is required")
	}
	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("database not found: %s", path)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	store, err := tristore.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

func loadCmd(g *globalFlags) *cobra.Command {
	var (
		ext       string
		recursive bool
	)
	cmd := &cobra.Command{
		Use:   "load [root...]",
		Short: "Load triple files and optionally save a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(g)
			if err != nil {
				return err
			}
			load := e.cfg.Load
			if len(args) > 0 {
				load.Files = args
			}
			if cmd.Flags().Changed("ext") {
				load.Extension = ext
			}
			if cmd.Flags().Changed("recursive") {
				load.Directories = recursive
			}
			if load.Files == nil {
				return fmt.Errorf("no roots given and load.files not configured")
			}

			files, err := e.loader.Load(cmd.Context(), load)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d files, %d facts.\n", files, e.index.Len())

			if e.cfg.Store.DB == "" {
				return nil
			}
			db, store, err := openDB(e.cfg.Store.DB, true)
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := store.Save(cmd.Context(), e.index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d facts to %s\n", n, e.cfg.Store.DB)
			return nil
		},
	}
	cmd.Flags().StringVar(&ext, "ext", ".txt", "file extension filter")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "search root directories recursively")
	return cmd
}

func queryCmd(g *globalFlags) *cobra.Command {
	var (
		subject, predicate, object string
		not                        bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print facts matching a pattern (empty fields match anything)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(g)
			if err != nil {
				return err
			}
			if e.cfg.Store.DB != "" {
				db, store, err := openDB(e.cfg.Store.DB, false)
				if err != nil {
					return err
				}
				defer db.Close()
				if _, err := store.Restore(cmd.Context(), e.index); err != nil {
					return err
				}
			}
			if e.cfg.Load.Files != nil {
				if _, err := e.loader.Load(cmd.Context(), e.cfg.Load); err != nil {
					return err
				}
			}

			var facts []tristore.Fact
			if not {
				facts = e.index.NotMatch(subject, predicate, object)
			} else {
				facts = e.index.Match(subject, predicate, object)
			}
			return tristore.WriteLines(cmd.OutOrStdout(), facts)
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "subject to match")
	cmd.Flags().StringVarP(&predicate, "predicate", "p", "", "predicate to match")
	cmd.Flags().StringVarP(&object, "object", "o", "", "object to match (case-sensitive)")
	cmd.Flags().BoolVar(&not, "not", false, "print facts whose subject is not in the match")
	return cmd
}

func exportCmd(g *globalFlags) *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a snapshot database as JSON or triple lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(g)
			if err != nil {
				return err
			}
			db, store, err := openDB(e.cfg.Store.DB, false)
			if err != nil {
				return err
			}
			defer db.Close()
			if _, err := store.Restore(cmd.Context(), e.index); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
				if err != nil {
					return fmt.Errorf("write: %w", err)
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "json":
				buf, err := json.MarshalIndent(tristore.Export(e.index), "", "  ")
				if err != nil {
					return fmt.Errorf("marshal: %w", err)
				}
				if _, err := fmt.Fprintln(out, string(buf)); err != nil {
					return fmt.Errorf("write: %w", err)
				}
			case "lines":
				if err := tristore.WriteLines(out, e.index.Facts()); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want json or lines)", format)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d facts\n", e.index.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or lines")
	return cmd
}

func importCmd(g *globalFlags) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import file.json",
		Short: "Import a JSON export into a snapshot database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(g)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			var data tristore.ExportData
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			db, store, err := openDB(e.cfg.Store.DB, true)
			if err != nil {
				return err
			}
			defer db.Close()
			if !replace {
				if _, err := store.Restore(cmd.Context(), e.index); err != nil {
					return err
				}
			}

			result, err := tristore.Import(e.index, &data, tristore.ImportOpts{Replace: replace})
			if err != nil {
				return err
			}
			if _, err := store.Save(cmd.Context(), e.index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d facts, skipped %d duplicates, %d invalid.\n",
				result.Imported, result.Skipped, result.Invalid)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "discard the existing snapshot instead of merging")
	return cmd
}
