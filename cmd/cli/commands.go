package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dsjohal14/docsearch/internal/libs/obs"
	"github.com/dsjohal14/docsearch/internal/scope/db"
	"github.com/dsjohal14/docsearch/internal/scope/index"
	"github.com/dsjohal14/docsearch/internal/scope/search"
	"github.com/dsjohal14/docsearch/internal/scope/snapshot"
	"github.com/dsjohal14/docsearch/internal/scope/tables"
	"github.com/dsjohal14/docsearch/internal/source"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	indexPaths []string
	logLevel   string
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "docsearch",
		Short:         "Query generated API reference search tables",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			obs.InitLogger(opts.logLevel, true)
		},
	}

	root.PersistentFlags().StringSliceVarP(&opts.indexPaths, "index", "i", nil, "table files (.js, .json, .yaml) or snapshots (.snap), in load order")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON")

	root.AddCommand(
		newSearchCmd(opts),
		newLookupCmd(opts),
		newCompileCmd(opts),
		newStatsCmd(opts),
		newExportCmd(opts),
		newPublishCmd(opts),
	)
	return root
}

func readTables(ctx context.Context, opts *rootOptions) ([]index.Table, error) {
	if len(opts.indexPaths) == 0 {
		return nil, errors.New("at least one --index path is required")
	}
	return source.LoadAll(ctx, obs.Logger("cli"), source.FromPaths(opts.indexPaths)...)
}

func loadEngine(ctx context.Context, opts *rootOptions) (*search.Engine, error) {
	ts, err := readTables(ctx, opts)
	if err != nil {
		return nil, err
	}
	engine := search.New(search.WithLogger(obs.Logger("search")))
	if err := engine.Load(ts...); err != nil {
		return nil, err
	}
	return engine, nil
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var searchOpts search.Options

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Prefix search over the loaded tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			hits, err := engine.Search(args[0], searchOpts)
			if err != nil {
				return err
			}
			return printHits(cmd.OutOrStdout(), hits, opts.jsonOut)
		},
	}

	cmd.Flags().IntVarP(&searchOpts.Limit, "limit", "n", 0, "maximum results (0 = all)")
	cmd.Flags().BoolVar(&searchOpts.ExactOnly, "exact", false, "exact token match only")
	cmd.Flags().BoolVar(&searchOpts.Sorted, "sorted", false, "order tokens lexicographically")
	return cmd
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <token>",
		Short: "Show every match stored under one token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			matches, err := engine.Lookup(args[0])
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("token %q not found", index.Normalize(args[0]))
			}

			tok := index.Normalize(args[0])
			hits := make([]index.Hit, len(matches))
			for i, m := range matches {
				hits[i] = index.Hit{Token: tok, Match: m}
			}
			return printHits(cmd.OutOrStdout(), hits, opts.jsonOut)
		},
	}
}

func newCompileCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Validate tables and write them to a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, err := readTables(cmd.Context(), opts)
			if err != nil {
				return err
			}
			// Refuse to write a snapshot the server would reject
			s, err := index.Build(ts...)
			if err != nil {
				return err
			}
			if err := snapshot.WriteFile(out, ts); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d tables, %d tokens, %d matches\n",
				out, len(ts), s.Len(), s.MatchCount())
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "index.snap", "snapshot path")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the loaded tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := loadEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			st := engine.Stats()
			w := cmd.OutOrStdout()
			if opts.jsonOut {
				return json.NewEncoder(w).Encode(st)
			}
			_, err = fmt.Fprintf(w, "tables:  %d\ntokens:  %d\nmatches: %d\n", len(st.Tables), st.Tokens, st.Matches)
			return err
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out, name string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the merged index as one JSON table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := loadEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			s, err := engine.Store()
			if err != nil {
				return err
			}
			merged := index.Table{Name: name, Records: s.Records()}

			if out == "" || out == "-" {
				return tables.WriteJSON(cmd.OutOrStdout(), merged)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := tables.WriteJSON(f, merged); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "output path, - for stdout")
	cmd.Flags().StringVar(&name, "name", "merged", "table name in the output")
	return cmd
}

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Replace the Postgres search_entries table with the given tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbURL == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}
			ts, err := readTables(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if _, err := index.Build(ts...); err != nil {
				return err
			}

			database, err := db.New(cmd.Context(), dbURL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			n, err := database.ReplaceTables(cmd.Context(), ts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %d tables, %d rows\n", len(ts), n)
			return err
		},
	}

	cmd.Flags().StringVar(&dbURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	return cmd
}

func printHits(w io.Writer, hits []index.Hit, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, h := range hits {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.Token, h.Label, h.Scope, h.Target)
	}
	return tw.Flush()
}
