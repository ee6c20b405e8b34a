package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amansearch/internal/catalog"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/output"
	"github.com/Aman-CERP/amansearch/pkg/query"
)

// indexInfo is the JSON shape of one index in info output.
type indexInfo struct {
	Name       string     `json:"name"`
	Analyzer   string     `json:"analyzer,omitempty"`
	Documents  *uint64    `json:"documents,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastCommit *time.Time `json:"last_commit,omitempty"`
	Commits    int64      `json:"commits"`
	Inserted   int64      `json:"inserted"`
	Deleted    int64      `json:"deleted"`
}

func infoFromEntry(e catalog.Entry) indexInfo {
	info := indexInfo{
		Name:      e.Name,
		CreatedAt: e.CreatedAt,
		Commits:   e.Commits,
		Inserted:  e.Inserted,
		Deleted:   e.Deleted,
	}
	if !e.LastCommit.IsZero() {
		last := e.LastCommit
		info.LastCommit = &last
	}
	return info
}

func newInfoCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info [index]",
		Short: "Show index statistics",
		Long: `Without an argument, list every index known under the index root.
With an index name, show its analyzer, live document count and history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if format != "text" && format != "json" {
				return amerrors.ValidationError(fmt.Sprintf("unknown format %q: use text or json", format), nil)
			}

			s, err := a.open()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := s.Close(); err == nil {
					err = cerr
				}
			}()

			out := output.New(cmd.OutOrStdout())
			ctx := cmd.Context()

			if len(args) == 0 {
				entries, err := s.catalog.List(ctx)
				if err != nil {
					return err
				}
				infos := make([]indexInfo, 0, len(entries))
				for _, e := range entries {
					infos = append(infos, infoFromEntry(e))
				}
				if format == "json" {
					return out.JSON(infos)
				}
				if len(infos) == 0 {
					out.Statusf("", "no indexes under %s", a.cfg.Index.Root)
					return nil
				}
				for _, info := range infos {
					printInfo(out, info)
				}
				return nil
			}

			e, err := s.catalog.Get(ctx, args[0])
			if errors.Is(err, catalog.ErrNotFound) {
				return amerrors.New(amerrors.ErrCodeDirectoryUnavailable,
					fmt.Sprintf("index %s does not exist under %s", args[0], a.cfg.Index.Root), err)
			}
			if err != nil {
				return err
			}
			m, err := s.provider.Get(args[0])
			if err != nil {
				return err
			}
			n, err := m.Count(ctx, query.All())
			if err != nil {
				return err
			}

			info := infoFromEntry(e)
			info.Analyzer = m.Analyzer().Name()
			info.Documents = &n
			if format == "json" {
				return out.JSON(info)
			}
			printInfo(out, info)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func printInfo(out *output.Writer, info indexInfo) {
	out.Statusf("📚", "%s", info.Name)
	if info.Analyzer != "" {
		out.KeyValue("analyzer", info.Analyzer)
	}
	if info.Documents != nil {
		out.KeyValue("documents", *info.Documents)
	}
	out.KeyValue("created", info.CreatedAt.Format(time.RFC3339))
	if info.LastCommit != nil {
		out.KeyValue("last commit", info.LastCommit.Format(time.RFC3339))
	}
	out.KeyValue("commits", info.Commits)
	out.KeyValue("inserted", info.Inserted)
	out.KeyValue("deleted", info.Deleted)
}
