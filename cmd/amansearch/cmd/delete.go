package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/output"
	"github.com/Aman-CERP/amansearch/pkg/index"
)

func newDeleteCmd(a *app) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "delete <index> [id...]",
		Short: "Delete documents by id or by query",
		Long: `Delete documents by id, or every document matching the query flags
when no id is given. At least one id or query flag is required.`,
		Example: `  amansearch delete catalog kettle-1 kettle-2
  amansearch delete catalog --range price=double:..5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args[1:]
			byQuery := len(opts.fields)+len(opts.filters)+len(opts.phrases)+len(opts.ranges) > 0 || opts.text != ""
			if len(ids) == 0 && !byQuery {
				return amerrors.ValidationError("give document ids or query flags to delete", nil)
			}
			if len(ids) > 0 && byQuery {
				return amerrors.ValidationError("give either document ids or query flags, not both", nil)
			}

			return a.withIndex(args[0], func(m *index.Manager) error {
				var (
					res index.Result
					err error
				)
				if byQuery {
					def, berr := opts.build(m, false)
					if berr != nil {
						return berr
					}
					res, err = m.DeleteByQuery(cmd.Context(), def)
				} else {
					res, err = m.DeleteIDs(cmd.Context(), ids...)
				}
				if err != nil {
					return err
				}
				return reportDelete(cmd, m.Name(), res)
			})
		},
	}

	opts.register(cmd, false)
	return cmd
}

func reportDelete(cmd *cobra.Command, name string, res index.Result) error {
	slog.Info("cli_delete", slog.String("index", name), slog.Int("deleted", res.Count))

	out := output.New(cmd.OutOrStdout())
	switch {
	case !res.Succeeded:
		return amerrors.New(amerrors.ErrCodeEngineFailure,
			fmt.Sprintf("delete from %s stopped after %d documents: %s", name, res.Count, res.Message), nil)
	case res.Incomplete:
		out.Warningf("delete from %s cancelled after %d documents", name, res.Count)
	default:
		out.Successf("deleted %d documents from %s", res.Count, name)
	}
	return nil
}
