package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for purge
	dryRunPurge bool
	yesConfirm  bool
	// Flags for reindex
	indexOnly bool
)

// withRuntime runs fn against a freshly opened core.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	cfg, l, err := bootstrap()
	if err != nil {
		return err
	}
	defer l.Sync()

	rt, err := newRuntime(cmd.Context(), cfg, l)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(cmd.Context(), rt)
}

func parseTarget(args []string) (reconcile.Target, error) {
	kind, ok := reconcile.ParseTargetKind(args[0])
	if !ok {
		return reconcile.Target{}, fmt.Errorf("unknown kind %q, want transaction, node, acl or aclchangeset", args[0])
	}
	id, err := utils.ParseID(args[1])
	if err != nil {
		return reconcile.Target{}, err
	}
	return reconcile.Target{Kind: kind, ID: id}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var reindexCmd = &cobra.Command{
	Use:   "reindex <transaction|node|acl|aclchangeset> <id>",
	Short: "Reindex one entity out of band",
	Long: `Rewrites every document derived from the entity, replacing stored documents
and error markers. With --index-only an ACL is written without dropping it first.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseTarget(args)
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			var res reconcile.MaintenanceResult
			if indexOnly && target.Kind == reconcile.TargetAcl {
				res, err = rt.core.IndexAclID(ctx, target.ID)
			} else {
				res, err = rt.core.Reindex(ctx, target)
			}
			if perr := printJSON(res); perr != nil {
				return perr
			}
			return err
		})
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge <transaction|node|acl|aclchangeset> <id>",
	Short: "Remove every document derived from one entity",
	Long: `Plans the purge, prints the documents it would remove and deletes them after
confirmation.

Examples:
  # Show what would be removed
  purge transaction 42 --dry-run

  # Purge with auto-confirm (non-interactive)
  purge node 1001 --yes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseTarget(args)
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			plan, err := rt.core.PlanPurge(ctx, target)
			if err != nil {
				return err
			}
			printPurgePlan(rt.log, plan)

			if dryRunPurge {
				rt.log.Info("Dry-run mode: No changes were made.")
				return nil
			}
			if len(plan.Keys) == 0 {
				rt.log.Info("Nothing to purge.")
				return nil
			}
			if !confirmDestructiveAction() {
				rt.log.Warn("Operation cancelled by user. No changes were made.")
				return nil
			}

			res, err := rt.core.ApplyPurge(ctx, plan, reconcile.PurgeOptions{Confirmed: true})
			if err != nil {
				return err
			}
			rt.log.Info("Purge complete", zap.Int("deleted", res.Outcome.Deleted), zap.Int64("generation", res.Generation))
			return nil
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reindex every node with an error marker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			res, err := rt.core.Retry(ctx)
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var expandCmd = &cobra.Command{
	Use:   "expand <ids>",
	Short: "Grow the DB_ID_RANGE of the local shard once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || delta <= 0 {
			return fmt.Errorf("invalid expansion %q", args[0])
		}
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			end, err := rt.core.Expand(ctx, rt.core.Instance(), delta)
			if err != nil {
				return err
			}
			rt.log.Info("Range expanded", zap.Int64("end", end))
			return nil
		})
	},
}

var rangeCheckCmd = &cobra.Command{
	Use:   "rangecheck",
	Short: "Report the density of the local DB_ID_RANGE shard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			rc, err := rt.core.RangeCheck(ctx)
			if err != nil {
				return err
			}
			return printJSON(rc)
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print watermarks, document counts and error nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			s, err := rt.core.Summary(ctx)
			if err != nil {
				return err
			}
			return printJSON(s)
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <node|tx|acl|acltx> <id>",
	Short: "Compare one entity in the repository and the index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := utils.ParseID(args[1])
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			var r any
			switch args[0] {
			case "node":
				r, err = rt.core.NodeReport(ctx, id)
			case "tx":
				r, err = rt.core.TxReport(ctx, id)
			case "acl":
				r, err = rt.core.AclReport(ctx, id)
			case "acltx":
				r, err = rt.core.AclTxReport(ctx, id)
			default:
				return fmt.Errorf("unknown report %q", args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(r)
		})
	},
}

func init() {
	reindexCmd.Flags().BoolVar(&indexOnly, "index-only", false, "Index an ACL without dropping its document first")
	purgeCmd.Flags().BoolVar(&dryRunPurge, "dry-run", false, "Print the plan without deleting")
	purgeCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	RootCmd.AddCommand(reindexCmd, purgeCmd, retryCmd, expandCmd, rangeCheckCmd, summaryCmd, reportCmd)
}

// printPurgePlan logs the documents a purge removes, showing at most five keys.
func printPurgePlan(l *zap.Logger, plan reconcile.PurgePlan) {
	l.Info("Purge plan",
		zap.String("kind", string(plan.Target.Kind)),
		zap.Int64("id", plan.Target.ID),
		zap.Int("documents", len(plan.Keys)),
		zap.Int("content_nodes", len(plan.NodeIDs)),
	)
	maxShow := min(5, len(plan.Keys))
	for _, key := range plan.Keys[:maxShow] {
		l.Info("Planned delete", zap.String("key", key))
	}
	if len(plan.Keys) > maxShow {
		l.Info("Additional deletes not shown", zap.Int("count", len(plan.Keys)-maxShow))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
