package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/craftsmart/escrow-service/internal/adapters/security"
	"github.com/craftsmart/escrow-service/internal/app/bootstrap"
)

// RuntimeFactory builds the service runtime a command operates on.
type RuntimeFactory func(ctx context.Context, configPath string) (*bootstrap.Runtime, error)

// NewRootCommand assembles escrowctl. newRuntime is swapped in tests.
func NewRootCommand(newRuntime RuntimeFactory) *cobra.Command {
	if newRuntime == nil {
		newRuntime = bootstrap.NewRuntime
	}
	var configPath string

	root := &cobra.Command{
		Use:           "escrowctl",
		Short:         "Operate the CraftSmart escrow service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/default.yaml", "path to the service config file")

	root.AddCommand(
		migrateCmd(&configPath),
		reconcileCmd(&configPath, newRuntime),
		outboxCmd(&configPath, newRuntime),
		tokenCmd(&configPath, newRuntime),
		hashKeyCmd(),
	)
	return root
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := bootstrap.Migrate(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"applied": names})
		},
	}
}

func reconcileCmd(configPath *string, newRuntime RuntimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over stale charges and payouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime, err := newRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer runtime.Close(cmd.Context())

			result, err := runtime.Service().ReconcileOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func outboxCmd(configPath *string, newRuntime RuntimeFactory) *cobra.Command {
	outbox := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and drive the transactional outbox",
	}
	var maxBatches int
	flush := &cobra.Command{
		Use:   "flush",
		Short: "Publish pending outbox records until none are left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime, err := newRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer runtime.Close(cmd.Context())

			total := map[string]int{"batches": 0, "claimed": 0, "published": 0, "failed": 0, "dead_lettered": 0}
			for total["batches"] < maxBatches {
				result, err := runtime.Outbox().ProcessOnce(cmd.Context())
				if err != nil {
					return fmt.Errorf("outbox flush: %w", err)
				}
				total["batches"]++
				total["claimed"] += result.Claimed
				total["published"] += result.Published
				total["failed"] += result.Failed
				total["dead_lettered"] += result.DeadLettered
				if result.Claimed == 0 || result.Published == 0 {
					break
				}
			}
			return writeJSON(cmd.OutOrStdout(), total)
		},
	}
	flush.Flags().IntVar(&maxBatches, "max-batches", 50, "stop after this many relay passes")
	outbox.AddCommand(flush)
	return outbox
}

func tokenCmd(configPath *string, newRuntime RuntimeFactory) *cobra.Command {
	var (
		subject string
		role    string
		name    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token with the configured signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime, err := newRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer runtime.Close(cmd.Context())

			token, err := runtime.IssueToken(subject, role, name, ttl)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"access_token": token,
				"token_type":   "Bearer",
				"expires_in":   int(ttl.Seconds()),
			})
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "subject id")
	cmd.Flags().StringVar(&role, "role", "", "employer, craftsman or admin")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func hashKeyCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Hash an internal gRPC API key for INTERNAL_API_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := security.HashAPIKey(args[0], cost)
			if err != nil {
				return fmt.Errorf("hash key: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
