package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"cocinarte/internal/validation"

	"github.com/spf13/cobra"
)

type connectFunc func() (Operator, func() error, error)

func newRootCmd(connect connectFunc) *cobra.Command {
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operator tooling for Cocinarte bookings and payment holds",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Deadline for the whole command")

	// run connects, applies the deadline and prints the result as JSON
	run := func(cmd *cobra.Command, fn func(ctx context.Context, op Operator) (interface{}, error)) error {
		op, closeFn, err := connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		if closeFn != nil {
			defer closeFn()
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		out, err := fn(ctx, op)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	rootCmd.AddCommand(
		cancelHoldCmd(run),
		captureCmd(run),
		reconcileCmd(run),
		settleCmd(run),
		reindexCmd(run),
		grantAdminCmd(run),
		listAdminsCmd(run),
		validateCmd(),
	)
	return rootCmd
}

type runner func(cmd *cobra.Command, fn func(ctx context.Context, op Operator) (interface{}, error)) error

func cancelHoldCmd(run runner) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel-hold <payment-ref>",
		Short: "Release a hold and its seat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, op Operator) (interface{}, error) {
				return op.CancelHold(ctx, args[0], reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "abandoned", "Cancellation reason sent to the processor")
	return cmd
}

func captureCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "capture <payment-ref>",
		Short: "Capture an authorized hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, op Operator) (interface{}, error) {
				return op.Capture(ctx, args[0])
			})
		},
	}
}

func reconcileCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <payment-ref>",
		Short: "Bring a booking in line with the processor's view of its hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, op Operator) (interface{}, error) {
				return op.Reconcile(ctx, args[0])
			})
		},
	}
}

func settleCmd(run runner) *cobra.Command {
	var classID int64
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Capture or release every hold of a class depending on its minimum enrollment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if classID <= 0 {
				return fmt.Errorf("--class must be a positive class id")
			}
			return run(cmd, func(ctx context.Context, op Operator) (interface{}, error) {
				return op.SettleClass(ctx, classID)
			})
		},
	}
	cmd.Flags().Int64Var(&classID, "class", 0, "Class id")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func reindexCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the class search index from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, op Operator) (interface{}, error) {
				n, err := op.Reindex(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]int{"indexed": n}, nil
			})
		},
	}
}

func grantAdminCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin <email>",
		Short: "Add an e-mail to the admin allow-list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := mail.ParseAddress(args[0]); err != nil {
				return fmt.Errorf("invalid e-mail %q: %w", args[0], err)
			}
			return run(cmd, func(ctx context.Context, op Operator) (interface{}, error) {
				if err := op.GrantAdmin(ctx, args[0]); err != nil {
					return nil, err
				}
				return map[string]string{"granted": args[0]}, nil
			})
		},
	}
}

func listAdminsCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "Show the admin allow-list stored in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, op Operator) (interface{}, error) {
				return op.ListAdmins(ctx)
			})
		},
	}
}

// validateCmd needs no database; it only talks to a running API
func validateCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Smoke-test a running API against its HTTP contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := validation.NewContractValidator(baseURL, nil).ValidateAll(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(results); encErr != nil {
				return encErr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8081", "API base URL")
	return cmd
}
