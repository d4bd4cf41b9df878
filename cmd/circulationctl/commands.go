package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/emzola/bibliotheca-circulation/config"
	"github.com/emzola/bibliotheca-circulation/internal/bootstrap"
	"github.com/emzola/bibliotheca-circulation/internal/jsonlog"
	"github.com/emzola/bibliotheca-circulation/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// env carries what every subcommand needs once the config is loaded.
type env struct {
	cfg    config.Config
	logger *jsonlog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "circulationctl",
		Short:         "Run circulation maintenance tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Decode()
			if err != nil {
				return err
			}
			level, err := jsonlog.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = jsonlog.New(cmd.ErrOrStderr(), level)
			return nil
		},
	}
	root.AddCommand(
		newSweepCmd(e),
		newFineCmd(e),
		newSeedCmd(e),
		newHashPasswordCmd(),
	)
	return root
}

// withService opens the store, builds the service and waits for its
// background notifications before returning.
func (e *env) withService(ctx context.Context, fn func(svc service.Service) error) error {
	repo, closeRepo, err := bootstrap.Repository(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer closeRepo()
	var wg sync.WaitGroup
	defer wg.Wait()
	svc, err := bootstrap.Service(ctx, e.cfg, &wg, e.logger, repo)
	if err != nil {
		return err
	}
	return fn(svc)
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func newSweepCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire lapsed reservations and send pending notices once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withService(cmd.Context(), func(svc service.Service) error {
				report, err := svc.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newFineCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "fine <loan-id>",
		Short: "Show the standing and fine of a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid loan id %q: %w", args[0], err)
			}
			return e.withService(cmd.Context(), func(svc service.Service) error {
				statement, err := svc.GetLoan(cmd.Context(), loanID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), statement)
			})
		},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load books and users from a YAML catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The seed file is loaded explicitly below.
			e.cfg.Lending.SeedFile = ""
			return e.withService(cmd.Context(), func(svc service.Service) error {
				result, err := bootstrap.SeedFile(cmd.Context(), svc, args[0], e.logger)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash to use as basic_auth.password_hash",
		Args:  cobra.MaximumNArgs(1),
		// No config is needed to hash a password.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var password []byte
			if len(args) == 1 {
				password = []byte(args[0])
			} else {
				b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 72))
				if err != nil {
					return err
				}
				password = trimNewline(b)
			}
			if len(password) == 0 {
				return errors.New("password must not be empty")
			}
			hash, err := bcrypt.GenerateFromPassword(password, cost)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
