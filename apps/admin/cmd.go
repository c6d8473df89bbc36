package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/classboard/apps/shared"
	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/access"
	"github.com/trezcool/classboard/core/work"
	exportsvc "github.com/trezcool/classboard/services/export"
	remotedb "github.com/trezcool/classboard/storage/remote"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	openBoardFunc    = shared.Open       // mockable
	migrateFunc      = runMigrations     // mockable
	nowFunc          = time.Now          // mockable

	errHelp             = errors.New("help provided")
	errRemoteNotEnabled = errors.New("remote storage is not configured: set REMOTE_URL and REMOTE_TOKEN")
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer
}

func newCommandLine(conf *core.Config, logger core.Logger, out io.Writer) *commandLine {
	return &commandLine{conf: conf, logger: logger, out: out}
}

// run executes the command named in args. args[0] is the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Class board administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(cli.migrateCmd(), cli.exportCmd(), cli.checkKeyCmd())
	return root
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run remote schema migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			if !cli.conf.RemoteEnabled() {
				return errRemoteNotEnabled
			}
			return migrateFunc(cmd.Context(), cli.conf.Remote, args[0], args[1:]...)
		},
	}
}

func runMigrations(ctx context.Context, conf core.RemoteConfig, command string, args ...string) error {
	db, err := remotedb.Open(ctx, conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return remotedb.RunMigrations(db, command, args...)
}

func (cli *commandLine) exportCmd() *cobra.Command {
	var (
		out    string
		filter work.Filter
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the work items to an xlsx workbook, one sheet per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = exportsvc.Filename(nowFunc())
			}
			filter.Clean()
			n, err := cli.export(cmd.Context(), out, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "exported %d work items to %s\n", n, out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output file (default classboard_<timestamp>.xlsx)")
	f.StringVar(&filter.Subject, "subject", work.All, "subject to export")
	f.StringVar(&filter.Type, "type", work.All, "Homework or Classwork")
	f.StringVar(&filter.Date, "date", "", "exact date, YYYY-MM-DD")
	f.StringVar(&filter.Month, "month", "", "month of the date, MM")
	f.StringVar(&filter.Year, "year", "", "year of the date, YYYY")
	f.StringVar(&filter.Search, "search", "", "free text search")
	f.StringVar((*string)(&filter.Sort), "sort", string(work.SortNewest), "Newest or Oldest")
	return cmd
}

func (cli *commandLine) export(ctx context.Context, path string, filter work.Filter) (int, error) {
	board, err := openBoardFunc(ctx, cli.conf, cli.logger)
	if err != nil {
		return 0, err
	}
	defer func() { _ = board.Close() }()

	groups, err := board.WorkSvc.QueryGrouped(ctx, filter)
	if err != nil {
		return 0, err
	}
	completed, err := board.WorkSvc.CompletedIDs(ctx)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err = exportsvc.Write(f, groups, completed); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err = f.Close(); err != nil {
		return 0, err
	}

	var n int
	for _, g := range groups {
		n += len(g.Items)
	}
	return n, nil
}

func (cli *commandLine) checkKeyCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "check-key",
		Short: "Tell which role an access key opens. The key is prompted next.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			required := access.Role(role)
			if required != "" && !required.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			fmt.Fprint(cli.out, "Enter access key:")
			key, err := readPasswordFunc(int(os.Stdin.Fd()))
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if len(key) == 0 {
				_ = cmd.Usage()
				return errHelp
			}

			grant, err := access.NewGate(cli.conf.Access).Resolve(string(key), required)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%s -> %s\n", grant.Role, grant.Redirect)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "require the key to open this role (student or teacher)")
	return cmd
}
