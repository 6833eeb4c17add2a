// Package cli implements loyaltyctl, the operator tool for gophrewards:
// offline hash inspection, ledger migrations, point credits, catalogue
// management and gRPC health checks.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophrewards/internal/server/config"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Seams for tests.
var (
	dialGRPC = func(addr string) (grpc.ClientConnInterface, io.Closer, error) {
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, err
		}
		return conn, conn, nil
	}
	openLedger    = repomanager.OpenLedger
	openWordPress = repomanager.OpenWordPress
)

const rpcTimeout = 10 * time.Second

// app carries global flags and lazily loaded settings for subcommands.
type app struct {
	configPath    string
	grpcAddr      string
	passwordStdin bool
	in            io.Reader
	out           io.Writer
	cfg           *config.Config
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.LoadFileConfig(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	return cfg, nil
}

// secret reads a password from stdin when --password-stdin is set and
// from the terminal otherwise.
func (a *app) secret(prompt string) (string, error) {
	var (
		s   string
		err error
	)
	if a.passwordStdin {
		s, err = readLine(a.in)
	} else {
		s, err = GetPassword(a.out, prompt)
	}
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errors.New("empty password")
	}
	return s, nil
}

// stores opens both databases. The caller closes them.
func (a *app) stores() (ledger, wordpress *sql.DB, m repomanager.RepositoryManager, err error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, nil, err
	}
	m, err = repomanager.NewSQLRepositoryManager(cfg.WordPressTablePrefix)
	if err != nil {
		return nil, nil, nil, err
	}
	if ledger, err = openLedger(cfg.DatabaseDSN); err != nil {
		return nil, nil, nil, err
	}
	if wordpress, err = openWordPress(cfg.WordPressDSN); err != nil {
		ledger.Close()
		return nil, nil, nil, err
	}
	return ledger, wordpress, m, nil
}

func (a *app) grpcTarget() (string, error) {
	if a.grpcAddr != "" {
		return a.grpcAddr, nil
	}
	cfg, err := a.config()
	if err != nil {
		return "", err
	}
	return cfg.EndpointAddrGRPC, nil
}

func (a *app) rpcContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), rpcTimeout)
}

// NewRootCmd builds the loyaltyctl command tree reading from in and
// writing to out.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}

	cmd := &cobra.Command{
		Use:   "loyaltyctl",
		Short: "Operate the gophrewards loyalty backend",
		Long: `loyaltyctl inspects and produces credential hashes, migrates the
ledger schema, credits points, manages the reward catalogue and talks to
a running server over gRPC.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(out)

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "server config file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&a.grpcAddr, "grpc-addr", "", "gRPC endpoint, defaults to the config value")
	cmd.PersistentFlags().BoolVar(&a.passwordStdin, "password-stdin", false, "read passwords from stdin instead of the terminal")

	cmd.AddCommand(
		a.hashCmd(),
		a.inspectCmd(),
		a.checkCmd(),
		a.migrateCmd(),
		a.pointsCmd(),
		a.rewardsCmd(),
		a.pingCmd(),
		a.balanceCmd(),
		a.lockoutCmd(),
	)
	return cmd
}
