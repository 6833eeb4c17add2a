package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/gophrewards/internal/netx"

	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophrewards/internal/server/services"
	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply ledger schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			m, err := repomanager.NewSQLRepositoryManager(cfg.WordPressTablePrefix)
			if err != nil {
				return err
			}
			ledger, err := openLedger(cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer ledger.Close()

			if err := m.RunMigrations(cmd.Context(), ledger); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(a.out, "ledger schema is up to date")
			return nil
		},
	}
}

func (a *app) pointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Manage point balances",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "credit <account-id> <points>",
		Short: "Add points to a WordPress account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("account id: %w", err)
			}
			points, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("points: %w", err)
			}

			ledger, wordpress, m, err := a.stores()
			if err != nil {
				return err
			}
			defer ledger.Close()
			defer wordpress.Close()

			la, err := services.NewLoyaltyService(ledger, wordpress, m, nil).Credit(cmd.Context(), accountID, points)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "account %d: balance %d, lifetime %d\n", la.AccountID, la.Balance, la.LifetimePoints)
			return nil
		},
	})
	return cmd
}

func (a *app) rewardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewards",
		Short: "Manage the reward catalogue",
	}

	var (
		reward   models.Reward
		inactive bool
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a reward",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.rewardService()
			if err != nil {
				return err
			}
			defer closeFn()

			reward.Active = !inactive
			out, err := svc.Create(cmd.Context(), &reward)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "reward %d created\n", out.ID)
			return nil
		},
	}
	add.Flags().StringVar(&reward.Name, "name", "", "display name")
	add.Flags().StringVar(&reward.Description, "description", "", "description")
	add.Flags().Int64Var(&reward.CostPoints, "cost", 0, "cost in points")
	add.Flags().StringVar(&reward.ImageKey, "image-key", "", "S3 object key of the image")
	add.Flags().BoolVar(&inactive, "inactive", false, "create the reward disabled")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("cost")

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List rewards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.rewardService()
			if err != nil {
				return err
			}
			defer closeFn()

			rewards, err := svc.List(cmd.Context(), !all)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOST\tACTIVE")
			for _, r := range rewards {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%t\n", r.ID, r.Name, r.CostPoints, r.Active)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include inactive rewards")

	cmd.AddCommand(add, list, a.uploadImageCmd(), a.setActiveCmd("enable", true), a.setActiveCmd("disable", false))
	return cmd
}

func (a *app) uploadImageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload-image <image-key> <file>",
		Short: "Upload a reward image to S3 under image-key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			st, err := f.Stat()
			if err != nil {
				return err
			}
			contentType := mime.TypeByExtension(filepath.Ext(args[1]))
			if contentType == "" {
				contentType = "application/octet-stream"
			}

			svc, closeFn, err := a.rewardService()
			if err != nil {
				return err
			}
			defer closeFn()

			url, err := svc.ImageUploadURL(cmd.Context(), args[0], contentType)
			if err != nil {
				return err
			}
			if err := netx.UploadToPresignedURL(cmd.Context(), nil, url, contentType, f, st.Size()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "uploaded %s (%d bytes, %s)\n", args[0], st.Size(), contentType)
			return nil
		},
	}
}

func (a *app) setActiveCmd(name string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <reward-id>",
		Short: name + " a reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("reward id: %w", err)
			}
			svc, closeFn, err := a.rewardService()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.SetActive(cmd.Context(), id, active); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "reward %d %sd\n", id, name)
			return nil
		},
	}
}

func (a *app) rewardService() (*services.RewardService, func(), error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	m, err := repomanager.NewSQLRepositoryManager(cfg.WordPressTablePrefix)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := openLedger(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	return services.NewRewardService(ledger, m, cfg, nil), func() { ledger.Close() }, nil
}
