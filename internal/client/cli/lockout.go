package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrewards/internal/server/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func (a *app) lockoutCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "lockout <username-or-email>",
		Short: "Show or clear the failed login counter of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.RedisAddr == "" {
				return errors.New("redis is not configured, login throttling is off")
			}
			client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer client.Close()
			l := ratelimit.NewLoginLimiter(client, cfg.LoginMaxAttempts, cfg.LoginWindow)

			if clear {
				if err := l.Reset(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "cleared failed logins for %s\n", args[0])
				return nil
			}

			n, err := l.Attempts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "failed logins: %d of %d\n", n, cfg.LoginMaxAttempts)
			fmt.Fprintf(a.out, "locked:        %t\n", n >= cfg.LoginMaxAttempts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "reset the counter")
	return cmd
}
