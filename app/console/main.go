package main

import (
	"context"
	"fmt"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"syscall"
	"webknight/app/console/guard"
	"webknight/app/console/handlers"
	"webknight/app/console/inits"
	"webknight/app/console/platform"
	"webknight/app/console/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// console 持有命令执行期间创建的 App
type console struct {
	app *handlers.App
}

func (c *console) stop() {
	if c.app != nil {
		c.app.Stop()
	}
}

// run 命令结束后无论成功与否都要关闭守卫
func run(ctx context.Context, args []string) error {
	cmd, c := rootCmd()
	defer c.stop()

	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func rootCmd() (*cobra.Command, *console) {
	c := &console{}

	cmd := &cobra.Command{
		Use:           "webknight",
		Short:         "WebKnight admin console",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// 初始化配置
			cfg, err := inits.Config()
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}

			// 初始化日志
			l, err := inits.Logger(!cfg.IsProd())
			if err != nil {
				return fmt.Errorf("error initializing logger: %w", err)
			}
			l.Debug("logger initialized")

			client := platform.New(cfg.ServerEndpoint, cfg.Timeout, platform.NewFileSessionStore(cfg.SessionFile), l)
			g := guard.New(client, ui.NewRouter(cmd.ErrOrStderr()), ui.NewToast(cmd.ErrOrStderr()), l)

			c.app = handlers.NewApp(cfg, l, client, g, cmd.OutOrStdout())
			return c.app.Start(cmd.Context())
		},
	}

	appFn := func() *handlers.App { return c.app }
	cmd.AddCommand(
		signInCmd(appFn),
		signUpCmd(appFn),
		signOutCmd(appFn),
		whoAmICmd(appFn),
		refreshCmd(appFn),
		fetchCmd(appFn),
	)

	return cmd, c
}
