package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/sshcollectorpro/drconf/addone/operation/platforms/cisco_ios"
	"github.com/sshcollectorpro/drconf/internal/config"
	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/internal/service"
	"github.com/sshcollectorpro/drconf/pkg/logger"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
	"github.com/sshcollectorpro/drconf/pkg/transport"
)

// errInterrupted 操作员中断（Ctrl-C 或 SIGTERM），进程以 1 退出
var errInterrupted = errors.New("interrupted")

var (
	configPath  string
	routersPath string
	opName      string
	modeName    string
	protoName   string
	workers     int
)

var rootCmd = &cobra.Command{
	Use:   "drconf",
	Short: "Batch configuration tool for Cisco IOS devices over Telnet/SSH",
	Long: `drconf reads a routers file and runs one operation on every listed device:
secret change, health check or system audit.

Without --op an interactive menu is shown. With --op the run is non-interactive
and credentials come from DRCONF_USERNAME, DRCONF_PASSWORD, DRCONF_SECRET and
DRCONF_NEW_SECRET.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default configs/config.yaml)")
	rootCmd.Flags().StringVarP(&routersPath, "routers", "r", "", "routers file, overrides batch.routers_file")
	rootCmd.Flags().StringVarP(&opName, "op", "o", "", "run one operation non-interactively: secret_change | health_check | system_audit")
	rootCmd.Flags().StringVarP(&modeName, "mode", "m", "", "automated | manual, overrides batch.mode")
	rootCmd.Flags().StringVarP(&protoName, "protocol", "p", "", "telnet | ssh, overrides session.protocol")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel sessions in automated mode, overrides batch.workers")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInterrupted) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Logger()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	go watchConfig(ctx, cfg)

	if opName != "" {
		kind, err := model.ParseOperationKind(opName)
		if err != nil {
			return err
		}
		return app.runOnce(ctx, kind)
	}
	err = app.interactive(ctx)
	switch {
	case ctx.Err() != nil:
		return errInterrupted
	case errors.Is(err, errQuit):
		return nil
	}
	return err
}

// applyFlags 命令行参数覆盖配置文件
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("routers") {
		cfg.Batch.RoutersFile = routersPath
	}
	if cmd.Flags().Changed("mode") {
		cfg.Batch.Mode = string(service.ParseMode(modeName))
	}
	if cmd.Flags().Changed("protocol") {
		cfg.Session.Protocol = protoName
	}
	if cmd.Flags().Changed("workers") {
		cfg.Batch.Workers = workers
	}
}

// app 组装好的批量执行环境
type app struct {
	cfg    *config.Config
	runner *service.BatchRunner
	proto  transport.Protocol
	ports  map[transport.Protocol]int
}

func newApp(cfg *config.Config) (*app, error) {
	prompts, err := prompt.WithOverrides(cfg.Session.Prompts)
	if err != nil {
		return nil, fmt.Errorf("invalid session.prompts: %w", err)
	}
	proto, err := transport.ParseProtocol(cfg.Session.Protocol)
	if err != nil {
		return nil, err
	}

	opts := transport.Options{
		ConnectTimeout: cfg.Session.ConnectTimeout,
		KeepAlive:      cfg.Session.KeepAliveInterval,
		UseAgent:       cfg.Session.SSHAgent,
		Algorithms: transport.Algorithms{
			KeyExchanges:      cfg.Session.Algorithms.KeyExchanges,
			Ciphers:           cfg.Session.Algorithms.Ciphers,
			MACs:              cfg.Session.Algorithms.MACs,
			HostKeyAlgorithms: cfg.Session.Algorithms.HostKeyAlgorithms,
		},
	}
	if cfg.Log.Transcript {
		opts.Transcript = logger.TranscriptWriter(logger.WithField("component", "expect"))
	}

	auth := service.NewAuthenticator(transport.NewDialer(opts), service.SessionOptions{
		Prompts:           prompts,
		ExpectTimeout:     cfg.Session.ExpectTimeout,
		PasswordGrace:     cfg.Session.PasswordGrace,
		CommandTimeout:    cfg.Session.CommandTimeout,
		DisablePagingCmds: cfg.Session.DisablePagingCmds,
		OutputLines:       cfg.Log.OutputLines,
	})

	return &app{
		cfg:    cfg,
		runner: service.NewBatchRunner(auth, service.NewDispatcher(cfg.Session.Platform)),
		proto:  proto,
		ports: map[transport.Protocol]int{
			transport.Telnet: cfg.Session.TelnetPort,
			transport.SSH:    cfg.Session.SSHPort,
		},
	}, nil
}

func (a *app) options(kind model.OperationKind, mode service.Mode) service.BatchOptions {
	return service.BatchOptions{
		Kind:     kind,
		Mode:     mode,
		Workers:  a.cfg.Batch.Workers,
		Protocol: a.proto,
		Ports:    a.ports,
	}
}

// runOnce 非交互执行，只支持自动模式
func (a *app) runOnce(ctx context.Context, kind model.OperationKind) error {
	if service.ParseMode(a.cfg.Batch.Mode) == service.ModeManual {
		return errors.New("manual mode needs the interactive menu, run without --op")
	}
	src, err := service.OpenFileSource(a.cfg.Batch.RoutersFile)
	if err != nil {
		return err
	}
	defer src.Close()

	opts := a.options(kind, service.ModeAutomated)
	opts.Credentials = config.EnvCredentials()
	report, err := a.runner.Run(ctx, src, opts)
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	if report.Cancelled {
		return errInterrupted
	}
	if _, failed := report.Counts(); failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(report.Results))
	}
	return nil
}

// interactive 菜单循环，直到选择退出或被中断
func (a *app) interactive(ctx context.Context) error {
	con, err := newConsole(os.Stdout)
	if err != nil {
		return err
	}
	defer con.Close()
	// SIGTERM 时解除阻塞中的 Readline
	stop := context.AfterFunc(ctx, func() { _ = con.Close() })
	defer stop()

	src, err := service.OpenFileSource(a.cfg.Batch.RoutersFile)
	if err != nil {
		return err
	}
	defer src.Close()
	logger.Infof("Routers file: %s", src.Path())

	for {
		kind, err := con.menu()
		if err != nil {
			return err
		}

		mode, err := con.mode(service.ParseMode(a.cfg.Batch.Mode))
		if err != nil {
			return err
		}
		opts := a.options(kind, mode)
		if mode == service.ModeManual {
			opts.Prompter = con
		} else {
			fmt.Fprintln(con.out, "Enter the credentials shared by all routers")
			if opts.Credentials, err = con.credentials(kind); err != nil {
				return err
			}
		}
		opts.OnResult = con.progress

		report, err := a.runner.Run(ctx, src, opts)
		if err != nil {
			if ctx.Err() != nil {
				return errInterrupted
			}
			fmt.Fprintf(con.out, "%s not started: %v\n\n", kind.Title(), err)
			continue
		}
		printReport(con.out, report)
		if report.Cancelled {
			if ctx.Err() != nil || con.interrupted {
				return errInterrupted
			}
			// 手动模式下操作员选择 quit，回到菜单
			continue
		}
	}
}
