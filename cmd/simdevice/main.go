package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sshcollectorpro/drconf/internal/config"
	"github.com/sshcollectorpro/drconf/pkg/logger"
	"github.com/sshcollectorpro/drconf/simulate"
)

var (
	configPath    string
	simConfigPath string
	telnetListen  string
	sshListen     string
)

var rootCmd = &cobra.Command{
	Use:   "simdevice",
	Short: "Simulated Cisco IOS device for exercising drconf",
	Long: `simdevice serves a single simulated IOS device over Telnet and SSH.
Device settings come from simulate.yaml; when that file is missing the built-in
device (R1, admin/cisco, enable secret s3cret) is used.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "drconf config file, for log and simulate sections")
	rootCmd.Flags().StringVarP(&simConfigPath, "sim-config", "s", "", "simulate.yaml, overrides simulate.config_file")
	rootCmd.Flags().StringVar(&telnetListen, "telnet", "", "telnet listen address, \"-\" disables telnet")
	rootCmd.Flags().StringVar(&sshListen, "ssh", "", "ssh listen address, \"-\" disables ssh")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Logger()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	simCfg, err := loadSimConfig(cmd, cfg)
	if err != nil {
		return err
	}

	srv, err := simulate.Start(*simCfg)
	if err != nil {
		return err
	}
	defer srv.Stop()
	fmt.Printf("simulated device %s: telnet %q, ssh %q\n", srv.Device().Hostname(), srv.TelnetAddr(), srv.SSHAddr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("Simulate: shutting down")
	return nil
}

// loadSimConfig simulate.yaml 优先，缺失时使用内置设备与主配置中的监听地址
func loadSimConfig(cmd *cobra.Command, cfg *config.Config) (*simulate.Config, error) {
	path := cfg.Simulate.ConfigFile
	if cmd.Flags().Changed("sim-config") {
		path = simConfigPath
	}

	var simCfg *simulate.Config
	if _, statErr := os.Stat(path); statErr == nil {
		c, err := simulate.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		simCfg = c
	} else if cmd.Flags().Changed("sim-config") {
		return nil, fmt.Errorf("simulate config %s: %w", path, statErr)
	} else {
		logger.Warnf("Simulate: %s not found, using built-in device", path)
		def := simulate.DefaultConfig()
		def.TelnetListen = cfg.Simulate.TelnetListen
		def.SSHListen = cfg.Simulate.SSHListen
		simCfg = &def
	}

	if cmd.Flags().Changed("telnet") {
		simCfg.TelnetListen = listenFlag(telnetListen)
	}
	if cmd.Flags().Changed("ssh") {
		simCfg.SSHListen = listenFlag(sshListen)
	}
	if simCfg.TelnetListen == "" && simCfg.SSHListen == "" {
		return nil, errors.New("both telnet and ssh are disabled")
	}
	return simCfg, nil
}

func listenFlag(v string) string {
	if v == "-" {
		return ""
	}
	return v
}
