package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/logger"
)

// Config 应用配置结构
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Simulate SimulateConfig `mapstructure:"simulate"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	// OutputLines debug 日志中每条命令输出保留的首尾行数
	OutputLines int `mapstructure:"output_lines"`
	// Transcript 以 debug 级别记录 expect 引擎的完整收发
	Transcript bool `mapstructure:"transcript"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	// Protocol 默认协议：telnet | ssh
	Protocol   string `mapstructure:"protocol"`
	TelnetPort int    `mapstructure:"telnet_port"`
	SSHPort    int    `mapstructure:"ssh_port"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// ExpectTimeout 单次等待提示符
	ExpectTimeout time.Duration `mapstructure:"expect_timeout"`
	// PasswordGrace 登录时等待 Password: 的宽限时间，超时视为无需密码
	PasswordGrace time.Duration `mapstructure:"password_grace"`
	// CommandTimeout 单条命令等待结束提示符
	CommandTimeout    time.Duration `mapstructure:"command_timeout"`
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`

	// SSHAgent 允许使用 SSH_AUTH_SOCK 中的密钥
	SSHAgent bool `mapstructure:"ssh_agent"`
	// Prompts 按识别器名称覆盖内置提示符正则
	Prompts map[string]string `mapstructure:"prompts"`
	// DisablePagingCmds 会话就绪后依次发送，例如 terminal length 0
	DisablePagingCmds []string `mapstructure:"disable_paging_cmds"`
	// Platform 操作插件平台
	Platform string `mapstructure:"platform"`

	Algorithms SSHAlgorithmsConfig `mapstructure:"algorithms"`
}

// SSHAlgorithmsConfig 为空时使用内置兼容列表
type SSHAlgorithmsConfig struct {
	KeyExchanges      []string `mapstructure:"key_exchanges"`
	Ciphers           []string `mapstructure:"ciphers"`
	MACs              []string `mapstructure:"macs"`
	HostKeyAlgorithms []string `mapstructure:"host_key_algorithms"`
}

// BatchConfig 批量执行配置
type BatchConfig struct {
	RoutersFile string `mapstructure:"routers_file"`
	// Workers 自动模式并发数，<=1 顺序执行
	Workers int `mapstructure:"workers"`
	// Mode 默认模式：automated | manual
	Mode string `mapstructure:"mode"`
}

// SimulateConfig 设备模拟器配置
type SimulateConfig struct {
	ConfigFile   string `mapstructure:"config_file"`
	TelnetListen string `mapstructure:"telnet_listen"`
	SSHListen    string `mapstructure:"ssh_listen"`
}

// 环境变量前缀，如 DRCONF_SESSION_PROTOCOL
const EnvPrefix = "DRCONF"

// Load 加载配置文件；configPath 为空时按默认路径查找，找不到文件时使用默认值
func Load(configPath string) (*Config, error) {
	viper.Reset()
	viper.SetConfigType("yaml")

	// 设置默认值
	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("../configs")
		viper.AddConfigPath("../../configs")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// 未显式指定文件时允许缺省
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "console")
	viper.SetDefault("log.file_path", "./logs/drconf.log")
	viper.SetDefault("log.max_size", 50)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age", 30)
	viper.SetDefault("log.compress", false)
	viper.SetDefault("log.output_lines", 5)
	viper.SetDefault("log.transcript", false)

	viper.SetDefault("session.protocol", "telnet")
	viper.SetDefault("session.telnet_port", 23)
	viper.SetDefault("session.ssh_port", 22)
	viper.SetDefault("session.connect_timeout", 10*time.Second)
	viper.SetDefault("session.expect_timeout", 4*time.Second)
	viper.SetDefault("session.password_grace", 2*time.Second)
	viper.SetDefault("session.command_timeout", 10*time.Second)
	viper.SetDefault("session.keep_alive_interval", 30*time.Second)
	viper.SetDefault("session.ssh_agent", false)
	viper.SetDefault("session.platform", "cisco_ios")
	// 引擎默认不协商分页，需要时在配置中加入 terminal length 0
	viper.SetDefault("session.disable_paging_cmds", []string{})

	viper.SetDefault("batch.routers_file", "routers")
	viper.SetDefault("batch.workers", 1)
	viper.SetDefault("batch.mode", "automated")

	viper.SetDefault("simulate.config_file", "simulate/simulate.yaml")
	viper.SetDefault("simulate.telnet_listen", "127.0.0.1:2323")
	viper.SetDefault("simulate.ssh_listen", "127.0.0.1:2222")
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch strings.ToLower(c.Session.Protocol) {
	case "telnet", "ssh":
	default:
		return fmt.Errorf("session.protocol must be telnet or ssh, got %q", c.Session.Protocol)
	}
	switch strings.ToLower(c.Batch.Mode) {
	case "automated", "manual":
	default:
		return fmt.Errorf("batch.mode must be automated or manual, got %q", c.Batch.Mode)
	}
	if c.Session.ExpectTimeout <= 0 || c.Session.CommandTimeout <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}
	if c.Session.PasswordGrace < 0 {
		return fmt.Errorf("session.password_grace must not be negative")
	}
	if c.Batch.Workers < 1 {
		c.Batch.Workers = 1
	}
	return nil
}

// Logger 转换为日志初始化参数
func (c LogConfig) Logger() logger.Config {
	return logger.Config{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		FilePath:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// EnvCredentials 非交互运行时从 DRCONF_USERNAME、DRCONF_PASSWORD、DRCONF_SECRET、
// DRCONF_NEW_SECRET 读取凭据。凭据不进配置文件，也不会出现在 Config 中
func EnvCredentials() model.Credentials {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range []string{"username", "password", "secret", "new_secret"} {
		_ = v.BindEnv(key)
	}
	return model.Credentials{
		Username:  v.GetString("username"),
		Password:  v.GetString("password"),
		Secret:    v.GetString("secret"),
		NewSecret: v.GetString("new_secret"),
	}
}
