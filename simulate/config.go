package simulate

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config simulate.yaml 配置结构
type Config struct {
	// TelnetListen Telnet 监听地址，为空则不启动
	TelnetListen string `mapstructure:"telnet_listen"`
	// SSHListen SSH 监听地址，为空则不启动
	SSHListen string `mapstructure:"ssh_listen"`
	// HostKeyFile 持久化的 RSA host key，为空时每次启动生成临时密钥
	HostKeyFile string `mapstructure:"host_key_file"`
	// DataDir 命令输出目录：<data_dir>/<hostname>/<command>.txt，优先于内置输出
	DataDir     string       `mapstructure:"data_dir"`
	IdleSeconds int          `mapstructure:"idle_seconds"`
	MaxConn     int          `mapstructure:"max_conn"`
	Device      DeviceConfig `mapstructure:"device"`
}

// DeviceConfig 模拟设备
type DeviceConfig struct {
	Hostname string `mapstructure:"hostname"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Secret enable secret，为空时 enable 不要求口令
	Secret string `mapstructure:"secret"`
	// AskUsername 为 false 时 Telnet 只校验线路口令
	AskUsername bool `mapstructure:"ask_username"`
	// Switch 交换机支持 show interfaces status
	Switch bool   `mapstructure:"switch"`
	Banner string `mapstructure:"banner"`
}

// DefaultConfig 默认配置，监听本机随机端口
func DefaultConfig() Config {
	return Config{
		TelnetListen: "127.0.0.1:0",
		SSHListen:    "127.0.0.1:0",
		MaxConn:      16,
		Device: DeviceConfig{
			Hostname:    "R1",
			Username:    "admin",
			Password:    "cisco",
			Secret:      "s3cret",
			AskUsername: true,
		},
	}
}

// LoadConfig 读取 simulate/simulate.yaml
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	def := DefaultConfig()
	v.SetDefault("telnet_listen", "127.0.0.1:2323")
	v.SetDefault("ssh_listen", "127.0.0.1:2222")
	v.SetDefault("max_conn", def.MaxConn)
	v.SetDefault("device.hostname", def.Device.Hostname)
	v.SetDefault("device.username", def.Device.Username)
	v.SetDefault("device.password", def.Device.Password)
	v.SetDefault("device.secret", def.Device.Secret)
	v.SetDefault("device.ask_username", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read simulate config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal simulate config: %w", err)
	}
	if cfg.TelnetListen == "" && cfg.SSHListen == "" {
		return nil, fmt.Errorf("simulate config enables neither telnet nor ssh")
	}
	return &cfg, nil
}
