package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type NodeConfig struct {
	Role         string `toml:"role"`
	Organization string `toml:"organization"`
	Topic        string `toml:"topic"`
}

type MQTTConfig struct {
	Broker   string `toml:"broker"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type LogConfig struct {
	Path  string `toml:"log_path"`
	File  string `toml:"log_file"`
	Level string `toml:"log_level"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	DB       string `toml:"db"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ServerConfig struct {
	HttpPort int `toml:"http_port"`
}

type WebhookConfig struct {
	WarningWebhook string `toml:"warning_webhook"`
}

type Config struct {
	Node    NodeConfig    `toml:"node"`
	MQTT    MQTTConfig    `toml:"mqtt"`
	Log     LogConfig     `toml:"log"`
	DB      DBConfig      `toml:"database"`
	Server  ServerConfig  `toml:"server"`
	Webhook WebhookConfig `toml:"webhook"`
}

func LoadConfig() *Config {
	var config Config
	data, err := toml.DecodeFile("./config.toml", &config)
	if err != nil {
		fmt.Println(data, err)
	}
	return &config
}
