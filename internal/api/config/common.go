package config

// Config 配置主体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Elastic  ElasticConfig  `mapstructure:"elastic"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Push     PushConfig     `mapstructure:"push"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Logstash LogstashConfig `mapstructure:"logstash"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 员工目录数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 消息文档库配置
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// MinIOConfig 附件存储配置
type MinIOConfig struct {
	InternalEndpoint string `mapstructure:"internal_endpoint"`
	ExternalEndpoint string `mapstructure:"external_endpoint"`
	AccessKey        string `mapstructure:"access_key"`
	SecretKey        string `mapstructure:"secret_key"`
	Bucket           string `mapstructure:"bucket"`
	InternalUseSSL   bool   `mapstructure:"internal_use_ssl"`
}

// ElasticConfig 消息检索配置
type ElasticConfig struct {
	Address      string `mapstructure:"address"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	MessageIndex string `mapstructure:"message_index"`
}

// KafkaConfig 消息事件导出配置
type KafkaConfig struct {
	Brokers    []string   `mapstructure:"brokers"`
	Sasl       SaslConfig `mapstructure:"sasl"`
	EventTopic string     `mapstructure:"event_topic"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// PushConfig 离线推送网关配置
type PushConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// JWTConfig 令牌签发配置
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// ChatConfig 消息引擎的持久化常量
type ChatConfig struct {
	MessageMaxLength  int   `mapstructure:"message_max_length"`
	EditWindowMinutes int   `mapstructure:"edit_window_minutes"`
	DeleteWindowHours int   `mapstructure:"delete_window_hours"`
	MessagePageSize   int   `mapstructure:"message_page_size"`
	ConvPageSize      int   `mapstructure:"conv_page_size"`
	MaxGroupMembers   int   `mapstructure:"max_group_members"`
	MaxAttachmentSize int64 `mapstructure:"max_attachment_size"`
}

// applyChatDefaults 未配置时回落到产品约定的默认值
func applyChatDefaults(c *ChatConfig) {
	if c.MessageMaxLength == 0 {
		c.MessageMaxLength = 5000
	}
	if c.EditWindowMinutes == 0 {
		c.EditWindowMinutes = 15
	}
	if c.DeleteWindowHours == 0 {
		c.DeleteWindowHours = 1
	}
	if c.MessagePageSize == 0 {
		c.MessagePageSize = 50
	}
	if c.ConvPageSize == 0 {
		c.ConvPageSize = 20
	}
	if c.MaxGroupMembers == 0 {
		c.MaxGroupMembers = 256
	}
	if c.MaxAttachmentSize == 0 {
		c.MaxAttachmentSize = 10 << 20
	}
}
