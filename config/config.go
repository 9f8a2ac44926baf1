package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      Server      `yaml:"server"`
	Bot         Bot         `yaml:"bot"`
	LLM         LLM         `yaml:"llm"`
	Renderer    Renderer    `yaml:"renderer"`
	Fulfillment Fulfillment `yaml:"fulfillment"`
	Retry       Retry       `yaml:"retry"`
	Postgres    Postgres    `yaml:"postgres"`
	Minio       Minio       `yaml:"minio"`
	RabbitMQ    RabbitMQ    `yaml:"rabbitmq"`
	Email       Email       `yaml:"email"`
}

type Server struct {
	Port string `yaml:"port"`
}

type Bot struct {
	// comma-separated, same convention as the env-style config this replaced
	TriggerKeywords string `yaml:"triggerkeywords"`
}

type LLM struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"apikey"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeoutseconds"`
}

type Renderer struct {
	CanvasWidth  int    `yaml:"canvaswidth"`
	CanvasHeight int    `yaml:"canvasheight"`
	MinFontSize  int    `yaml:"minfontsize"`
	MaxFontSize  int    `yaml:"maxfontsize"`
	FontPath     string `yaml:"fontpath"`
}

type Fulfillment struct {
	Vendor  string `yaml:"vendor"` //teemill or printify
	BaseURL string `yaml:"baseurl"`
	APIKey  string `yaml:"apikey"`
	ShopID  string `yaml:"shopid"`
}

type Retry struct {
	MaxAttempts   int `yaml:"maxattempts"`
	BackoffMillis int `yaml:"backoffmillis"`
}

type Postgres struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	AutoCreate bool   `yaml:"autocreate"`
}

type Minio struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accesskey"`
	SecretKey string `yaml:"secretkey"`
	Bucket    string `yaml:"bucket"`
}

type RabbitMQ struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Queue    string `yaml:"queue"`
}

type Email struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"apikey"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
}

func InitConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType("yaml")

	v.SetDefault("server.port", ":8080")
	v.SetDefault("bot.triggerkeywords", "tshirt,t-shirt,shirt,merch")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.timeoutseconds", 12)
	v.SetDefault("renderer.canvaswidth", 4500)
	v.SetDefault("renderer.canvasheight", 5400)
	v.SetDefault("renderer.minfontsize", 200)
	v.SetDefault("renderer.maxfontsize", 400)
	v.SetDefault("fulfillment.vendor", "teemill")
	v.SetDefault("retry.maxattempts", 3)
	v.SetDefault("retry.backoffmillis", 500)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TriggerKeywordsList splits the configured keyword string, lowercased and
// trimmed.
func (c *Config) TriggerKeywordsList() []string {
	var out []string
	for _, k := range strings.Split(c.Bot.TriggerKeywords, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
