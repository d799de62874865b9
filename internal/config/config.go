package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/uksrc/emerlin2caom/internal/model"
)

// EnvPrefix is prepended to every setting when read from the environment,
// e.g. EMERLIN_COLLECTION.
const EnvPrefix = "EMERLIN"

// Config holds application configuration.
type Config struct {
	Collection    string `mapstructure:"collection"`
	Scheme        string `mapstructure:"scheme"`
	PreviewScheme string `mapstructure:"preview_scheme"`

	XMLDir      string `mapstructure:"xml_dir"`
	StoragePath string `mapstructure:"storage_path"`
	MSMDCommand string `mapstructure:"msmd_command"`
	URIPolicy   string `mapstructure:"uri_policy"`

	Upload           bool          `mapstructure:"upload"`
	Replace          bool          `mapstructure:"replace"`
	ArchiveURL       string        `mapstructure:"archive_url"`
	TAPURL           string        `mapstructure:"tap_url"`
	Token            string        `mapstructure:"token"`
	RootCA           string        `mapstructure:"rootca"`
	ContentType      string        `mapstructure:"content_type"`
	PostToCollection bool          `mapstructure:"post_to_collection"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`

	MinIOEndpoint  string `mapstructure:"minio_endpoint"`
	MinIOAccessKey string `mapstructure:"minio_access_key"`
	MinIOSecretKey string `mapstructure:"minio_secret_key"`
	MinIOBucket    string `mapstructure:"minio_bucket"`
	MinIOPrefix    string `mapstructure:"minio_prefix"`
	MinIOUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

var defaults = map[string]any{
	"collection":         "EMERLIN",
	"scheme":             "cadc",
	"preview_scheme":     "cadc",
	"xml_dir":            ".",
	"storage_path":       "",
	"msmd_command":       "",
	"uri_policy":         "truncate",
	"upload":             false,
	"replace":            false,
	"archive_url":        "",
	"tap_url":            "",
	"token":              "",
	"rootca":             "",
	"content_type":       "text/xml",
	"post_to_collection": false,
	"http_timeout":       60 * time.Second,
	"minio_endpoint":     "",
	"minio_access_key":   "",
	"minio_secret_key":   "",
	"minio_bucket":       "",
	"minio_prefix":       "",
	"minio_use_ssl":      false,
}

type ErrMissingRequired struct {
	Name string
}

func (e *ErrMissingRequired) Error() string {
	return fmt.Sprintf("required setting %q (%s) is not set", e.Name, EnvName(e.Name))
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// Load reads configuration from defaults, the optional config file at path
// and EMERLIN_* environment variables, in increasing precedence.
// Returns an error if required settings are missing.
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	required := []struct {
		name  string
		value string
		when  bool
	}{
		{"collection", c.Collection, true},
		{"scheme", c.Scheme, true},
		{"archive_url", c.ArchiveURL, c.Upload},
		{"token", c.Token, c.Upload},
		{"minio_access_key", c.MinIOAccessKey, c.MinIOEndpoint != ""},
		{"minio_secret_key", c.MinIOSecretKey, c.MinIOEndpoint != ""},
		{"minio_bucket", c.MinIOBucket, c.MinIOEndpoint != ""},
	}
	for _, r := range required {
		if r.when && r.value == "" {
			return &ErrMissingRequired{Name: r.name}
		}
	}
	if c.Replace && !c.Upload {
		return fmt.Errorf("replace requires upload to be enabled")
	}
	return nil
}

// Names returns the identity settings used to resolve file names.
func (c *Config) Names() model.NameConfig {
	return model.NameConfig{Scheme: c.Scheme, PreviewScheme: c.PreviewScheme, Collection: c.Collection}
}
