package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Gateway struct {
		BaseURL string `koanf:"base_url"`
		Token   string `koanf:"token"`
	} `koanf:"gateway"`

	Discussion struct {
		ContentType string `koanf:"content_type"`
		Identifier  string `koanf:"identifier"`
		// Number overrides resolution when already known.
		Number int `koanf:"number"`
	} `koanf:"discussion"`

	Identity struct {
		Token  string `koanf:"token"`
		Secret string `koanf:"secret"`
	} `koanf:"identity"`

	Bridge struct {
		Port int `koanf:"port"`
		// Token, when set, is required as a bearer credential on every
		// bridge request.
		Token string `koanf:"token"`
	} `koanf:"bridge"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"bridge.port":             8787,
		"discussion.content_type": "article",
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./threadkit.toml", "$HOME/.threadkit.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix THREADKIT_
	k.Load(env.Provider("THREADKIT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "THREADKIT_")), "_", ".", 1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# threadkit configuration

[gateway]
base_url = "https://discuss.example.com/api"
token = "your-host-api-token"

[discussion]
content_type = "article"
identifier = "my-first-post"

[identity]
token = "your-identity-jwt"
secret = "your-identity-secret"

[bridge]
port = 8787
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway base_url is required")
	}
	if config.Gateway.Token == "" {
		return fmt.Errorf("gateway token is required")
	}
	if config.Discussion.Number == 0 && config.Discussion.Identifier == "" {
		return fmt.Errorf("either discussion number or identifier is required")
	}
	if config.Identity.Token != "" && config.Identity.Secret == "" {
		return fmt.Errorf("identity secret is required when an identity token is set")
	}
	return nil
}
