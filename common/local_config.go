package common

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const localConfigFilename = "config.yml"

// DefaultDatasetURLs are the candidate mirrors for the Iris dataset the
// generated python and html applications read, tried in order.
var DefaultDatasetURLs = []string{
	"https://archive.ics.uci.edu/ml/machine-learning-databases/iris/iris.data",
	"https://raw.githubusercontent.com/pandas-dev/pandas/main/pandas/tests/io/data/csv/iris.csv",
}

// LocalConfig holds the optional user-level configuration file. Every field
// has a flag or env fallback, so an absent file is not an error.
type LocalConfig struct {
	APIBase     string   `koanf:"api_base,omitempty"`
	Workspace   string   `koanf:"workspace,omitempty"`
	Mode        string   `koanf:"mode,omitempty"`
	Language    string   `koanf:"language,omitempty"`
	RepoPath    string   `koanf:"repo_path,omitempty"`
	RemoteURL   string   `koanf:"remote_url,omitempty"`
	HTTPPort    int      `koanf:"http_port,omitempty"`
	DatasetURLs []string `koanf:"dataset_urls,omitempty"`
}

// Validate ensures the LocalConfig is valid.
func (c LocalConfig) Validate() error {
	if c.Mode != "" && !slices.Contains([]string{"chat", "agent"}, c.Mode) {
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	if c.Language != "" {
		if _, err := StringToLanguage(c.Language); err != nil {
			return err
		}
	}
	if c.HTTPPort < 0 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	return nil
}

// LoadLocalConfig reads the local configuration file from the appsmith
// config home. A missing file yields a zero config, not an error.
func LoadLocalConfig() (LocalConfig, error) {
	configHome, err := GetAppsmithConfigHome()
	if err != nil {
		return LocalConfig{}, err
	}
	return loadLocalConfigFromPath(filepath.Join(configHome, localConfigFilename))
}

func loadLocalConfigFromPath(path string) (LocalConfig, error) {
	var config LocalConfig

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return config, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if err := k.Unmarshal("", &config); err != nil {
		return config, fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// GetDefaultRepoPath returns the default working repository the pipeline
// writes generated artifacts into.
func GetDefaultRepoPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "appsmith-out"
	}
	return filepath.Join(home, "appsmith")
}
