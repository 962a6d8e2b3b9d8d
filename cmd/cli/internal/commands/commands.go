package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/tern-social/tern-cli/internal/api"
	"github.com/tern-social/tern-cli/internal/content"
	"github.com/tern-social/tern-cli/internal/guard"
	"github.com/tern-social/tern-cli/internal/logger"
	"github.com/tern-social/tern-cli/internal/session"
)

type Globals struct {
	Server  string `help:"Server URL" env:"TERN_SERVER"`
	Config  string `help:"Config file path" env:"TERN_CONFIG"`
	Debug   bool
	Version string
}

// fileConfig is the optional ~/.tern/config.yaml, providing defaults that
// flags and environment variables override.
type fileConfig struct {
	Server            string `yaml:"server"`
	CacheDir          string `yaml:"cacheDir"`
	GoogleClientID    string `yaml:"googleClientId"`
	GoogleRedirectURL string `yaml:"googleRedirectUrl"`
}

// app wires the session store, API client, guard and renderer for one
// command invocation. The store is restored here, on application start.
type app struct {
	logger zerolog.Logger
	cfg    fileConfig
	store  *session.Store
	client *api.Client
	guard  *guard.Guard
	render *content.Renderer
}

func newApp(globals *Globals) (*app, error) {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log

	cfg, err := loadConfig(globals.Config)
	if err != nil {
		return nil, err
	}

	server := globals.Server
	if server == "" {
		server = cfg.Server
	}
	if server == "" {
		server = api.DefaultConfig().ServerURL
	}

	store, err := session.NewStore("")
	if err != nil {
		return nil, err
	}

	client, err := api.New(api.Config{
		ServerURL: server,
		Timeout:   30 * time.Second,
		Debug:     globals.Debug,
		CacheDir:  cfg.CacheDir,
	}, log, store, store.Invalidate)
	if err != nil {
		return nil, err
	}

	store.Restore()

	return &app{
		logger: log,
		cfg:    cfg,
		store:  store,
		client: client,
		guard:  guard.New(store),
		render: content.NewRenderer(),
	}, nil
}

// loadConfig reads the config file. A missing file is fine; a malformed one
// is an error the user should see.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".tern", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// loginHint is printed whenever a command needs a session and none exists.
func loginHint() string {
	return "You are not logged in. Run: tern-cli login <username>"
}

// renderCallError maps call-site errors to user-facing messages. Session
// expiry is already handled globally (the store is cleared by the time this
// runs); everything else is surfaced inline.
func renderCallError(err error) error {
	if errors.Is(err, api.ErrSessionExpired) {
		return fmt.Errorf("%s", loginHint())
	}
	var ne *api.NetworkError
	if errors.As(err, &ne) {
		return fmt.Errorf("could not reach the server, please try again: %v", ne.Err)
	}
	return err
}
