package bootstrap

import (
	stderrors "errors"
	"io/fs"
	"os"

	"github.com/turtacn/ChequeGuard/internal/config"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
)

// LoadConfig reads path, or the environment alone when path is empty or the
// file does not exist.
func LoadConfig(path string) (cfg *config.Config, fromFile bool, err error) {
	if path != "" {
		if _, statErr := os.Stat(path); !stderrors.Is(statErr, fs.ErrNotExist) {
			cfg, err = config.Load(path)
			return cfg, err == nil, err
		}
	}
	cfg, err = config.LoadFromEnv()
	return cfg, false, err
}

// WatchLogLevel applies log.level edits in path to log while the process
// runs. Other sections take effect on the next start.
func WatchLogLevel(path string, log logging.Logger) (*config.Watcher, error) {
	return config.Watch(path, levelReloader(log), func(err error) {
		log.Warn("Config reload rejected", logging.Err(err))
	})
}

func levelReloader(log logging.Logger) func(*config.Config) {
	return func(cfg *config.Config) {
		if logging.SetLevel(log, cfg.Log.Level) {
			log.Info("Log level reloaded", logging.String("level", cfg.Log.Level))
		}
	}
}
