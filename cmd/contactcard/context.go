package main

import (
	"io"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/contactcard/internal/config"
	"github.com/JonMunkholm/contactcard/internal/core"
	"github.com/JonMunkholm/contactcard/internal/logging"
	"github.com/JonMunkholm/contactcard/internal/photo"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	once    sync.Once
	config  *config.Config
	service *core.Service
	err     error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureService loads .env, the configuration and logging once, and builds
// the conversion service. Logs go to logOut so command output stays clean.
func (c *commandContext) ensureService(logOut io.Writer) (*core.Service, error) {
	c.once.Do(func() {
		// A missing .env is normal; unlike the server, existing env vars win.
		_ = godotenv.Load()

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			cfg, err := config.Load()
			c.config, c.err = cfg, err
		} else {
			cfg, err := config.LoadFile(path)
			c.config, c.err = cfg, err
		}
		if c.err != nil {
			return
		}

		level := c.config.Logging.Level
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			level = *c.logLevelFlag
		}
		logging.Setup(level, c.config.Logging.Format, logOut)

		var photos core.PhotoFetcher = photo.Disabled{}
		if c.config.Photo.Enabled {
			photos = photo.NewFetcher(
				photo.WithTimeout(c.config.Photo.Timeout),
				photo.WithMaxBytes(c.config.Photo.MaxBytes),
			)
		}
		c.service = core.NewService(c.config, photos, nil)
	})
	return c.service, c.err
}

func (c *commandContext) configValue() *config.Config {
	return c.config
}
