package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ainotes/internal/client"
	"ainotes/internal/config"
)

type commandContext struct {
	configFlag *string
	userFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, userFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		userFlag:   userFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) userID() string {
	if c.userFlag != nil {
		if user := strings.TrimSpace(*c.userFlag); user != "" {
			return user
		}
	}
	if user := strings.TrimSpace(os.Getenv("AINOTES_USER")); user != "" {
		return user
	}
	return strings.TrimSpace(os.Getenv("USER"))
}

func (c *commandContext) apiClient() (*client.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.APIBaseURL() == "" {
		return nil, errors.New("daemon HTTP API is disabled (api.bind is blank)")
	}
	return client.New(cfg.APIBaseURL(),
		client.WithToken(cfg.API.Token),
		client.WithUserID(c.userID()),
	)
}

func (c *commandContext) withClient(fn func(*client.Client) error) error {
	cl, err := c.apiClient()
	if err != nil {
		return err
	}
	return wrapAPIError(fn(cl), c.config)
}

func wrapAPIError(err error, cfg *config.Config) error {
	if err == nil {
		return nil
	}
	if client.IsAPIUnavailable(err) {
		addr := ""
		if cfg != nil {
			addr = cfg.APIBaseURL()
		}
		return fmt.Errorf("connect to daemon at %s: not reachable; start it with `ainotes start`", addr)
	}
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "INVALID_SESSION":
			return errors.New("no user id: pass --user or set AINOTES_USER")
		case "UNAUTHORIZED":
			return errors.New("daemon rejected the API token (check api.token or AINOTES_API_TOKEN)")
		}
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
