// Package factory builds the notifier registry from configuration.
package factory

import (
	"fmt"
	"sort"

	"github.com/newthinker/signaldesk/internal/config"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/notifier"
	"github.com/newthinker/signaldesk/internal/notifier/email"
	"github.com/newthinker/signaldesk/internal/notifier/telegram"
	"github.com/newthinker/signaldesk/internal/notifier/webhook"
)

// New creates one notifier.
func New(name string, cfg config.NotifierConfig) (notifier.Notifier, error) {
	switch name {
	case "telegram":
		return telegram.New(cfg.BotToken, cfg.ChatID)
	case "webhook":
		return webhook.New(cfg.URL, cfg.Headers)
	case "email":
		return email.New(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From, cfg.To)
	default:
		return nil, fmt.Errorf("unknown notifier: %s", name)
	}
}

// NewRegistry registers every enabled notifier.
func NewRegistry(cfgs map[string]config.NotifierConfig) (*notifier.Registry, error) {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := notifier.NewRegistry()
	for _, name := range names {
		cfg := cfgs[name]
		if !cfg.Enabled {
			continue
		}
		n, err := New(name, cfg)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := reg.Register(n); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	return reg, nil
}
