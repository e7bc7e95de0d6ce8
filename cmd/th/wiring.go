package main

import (
	"fmt"

	"github.com/veredas/trailhead/internal/config"
	"github.com/veredas/trailhead/internal/directory"
	"github.com/veredas/trailhead/internal/notify"
	"github.com/veredas/trailhead/internal/notify/discord"
	"github.com/veredas/trailhead/internal/notify/slack"
	"github.com/veredas/trailhead/internal/reward"
	"github.com/veredas/trailhead/internal/wallet"
)

// directoryFromConfig builds the user directory collaborator. Without a
// configured base URL every user resolves to an empty profile.
func directoryFromConfig(cfg *config.Config) (directory.Directory, error) {
	if cfg.Directory.BaseURL == "" {
		return directory.Static{}, nil
	}
	dir, err := directory.NewHTTP(cfg.Directory.BaseURL, cfg.Directory.Token)
	if err != nil {
		return nil, err
	}
	return dir, nil
}

// walletFromConfig builds the coin wallet collaborator. Without a configured
// base URL credits are dropped.
func walletFromConfig(cfg *config.Config) (wallet.Wallet, error) {
	if cfg.Wallet.BaseURL == "" {
		return wallet.Null{}, nil
	}
	w, err := wallet.NewHTTP(cfg.Wallet.BaseURL)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// notifierFromConfig builds the chat notifier for the configured platform.
func notifierFromConfig(cfg *config.Config) (notify.Notifier, error) {
	switch cfg.Notify.Platform {
	case "":
		return notify.Null{}, nil
	case "slack":
		n, err := slack.New(slack.Opts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	case "discord":
		n, err := discord.New(discord.Opts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown notify platform %q", cfg.Notify.Platform)
	}
}

// dispatcherFromConfig builds the reward dispatcher with its wallet and
// notifier collaborators.
func dispatcherFromConfig(cfg *config.Config) (*reward.Dispatcher, error) {
	w, err := walletFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	n, err := notifierFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &reward.Dispatcher{Wallet: w, Notifier: n}, nil
}
