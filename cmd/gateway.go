package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nextlevelbuilder/heyclaw/internal/agent"
	"github.com/nextlevelbuilder/heyclaw/internal/bus"
	"github.com/nextlevelbuilder/heyclaw/internal/channels"
	"github.com/nextlevelbuilder/heyclaw/internal/channels/heychat"
	"github.com/nextlevelbuilder/heyclaw/internal/config"
	"github.com/nextlevelbuilder/heyclaw/internal/reply"
	"github.com/nextlevelbuilder/heyclaw/internal/store"
)

func runGateway() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	accounts := cfg.ListEnabledHeychatAccounts()
	if len(accounts) == 0 {
		slog.Error("no enabled heychat account with a token; set channels.heychat.token or HEYCHAT_APP_TOKEN")
		os.Exit(1)
	}

	pairingStore, err := store.OpenSQLite(config.ExpandHome(cfg.Store.Path))
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer pairingStore.Close()

	msgBus := bus.New()
	runner := agent.NewHTTPRunner(cfg.Agent.Endpoint, cfg.Agent.Token, cfg.AgentTimeout())
	dispatcher := reply.NewAgentDispatcher(runner)
	events := reply.NewSystemEvents(msgBus)
	activity := reply.NewActivityRecorder()

	// Surface inbound notices in the gateway log.
	msgBus.Subscribe("gateway", func(e bus.Event) {
		if e.Name == reply.SystemEventName {
			if payload, ok := e.Payload.(map[string]string); ok {
				slog.Info(payload["text"], "session", payload["session_key"])
			}
		}
	})

	manager := channels.NewManager(msgBus)
	registerAccounts(cfg, accounts, msgBus, pairingStore, dispatcher, events, activity, manager)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
		os.Exit(1)
	}

	// Hot-reload: on config change, swap config and rebuild channels.
	watchErr := config.Watch(ctx, cfgPath, cfg, func(next *config.Config) {
		cfg.ReplaceFrom(next)
		slog.Info("config reloaded, restarting heychat channels")

		for _, name := range manager.GetEnabledChannels() {
			if ch, ok := manager.GetChannel(name); ok {
				ch.Stop(ctx)
			}
			manager.UnregisterChannel(name)
		}
		registerAccounts(cfg, cfg.ListEnabledHeychatAccounts(), msgBus, pairingStore, dispatcher, events, activity, manager)
		for _, name := range manager.GetEnabledChannels() {
			if ch, ok := manager.GetChannel(name); ok {
				if err := ch.Start(ctx); err != nil {
					slog.Error("failed to restart channel", "channel", name, "error", err)
				}
			}
		}
	})
	if watchErr != nil {
		slog.Warn("config hot-reload disabled", "error", watchErr)
	}

	slog.Info("heyclaw gateway running", "accounts", len(accounts), "agent", cfg.Agent.Endpoint)
	<-ctx.Done()

	shutdownCtx := context.Background()
	manager.StopAll(shutdownCtx)
	slog.Info("heyclaw gateway stopped")
}

func registerAccounts(
	cfg *config.Config,
	accounts []config.ResolvedAccount,
	msgBus *bus.MessageBus,
	pairingStore store.PairingStore,
	dispatcher reply.Dispatcher,
	events *reply.SystemEvents,
	activity *reply.ActivityRecorder,
	manager *channels.Manager,
) {
	for _, account := range accounts {
		ch := heychat.New(cfg, account, msgBus, pairingStore, dispatcher, events, activity)
		manager.RegisterChannel(ch.Name(), ch)
	}
}
