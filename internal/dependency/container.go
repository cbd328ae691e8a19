// Package dependency wires core switchboard services using go.uber.org/dig.
package dependency

import (
	"log/slog"

	"go.uber.org/dig"

	"github.com/switchboard-ai/switchboard/internal/bus"
	"github.com/switchboard-ai/switchboard/internal/channels"
	"github.com/switchboard-ai/switchboard/internal/classifier"
	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/cron"
	"github.com/switchboard-ai/switchboard/internal/dispatch"
	"github.com/switchboard-ai/switchboard/internal/gateway"
	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/providers"
	"github.com/switchboard-ai/switchboard/internal/router"
	"github.com/switchboard-ai/switchboard/internal/schema"
	"github.com/switchboard-ai/switchboard/internal/session"
	"github.com/switchboard-ai/switchboard/internal/tools"
)

// Container holds the resolved service singletons. Callers use the typed
// getters; they never need to import dig directly.
type Container struct {
	cfg      *config.Config
	msgBus   *bus.MessageBus
	orch     *orchestrator.Orchestrator
	routing  *router.Router
	loop     *dispatch.Loop
	channels *channels.Manager
	gateway  *gateway.Server
	cronSvc  *cron.Scheduler
}

func (c *Container) Config() *config.Config                   { return c.cfg }
func (c *Container) MessageBus() *bus.MessageBus              { return c.msgBus }
func (c *Container) Orchestrator() *orchestrator.Orchestrator { return c.orch }
func (c *Container) Router() *router.Router                   { return c.routing }
func (c *Container) Loop() *dispatch.Loop                     { return c.loop }
func (c *Container) Channels() *channels.Manager              { return c.channels }
func (c *Container) Gateway() *gateway.Server                 { return c.gateway }
func (c *Container) Cron() *cron.Scheduler                    { return c.cronSvc }

// New builds and wires all services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	constructors := []any{
		func() *config.Config { return cfg },
		newProviders,
		newClassifier,
		newRouter,
		newToolRegistry,
		newSessionStore,
		newOrchestrator,
		newMessageBus,
		newLoop,
		newChannelManager,
		newGateway,
		newCronScheduler,
	}
	for _, ctor := range constructors {
		if err := d.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		msgBus *bus.MessageBus,
		orch *orchestrator.Orchestrator,
		rt *router.Router,
		loop *dispatch.Loop,
		mgr *channels.Manager,
		gw *gateway.Server,
		cronSvc *cron.Scheduler,
	) {
		result = &Container{
			cfg:      cfg,
			msgBus:   msgBus,
			orch:     orch,
			routing:  rt,
			loop:     loop,
			channels: mgr,
			gateway:  gw,
			cronSvc:  cronSvc,
		}
	})
	return result, err
}

// newProviders constructs one adapter per registered backend. Keys are
// canonical provider ids; a backend with no credentials still gets an
// adapter so the turn can fail with a useful status error.
func newProviders(cfg *config.Config) (map[string]schema.LLMProvider, error) {
	provs := make(map[string]schema.LLMProvider, len(providers.Specs))
	for _, name := range providers.Names() {
		pc := cfg.Providers.ByName(name)
		p, err := providers.New(name, providers.Credentials{
			APIKey:  pc.APIKey,
			APIBase: pc.APIBase,
			Model:   pc.Model,
		})
		if err != nil {
			return nil, err
		}
		provs[name] = p
	}
	return provs, nil
}

func newClassifier(cfg *config.Config) classifier.Classifier {
	if cfg.Routing.ClassifierEndpoint == "" {
		return nil
	}
	return classifier.NewHTTPClassifier(cfg.Routing.ClassifierEndpoint, cfg.Routing.ClassifierToken)
}

func newRouter(cfg *config.Config, cls classifier.Classifier) (*router.Router, error) {
	table := router.DefaultTable()
	if cfg.Routing.TablePath != "" {
		loaded, err := router.LoadTable(cfg.Routing.TablePath)
		if err != nil {
			return nil, err
		}
		table = loaded
	}
	if cfg.Routing.DefaultProvider != "" {
		table.DefaultProvider = cfg.Routing.DefaultProvider
	}
	return router.New(table, cls), nil
}

func newToolRegistry(cfg *config.Config) *tools.Registry {
	return tools.DefaultRegistry(cfg.WorkspacePath())
}

func newSessionStore(cfg *config.Config) (session.Store, error) {
	return session.NewFileStore(cfg.SessionsDir())
}

func newOrchestrator(
	provs map[string]schema.LLMProvider,
	rt *router.Router,
	reg *tools.Registry,
	store session.Store,
) *orchestrator.Orchestrator {
	return orchestrator.New(provs, rt, reg, store)
}

func newMessageBus() *bus.MessageBus {
	return bus.NewMessageBus(100)
}

func newLoop(b *bus.MessageBus, orch *orchestrator.Orchestrator) *dispatch.Loop {
	return dispatch.NewLoop(b, orch)
}

func newChannelManager(cfg *config.Config, b *bus.MessageBus) *channels.Manager {
	return channels.NewManager(cfg, b)
}

func newGateway(cfg *config.Config, orch *orchestrator.Orchestrator, rt *router.Router) *gateway.Server {
	return gateway.NewServer(cfg.Gateway, orch, rt)
}

func newCronScheduler(cfg *config.Config, b *bus.MessageBus) *cron.Scheduler {
	s := cron.NewScheduler(cfg.Cron, b)
	if s.Jobs() > 0 {
		slog.Debug("cron jobs configured", "count", s.Jobs())
	}
	return s
}
