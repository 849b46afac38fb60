package bot

import (
	"context"

	"github.com/routedesk/courierbot/core/bootstrap"
	coreconfig "github.com/routedesk/courierbot/core/config"
	tg "github.com/routedesk/courierbot/core/telegram"
	tghelpers "github.com/routedesk/courierbot/core/telegram/helpers"
	"github.com/routedesk/courierbot/core/telegram/router"
	"github.com/routedesk/courierbot/courier/nav"
	"github.com/routedesk/courierbot/courier/session"
	"github.com/routedesk/courierbot/courier/token"

	tele "gopkg.in/telebot.v4"
)

// App is the assembled courier bot.
type App struct {
	cfg *coreconfig.Config
	res *bootstrap.Result

	sessions  session.Store
	issuer    *token.Issuer
	transport *teleTransport
	ctl       *nav.Controller
	drafts    *DraftManager
}

// New assembles the bot on top of bootstrapped infrastructure.
func New(cfg *coreconfig.Config, res *bootstrap.Result) *App {
	transport := newTeleTransport()
	return &App{
		cfg:       cfg,
		res:       res,
		sessions:  res.Sessions,
		issuer:    res.Issuer,
		transport: transport,
		ctl:       nav.NewController(res.Sessions, res.Issuer, transport),
		drafts:    NewDraftManager(res.Sessions, res.Issuer),
	}
}

// TelegramRunOptions wires the registry, routes, and middleware chain.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	a.registerCommands(reg)
	registerNavCallbacks(reg, a.ctl)
	a.registerDropCallback(reg)
	a.registerDraftCancelCallback(reg)
	reg.SetTextFallback(func(c tele.Context) error {
		return tghelpers.SendText(c, "Unknown command. Try /routes.")
	})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminIDs: a.cfg.Access.AdminIDs,
		OnAdminReject: func(c tele.Context) error {
			return tghelpers.SendText(c, "This command is for route managers only.")
		},
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.drafts, reg, router.TextOptions{})...)

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.transport.Bind(rt.Bot)
			return nil
		},
	}, nil
}

// Close releases the database and token store held by the app.
func (a *App) Close() error {
	return a.res.Close()
}
