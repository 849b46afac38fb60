package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/routedesk/courierbot/core/config"
	coredatabase "github.com/routedesk/courierbot/core/database"
	"github.com/routedesk/courierbot/core/logger"
	"github.com/routedesk/courierbot/courier/session"
	"github.com/routedesk/courierbot/courier/token"
)

// Options control the bootstrap pipeline. Hooks default to the real
// implementations and exist so tests can substitute fakes.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(logger.Settings) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
	OpenTokens func(path string) (token.Store, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB       *sqlx.DB
	Sessions session.Store
	Tokens   token.Store
	Issuer   *token.Issuer
}

// Close releases the resources held by the bootstrap result.
func (r *Result) Close() error {
	var first error
	if r.Tokens != nil {
		if err := r.Tokens.Close(); err != nil {
			first = err
		}
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Run initializes the logger, connects to the database, applies migrations,
// and opens the token store.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(loggerSettings(cfg.Logging)); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	openTokens := opts.OpenTokens
	if openTokens == nil {
		openTokens = token.OpenPebbleStore
	}
	tokens, err := openTokens(cfg.Tokens.Dir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: token store open failed: %w", err)
	}

	return &Result{
		DB:       db,
		Sessions: session.NewPostgresStore(db),
		Tokens:   tokens,
		Issuer:   token.NewIssuer(token.NewCodec(), tokens),
	}, nil
}

func loggerSettings(lc coreconfig.LoggingConfig) logger.Settings {
	return logger.Settings{
		Level:       lc.Level,
		Format:      lc.Format,
		KeysOrder:   lc.KeysOrder,
		DebugSample: lc.DebugSample,
		Dir:         lc.Dir,
		BotFile:     lc.BotFile,
		Profile:     lc.Profile,
	}
}
