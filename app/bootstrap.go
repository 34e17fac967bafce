package app

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/km-arc/katapult/db"
	kapp "github.com/km-arc/katapult/framework/app"
	"github.com/km-arc/katapult/framework/config"
	"github.com/km-arc/katapult/framework/container"
	"github.com/km-arc/katapult/framework/providers"
	"github.com/km-arc/katapult/mod"
)

// Bootstrap builds the sample application from cfg. Nothing is opened until
// the kernel is prepared or started.
func Bootstrap(cfg *config.Config, logger *zap.Logger) (*kapp.Katapult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := container.NewContainer()
	reg := container.NewProviderRegistry(registry)
	reg.Register(&providers.LoggerServiceProvider{Logger: logger})
	reg.Register(&providers.ConfigServiceProvider{Config: cfg})
	reg.Register(container.ProviderFunc(func(c *container.Container) {
		container.Singleton(c, func() *mod.RequestLog {
			return mod.NewRequestLog(mod.NewAccessLogger(logger))
		})
	}))

	given, descriptors, err := Components(cfg)
	if err != nil {
		return nil, err
	}
	return kapp.New(given, descriptors, kapp.WithContainer(registry), kapp.WithLogger(logger)), nil
}

// Components returns the given data and descriptors for cfg. Application
// middleware runs in descriptor order, outermost first.
func Components(cfg *config.Config) ([]any, []container.Descriptor, error) {
	sessions := mod.SessionSpec{
		TimeoutSeconds: cfg.Session.TimeoutSeconds,
		Secure:         cfg.HTTP.HTTPSPort > 0,
	}
	if cfg.Session.Files {
		sessions.DataDir = cfg.DataDir
	}

	given := []any{
		sessions,
		mod.WebRoot(cfg.Web.Dir),
		mod.SpaSpec{Dir: cfg.Web.Dir, Subpages: cfg.Web.Subpages},
		UsersSpec{Hash: Hash},
		AuthConfig{
			AllowRegistration: cfg.Auth.AllowRegistration,
			GuardPathAccess:   cfg.Auth.GuardPathAccess,
		},
		AdminConfig{GuardPages: cfg.Admin.GuardPages},
	}
	descriptors := []container.Descriptor{
		container.New1(mod.NewRequestLogModule),
		container.New1(mod.NewErrorModule),
	}

	httpOn, httpsOn := cfg.HTTP.Port > 0, cfg.HTTP.HTTPSPort > 0
	if httpOn {
		given = append(given, mod.HTTPSpec{Port: cfg.HTTP.Port})
		descriptors = append(descriptors, container.New1(mod.NewHTTPModule))
	}
	if httpsOn {
		given = append(given, mod.HTTPSSpec{DataDir: cfg.DataDir, Port: cfg.HTTP.HTTPSPort})
		descriptors = append(descriptors, container.New1E(mod.NewHTTPSModule))
	}
	if httpOn && httpsOn {
		given = append(given, mod.HTTPSRedirect(cfg.HTTP.Port, cfg.HTTP.HTTPSPort))
		descriptors = append(descriptors, container.New1E(mod.NewRedirectModule))
	}
	switch origins := cfg.CORS.Origins; {
	case len(origins) == 1 && origins[0] == "*":
		descriptors = append(descriptors, container.New(mod.NewCorsAllOrigins))
	case len(origins) > 0:
		given = append(given, mod.CorsSpec{Origins: origins})
		descriptors = append(descriptors, container.New1(mod.NewCorsModule))
	}

	descriptors = append(descriptors,
		container.New2E(mod.NewSessionModule),
		container.New1(mod.NewStaticFilesModule),
		container.New1(mod.NewSpaModule),
		container.New3(mod.NewApiStats),
	)

	switch cfg.DB.Driver {
	case "sqlite":
		file := cfg.DB.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(cfg.DataDir, file)
		}
		given = append(given, db.SqliteConfig{File: file})
		descriptors = append(descriptors, container.Component[db.Driver](db.NewSqliteDriver))
	case "postgres":
		given = append(given, db.PostgresConfig{
			Host: cfg.DB.Host,
			Name: cfg.DB.Name,
			User: cfg.DB.User,
			Pass: cfg.DB.Pass,
		})
		descriptors = append(descriptors, container.Component[db.Driver](db.NewPostgresDriver))
	default:
		return nil, nil, fmt.Errorf("app: unknown db driver %q", cfg.DB.Driver)
	}

	descriptors = append(descriptors,
		container.New1E(db.NewDB),
		container.Component[UserStore](NewSQLUserStore),
		container.New3E(NewUsersModule),
		container.New3(NewAuthModule),
		container.New3(NewAdminModule),
	)
	return given, descriptors, nil
}
