package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Alfresco/SearchServices-sub009/core/loader"
	"github.com/Alfresco/SearchServices-sub009/core/logger"
	"github.com/Alfresco/SearchServices-sub009/core/middleware/auth"
	"github.com/Alfresco/SearchServices-sub009/core/middleware/rayid"
	"github.com/Alfresco/SearchServices-sub009/core/scheduler"
	"github.com/Alfresco/SearchServices-sub009/core/server"
	"github.com/Alfresco/SearchServices-sub009/feature/tracker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/Alfresco/SearchServices-sub009/docs/swagger"
)

// @title Index Tracker API
// @version 1.0
// @description Admin API of a sharded index tracker: tracker state, maintenance, range expansion and reports.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the trackers and the admin server",
	Long: `Connects the repository and the index, schedules every tracker on its cron
cadence and serves the admin API. Slaves serve the API read-only and run no trackers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, err := bootstrap()
		if err != nil {
			return err
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		if !cfg.Server.IsValidRole() {
			logg.Warn("Unknown server role, running standalone", zap.String("role", cfg.Server.Role))
			cfg.Server.Role = server.RoleStandalone
		}

		rt, err := newRuntime(cmd.Context(), cfg, logg)
		if err != nil {
			return err
		}
		defer rt.Close()
		logg = logg.With(zap.String("core", cfg.Tracker.Core))

		sched := scheduler.New(logg)
		if cfg.Server.Tracks() {
			for _, t := range rt.triggers() {
				spec := cfg.Tracker.Cron.Spec(t.Name())
				if spec == "" {
					logg.Info("Tracker not scheduled", zap.String("tracker", t.Name()))
					continue
				}
				if err := sched.Add(spec, t); err != nil {
					return err
				}
			}
			sched.Start()
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mgr := loader.NewManager()
		mgr.Register(tracker.NewFeature(rt.core, rt.metrics, logg, cfg.Server.Tracks()))

		// RayID must be first to trace everything
		app.Use(rayid.New())
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Get("/swagger/*", swagger.HandlerDefault)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: []string{"/metrics"}}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port), zap.String("role", cfg.Server.Role))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
		if cfg.Server.Tracks() {
			sched.Stop()
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
