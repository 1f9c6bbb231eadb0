package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"

	"copier_bot/internal/copier"
	"copier_bot/internal/modules/config"
	"copier_bot/internal/modules/health/service"
	"copier_bot/internal/profile"
	"copier_bot/internal/registry"
)

type Config struct {
	Addr string // например ":8080"
}

func NewAddrConfig(cfg *config.Config) Config {
	if cfg.Service.AdminPort > 0 {
		return Config{Addr: fmt.Sprintf(":%d", cfg.Service.AdminPort)}
	}
	return Config{Addr: ":8080"}
}

func NewMux(
	state *service.State,
	profs *profile.Store,
	reg *registry.Store,
	monitors *copier.Supervisor,
	router *copier.Router,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: бот авторизован и шлюз доступен
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"ready":       state.Ready(),
			"wsConnected": state.WSConnected(),
			"quoteStale":  state.QuoteStale(2 * time.Minute),
			"uptimeSec":   int64(state.Uptime().Seconds()),
			"lastQuoteUnix": func() int64 {
				t := state.LastQuote()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"users":          profs.Count(),
			"activeUsers":    profs.ActiveCount(),
			"sessions":       router.Len(),
			"pendingSignals": reg.Len(),
			"monitors":       monitors.Len(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(resp)
	})

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewAddrConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),

		// ready после успешного старта остальных модулей
		fx.Invoke(func(lc fx.Lifecycle, state *service.State) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					state.SetReady(true)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					state.SetReady(false)
					return nil
				},
			})
		}),
	)
}
