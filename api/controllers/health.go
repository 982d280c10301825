package controllers

import (
	"net/http"

	"github.com/calderahq/storefront-backend/api/responses"
	"github.com/calderahq/storefront-backend/pkg/config"
	"github.com/calderahq/storefront-backend/pkg/db"
	"github.com/calderahq/storefront-backend/pkg/logger"
	"github.com/calderahq/storefront-backend/pkg/mailer"
	"github.com/calderahq/storefront-backend/pkg/redis"
)

const envHeader = "X-Storefront-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every external collaborator. Any failure flips the
// endpoint to 503 so the platform stops routing traffic here.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, mailP mailer.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		probe := func(name string, ping func() error) {
			if ping == nil {
				checks[name] = "skipped"
				return
			}
			if err := ping(); err != nil {
				checks[name] = "unreachable"
				healthy = false
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", name), "readiness probe failed", err)
				}
				return
			}
			checks[name] = "ok"
		}

		if dbP != nil {
			probe("database", func() error { return dbP.Ping(r.Context()) })
		} else {
			probe("database", nil)
		}
		if redisP != nil {
			probe("redis", func() error { return redisP.Ping(r.Context()) })
		} else {
			probe("redis", nil)
		}
		if mailP != nil {
			probe("mail", func() error { return mailP.Ping(r.Context()) })
		} else {
			probe("mail", nil)
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{"status": state, "checks": checks})
	}
}
