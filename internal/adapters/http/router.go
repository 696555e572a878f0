package http

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/adapters/signal"
	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/config"
	"github.com/dkeye/Keystroke/internal/domain"
)

const (
	sessionName   = "KeystrokeSessions"
	sessionModKey = "mod_user"
	userIDCookie  = "userId"
	removedPath   = "/removed"
)

// ModProofMiddleware exposes the moderator id verified on this HTTP session to
// the websocket handler.
func ModProofMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if uid, ok := session.Get(sessionModKey).(string); ok && uid != "" {
			c.Set(signal.ModProofKey, uid)
		}
		c.Next()
	}
}

// BanGuard redirects page requests from a banned userId cookie to the removal page.
func BanGuard(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := c.Cookie(userIDCookie)
		if uid != "" && o.IsBanned(domain.UserID(uid)) {
			c.Redirect(http.StatusFound, removedPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// originChecker accepts same-host upgrades and any configured origin. With no
// origins configured every upgrade is accepted.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ws signal.Settings) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ModProofMiddleware())

	h := &handlers{orch: o}

	r.GET("/up", h.up)
	r.Static("/static", cfg.StaticPath)
	r.GET(removedPath, func(c *gin.Context) {
		c.File(cfg.StaticPath + "/removed.html")
	})
	r.GET("/why-was-i-removed", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/why-was-i-removed.html")
	})
	r.GET("/offensive-words", h.offensiveWords)
	r.POST("/verify-mod-code", h.verifyModCode)

	pages := r.Group("/", BanGuard(o))
	pages.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	pages.GET("/join", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/join.html")
	})

	api := r.Group("/api")
	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:id", h.getRoom)
	api.GET("/counts", h.counts)
	api.GET("/room-names", h.roomName)

	ctrl := signal.NewSignalWSController(o, ws, originChecker(cfg.CORS.AllowedOrigins))
	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
