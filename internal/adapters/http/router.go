package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/dkeye/heartlink/internal/adapters/signal"
	"github.com/dkeye/heartlink/internal/app/orch"
	"github.com/dkeye/heartlink/internal/config"
	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const (
	userIDKey       = "user_id"
	sessionTokenKey = "token"
)

// MessageLog lists a match's stored messages.
type MessageLog interface {
	ListMessages(ctx context.Context, matchID string, limit int) ([]core.ChatMessage, error)
}

// CallLog lists a user's past calls.
type CallLog interface {
	ListForUser(ctx context.Context, uid domain.UserID, limit int) ([]domain.CallSession, error)
}

// Deps are the collaborators the HTTP surface needs beyond the orchestrator.
type Deps struct {
	Orch     *orch.Orchestrator
	Signal   *signal.SignalWSController
	Auth     core.Authenticator
	Revoker  TokenRevoker
	Messages MessageLog
	Calls    CallLog
}

type api struct {
	ctx        context.Context
	deps       Deps
	iceServers []webrtc.ICEServer
}

// TokenRevoker invalidates an access token on logout.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string) error
}

// AuthMiddleware resolves the caller from a bearer token, a ?token= query
// parameter (for websocket clients) or the cookie session.
func AuthMiddleware(auth core.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			if v, ok := sessions.Default(c).Get(sessionTokenKey).(string); ok {
				token = v
			}
		}
		uid, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "valid access token required"})
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.UserID {
	uid, _ := c.Get(userIDKey)
	id, _ := uid.(domain.UserID)
	return id
}

func iceServersOf(cfg []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(cfg))
	for _, s := range cfg {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, srv)
	}
	return out
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, Secure: cfg.Mode == "release", SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("HeartlinkSession", store))

	a := &api{ctx: ctx, deps: deps, iceServers: iceServersOf(cfg.ICEServers)}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := r.Group("/api")
	apiGroup.POST("/session", a.createSession)
	apiGroup.DELETE("/session", a.deleteSession)

	authed := apiGroup.Group("", AuthMiddleware(deps.Auth))
	authed.GET("/stats", a.stats)

	chat := authed.Group("/chat")
	chat.POST("/messages", a.sendMessage)
	chat.GET("/messages/:match_id", a.listMessages)
	chat.GET("/ws", a.chatWS)

	authed.DELETE("/matches/:match_id", a.unmatch)

	calls := authed.Group("/calls")
	calls.POST("/initiate", a.initiateCall)
	calls.POST("/accept", a.acceptCall)
	calls.POST("/reject", a.rejectCall)
	calls.POST("/end", a.endCall)
	calls.GET("/active", a.activeCalls)
	calls.GET("/history", a.callHistory)
	calls.GET("/ice-servers", a.getICEServers)
	calls.GET("/signal", a.callWS)

	zone := authed.Group("/games/zone/:zone_id")
	zone.GET("/ws", a.roomWS)
	zone.GET("", a.roomState)
	zone.POST("/start-game", a.startGame)
	zone.POST("/spin-bottle", a.spinBottle)
	zone.POST("/ask-question", a.askQuestion)
	zone.DELETE("", a.evictRoom)
	zone.DELETE("/members/:user_id", a.kickMember)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Int("ice_servers", len(a.iceServers)).Msg("router setup")
	return r
}

func (a *api) stats(c *gin.Context) {
	c.JSON(http.StatusOK, a.deps.Orch.Stats())
}
