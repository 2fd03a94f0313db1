package bot

import (
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/kinobot/core/config"
	tg "github.com/m3rciful/kinobot/core/telegram"
	"github.com/m3rciful/kinobot/core/telegram/commands"
	"github.com/m3rciful/kinobot/core/telegram/helpers"
	"github.com/m3rciful/kinobot/core/telegram/middleware"
	"github.com/m3rciful/kinobot/core/telegram/router"
	"github.com/m3rciful/kinobot/core/telegram/ui"
	"github.com/m3rciful/kinobot/internal/dialog"
	"github.com/m3rciful/kinobot/internal/texts"
)

// menuAction is a named handler resolved from a reply-keyboard label.
type menuAction struct {
	name string
	h    tele.HandlerFunc
}

// menu maps button labels to handlers at the routing boundary.
type menu struct {
	actions map[string]menuAction
}

func (m *menu) Resolve(text string) (string, tele.HandlerFunc, bool) {
	a, ok := m.actions[text]
	if !ok {
		return "", nil, false
	}
	return a.name, a.h, true
}

// buildMenu binds every panel and main-menu button.
func buildMenu(h *Handlers) *menu {
	actions := map[string]menuAction{
		texts.BtnRequestMovie: {"menu.request_code", h.requestMovieCode},
		texts.BtnInfo:         {"menu.info", h.info},
		texts.BtnContact:      {"menu.contact", h.contactInfo},

		texts.BtnStats:     {"panel.stats", h.showStats},
		texts.BtnBack:      {"panel.back", h.backToPanel},
		texts.BtnLogout:    {"panel.logout", h.logout},
		texts.BtnUsers:     {"panel.users", h.usersMenu},
		texts.BtnChannels:  {"panel.channels", h.channelsMenu},
		texts.BtnMovieList: {"panel.movie_list", h.movieList},
		texts.BtnAllUsers:  {"panel.user_list", h.userList},

		texts.BtnChannelList: {"panel.channel_list", h.channelList},
		texts.BtnRefresh:     {"panel.channel_refresh", h.refreshChannels},

		texts.BtnAddMovie:      {"dialog.movie_add", h.startDialog(h.engine.StartAddMovie)},
		texts.BtnDeleteMovie:   {"dialog.movie_delete", h.startDialog(h.engine.StartDeleteMovie)},
		texts.BtnBroadcast:     {"dialog.broadcast", h.startDialog(h.engine.StartBroadcast)},
		texts.BtnSendMessage:   {"dialog.send_message", h.startDialog(h.engine.StartSendMessage)},
		texts.BtnBlockUser:     {"dialog.user_block", h.startDialog(h.engine.StartBlockUser)},
		texts.BtnUnblockUser:   {"dialog.user_unblock", h.startDialog(h.engine.StartUnblockUser)},
		texts.BtnUserInfo:      {"dialog.user_info", h.startDialog(h.engine.StartUserInfo)},
		texts.BtnAddChannel:    {"dialog.channel_add", h.startDialog(h.engine.StartAddChannel)},
		texts.BtnDeleteChannel: {"dialog.channel_delete", h.startDialog(h.engine.StartDeleteChannel)},
	}
	return &menu{actions: actions}
}

// fsmAdapter exposes the dialog engine to the message router.
type fsmAdapter struct {
	engine *dialog.Engine
}

func (a fsmAdapter) InProgress(userID int64) bool {
	return a.engine.InProgress(userID)
}

func (a fsmAdapter) ManagerHandler(c tele.Context) error {
	req := dialog.Request{
		UserID:  c.Sender().ID,
		Text:    c.Text(),
		Message: c.Message(),
	}
	if msg := c.Message(); msg != nil && msg.Video != nil {
		req.VideoFileID = msg.Video.FileID
	}
	return a.engine.HandleActive(helpers.BuildContext(c), req)
}

// UnknownText treats unmatched text as a movie code request.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return h.MovieCode
}

// UnknownDocument ignores stray media outside a dialog.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(tele.Context) error { return nil }
}

// UnknownCallback acknowledges callbacks nothing is registered for.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error { return c.Respond() }
}

var _ ui.FallbackProvider = (*Handlers)(nil)

// BuildRunOptions assembles the registry, middleware chain and routes.
func BuildRunOptions(cfg *coreconfig.Config, h *Handlers) (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Botni ishga tushirish",
	})
	reg.RegisterCommand("/admin", commands.Command{
		Handler:     h.Admin,
		Description: "Admin paneli",
		Hidden:      true,
	})
	reg.RegisterCommand("/logout_all", commands.Command{
		Handler:   h.LogoutAll,
		AdminOnly: true,
		Hidden:    true,
	})
	reg.SetTextFallback(h.UnknownText())
	reg.SetCallbackNotFound(h.UnknownCallback())
	if err := reg.RegisterCallback(texts.CallbackCheckSub, h.CheckSubscription); err != nil {
		return tg.RunOptions{}, err
	}

	operator := middleware.OperatorOptions{
		Auth:     h.auth,
		OnReject: h.rejectNonOperator,
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{Operator: operator})
	routes = append(routes, router.TextRoutes(fsmAdapter{engine: h.engine}, reg, router.TextOptions{
		Menu:         buildMenu(h),
		UnknownText:  h.UnknownText(),
		UnknownMedia: h.UnknownDocument(),
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: h.UnknownCallback(),
	}))
	routes = append(routes, tg.Route{
		Endpoint: tele.OnContact,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h.Contact)),
	})

	return tg.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(cfg, nil),
		Routes:      routes,
	}, nil
}
