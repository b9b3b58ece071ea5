package api

import (
	"net/http"
	"time"

	"NodeFlow/internal/service/ratelimit"
	"NodeFlow/internal/usecase"
	xhttp "NodeFlow/pkg/http"
	xlogger "NodeFlow/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ConnStatus reports inbound stream connectivity. Nil when the app runs
// in replay mode.
type ConnStatus interface {
	IsConnected() bool
}

// MonitorEchoHandler exposes the engine's observable state over HTTP.
type MonitorEchoHandler struct {
	logger *xlogger.Logger
	proc   *usecase.TradeProcessor
	bars   *usecase.BarsUseCase
	conn   ConnStatus
	rl     *ratelimit.Limiter
	symbol string
}

func NewMonitorEchoHandler(logger *xlogger.Logger, proc *usecase.TradeProcessor, bars *usecase.BarsUseCase, conn ConnStatus, symbol string) *MonitorEchoHandler {
	return &MonitorEchoHandler{logger: logger, proc: proc, bars: bars, conn: conn, rl: ratelimit.New(), symbol: symbol}
}

func (h *MonitorEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/levels", h.Levels)
	g.GET("/summary", h.Summary)
	g.GET("/bars", h.Bars)
}

type statusView struct {
	Symbol       string  `json:"symbol"`
	State        string  `json:"state"`
	MarketState  string  `json:"market_state"`
	TrackedNodes int     `json:"tracked_nodes"`
	ArmedNodes   int     `json:"armed_nodes"`
	SessionPnL   float64 `json:"session_pnl"`
	LastPrice    float64 `json:"last_price"`
	Connected    bool    `json:"connected"`
}

func (h *MonitorEchoHandler) Status(c echo.Context) error {
	snap := h.proc.Snapshot()
	connected := false
	if h.conn != nil {
		connected = h.conn.IsConnected()
	}
	return xhttp.SuccessResponse(c, statusView{
		Symbol:       h.symbol,
		State:        snap.State,
		MarketState:  snap.MarketState,
		TrackedNodes: snap.TrackedNodes,
		ArmedNodes:   snap.ArmedNodes,
		SessionPnL:   snap.SessionPnL,
		LastPrice:    snap.LastPrice,
		Connected:    connected,
	})
}

type trackedView struct {
	Price     float64 `json:"price"`
	Ratio     float64 `json:"ratio"`
	ImpulseID int64   `json:"impulse_id"`
	Direction string  `json:"direction"`
	State     string  `json:"state"`
}

func (h *MonitorEchoHandler) Levels(c echo.Context) error {
	snap := h.proc.Snapshot()
	tracked := make([]trackedView, 0, len(snap.Tracked))
	for _, tl := range snap.Tracked {
		tracked = append(tracked, trackedView{
			Price:     tl.Node.Price,
			Ratio:     tl.Node.Ratio,
			ImpulseID: tl.Node.ImpulseID,
			Direction: string(tl.Node.Direction),
			State:     string(tl.State),
		})
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"daily":   snap.Levels,
		"tracked": tracked,
	})
}

func (h *MonitorEchoHandler) Summary(c echo.Context) error {
	snap := h.proc.Snapshot()
	return xhttp.SuccessResponse(c, snap.Summary)
}

type barsRequest struct {
	From  string `query:"from"`
	To    string `query:"to"`
	Limit int    `query:"limit" default:"10000" validate:"gte=0,lte=50000"`
}

func (h *MonitorEchoHandler) Bars(c echo.Context) error {
	if h.bars == nil {
		return xhttp.NotFoundResponse(c, "bar store disabled")
	}
	if !h.rl.Allow(c.RealIP()+":bars", 5, 2) {
		return c.String(http.StatusTooManyRequests, "rate limited")
	}
	req := &barsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(req.From, now.Add(-time.Hour))
	to := xhttp.ParseTimeDefault(req.To, now)

	res, err := h.bars.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol: h.symbol,
		From:   from,
		To:     to,
		Limit:  req.Limit,
	})
	if err != nil {
		h.logger.Error("bars usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
