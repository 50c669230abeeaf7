// Package api is the HTTP control surface: state queries, commands and
// named save slots.
package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/loguhan/FactoryGame/internal/metrics"
	"github.com/loguhan/FactoryGame/internal/persistence/slots"
	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/encoding"
	"github.com/loguhan/FactoryGame/internal/sim/world"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

// SessionHeader names the session commands are attributed to.
const SessionHeader = "X-Session-ID"

const defaultSession = "api"

type Config struct {
	World   *world.World
	Slots   *slots.Store     // optional; save routes answer 501 without it
	Metrics *metrics.Metrics // optional
	Log     *log.Logger
}

type Server struct {
	cfg    Config
	router *gin.Engine
}

func New(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	s := &Server{cfg: cfg, router: r}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/v1")
	{
		v1.GET("/world", s.handleWorld)
		v1.GET("/state", s.handleState)
		v1.GET("/regions", s.handleRegions)
		v1.GET("/regions/:id/cells", s.handleRegionCells)
		v1.GET("/tiles/:x/:y", s.handleTile)
		v1.POST("/commands", s.handleCommand)

		saves := v1.Group("/saves")
		saves.GET("", s.handleListSaves)
		saves.POST("/:name", s.handleSave)
		saves.POST("/:name/load", s.handleLoad)
		saves.DELETE("/:name", s.handleDeleteSave)
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps a protocol error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case protocol.ErrBadRequest, protocol.ErrProtoBadRequest, protocol.ErrInvalidTarget:
		return http.StatusBadRequest
	case protocol.ErrNoPermission, protocol.ErrWorldDenied:
		return http.StatusForbidden
	case protocol.ErrNotFound:
		return http.StatusNotFound
	case protocol.ErrConflict, protocol.ErrBlocked, protocol.ErrNoResource:
		return http.StatusConflict
	case protocol.ErrRateLimit:
		return http.StatusTooManyRequests
	case protocol.ErrWorldBusy:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	code := world.CodeFor(err)
	switch {
	case errors.Is(err, slots.ErrBadName):
		code = protocol.ErrBadRequest
	case c.Request.Context().Err() != nil:
		code = protocol.ErrWorldBusy
	}
	if code == protocol.ErrInternal && s.cfg.Log != nil {
		s.cfg.Log.Printf("api %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(statusFor(code), errorBody{Code: code, Message: err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	select {
	case <-s.cfg.World.Done():
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopped"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok", "tick": s.cfg.World.CurrentTick()})
	}
}

type worldInfo struct {
	ID       string                  `json:"id"`
	Tick     uint64                  `json:"tick"`
	Clock    float64                 `json:"clock"`
	Params   protocol.WorldParams    `json:"params"`
	Catalogs protocol.CatalogDigests `json:"catalogs"`
	Power    protocol.PowerObs       `json:"power"`
}

func (s *Server) handleWorld(c *gin.Context) {
	var info worldInfo
	err := s.cfg.World.View(c.Request.Context(), func(w *world.World) {
		t := w.Tuning()
		cats := w.Catalogs()
		p := w.Power()
		info = worldInfo{
			ID:    w.ID(),
			Tick:  w.CurrentTick(),
			Clock: w.Clock(),
			Params: protocol.WorldParams{
				TickRateHz:      t.TickRateHz,
				Width:           t.MapWidth,
				Height:          t.MapHeight,
				RegionSize:      t.RegionSize,
				Seed:            t.Seed,
				StateEveryTicks: t.StateEveryTicks,
			},
			Catalogs: protocol.CatalogDigests{
				ItemPalette:        protocol.DigestRef{Digest: cats.Items.PaletteDigest, Count: len(cats.Items.Palette)},
				ItemsDigest:        cats.Items.DefsDigest,
				BuildingsDigest:    cats.Buildings.Digest,
				RecipesDigest:      cats.Recipes.Digest,
				AchievementsDigest: cats.Achievements.Digest,
			},
			Power: protocol.PowerObs{Produced: p.Produced, Consumed: p.Consumed, Ratio: p.Ratio},
		}
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleState(c *gin.Context) {
	var msg protocol.StateMsg
	if err := s.cfg.World.View(c.Request.Context(), func(w *world.World) { msg = w.StateFrame() }); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *Server) handleRegions(c *gin.Context) {
	var regions []world.RegionInfo
	if err := s.cfg.World.View(c.Request.Context(), func(w *world.World) { regions = w.Regions() }); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, regions)
}

// regionCells is one region's terrain and ore, row-major, run-length
// encoded. Terrain values are 0 locked, 1 grass, 2 water, 3 mountain; ore
// values are 0 for none or 1+index into OrePalette.
type regionCells struct {
	world.RegionInfo
	Terrain    string   `json:"terrain"`
	Ore        string   `json:"ore"`
	OrePalette []string `json:"ore_palette"`
}

func (s *Server) handleRegionCells(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Code: protocol.ErrBadRequest, Message: "region id must be an integer"})
		return
	}
	oreIndex := make(map[catalogs.OreKind]byte, len(catalogs.Ores))
	palette := make([]string, 0, len(catalogs.Ores))
	for i, o := range catalogs.Ores {
		oreIndex[o] = byte(i + 1)
		palette = append(palette, string(o))
	}

	var (
		out regionCells
		ok  bool
	)
	err = s.cfg.World.View(c.Request.Context(), func(w *world.World) {
		for _, r := range w.Regions() {
			if r.ID != id {
				continue
			}
			ok = true
			b := r.Bounds
			terrain := make([]byte, 0, b.W*b.H)
			ore := make([]byte, 0, b.W*b.H)
			for y := b.Y; y < b.Y+b.H; y++ {
				for x := b.X; x < b.X+b.W; x++ {
					p := geom.Pos{X: x, Y: y}
					terrain = append(terrain, byte(w.Terrain(p)))
					ore = append(ore, oreIndex[w.Ore(p)])
				}
			}
			out = regionCells{
				RegionInfo: r,
				Terrain:    encoding.EncodeRLE(terrain),
				Ore:        encoding.EncodeRLE(ore),
				OrePalette: palette,
			}
			return
		}
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Code: protocol.ErrInvalidTarget, Message: "unknown region"})
		return
	}
	c.JSON(http.StatusOK, out)
}

type tileInfo struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Kind       string  `json:"kind,omitempty"`
	Dir        string  `json:"dir,omitempty"`
	Origin     *[2]int `json:"origin,omitempty"`
	Terrain    string  `json:"terrain"`
	Ore        string  `json:"ore,omitempty"`
	Region     int     `json:"region"`
	Congestion float64 `json:"congestion"`
}

func (s *Server) handleTile(c *gin.Context) {
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, errorBody{Code: protocol.ErrBadRequest, Message: "x and y must be integers"})
		return
	}
	p := geom.Pos{X: x, Y: y}
	var (
		info tileInfo
		ok   bool
	)
	err := s.cfg.World.View(c.Request.Context(), func(w *world.World) {
		region, in := w.RegionAt(p)
		if !in {
			return
		}
		ok = true
		t := w.Tile(p)
		info = tileInfo{
			X:          x,
			Y:          y,
			Kind:       string(t.Kind),
			Terrain:    w.Terrain(p).String(),
			Ore:        string(w.Ore(p)),
			Region:     region,
			Congestion: w.Congestion(p),
		}
		if t.Dir != geom.None {
			info.Dir = t.Dir.String()
		}
		if t.Parent != nil {
			info.Origin = &[2]int{t.Parent.X, t.Parent.Y}
		}
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, errorBody{Code: protocol.ErrInvalidTarget, Message: "out of bounds"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleCommand(c *gin.Context) {
	var cmd protocol.CmdMsg
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Code: protocol.ErrProtoBadRequest, Message: err.Error()})
		return
	}
	if cmd.Type == "" {
		cmd.Type = protocol.TypeCmd
	}
	if cmd.ProtocolVersion == "" {
		cmd.ProtocolVersion = protocol.Version
	}
	session := c.GetHeader(SessionHeader)
	if session == "" {
		session = defaultSession
	}
	ack, err := s.cfg.World.Submit(c.Request.Context(), session, cmd)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(statusFor(ack.Code), ack)
}

func (s *Server) slotsOr501(c *gin.Context) bool {
	if s.cfg.Slots == nil {
		c.JSON(http.StatusNotImplemented, errorBody{Code: protocol.ErrInternal, Message: "save slots disabled"})
		return false
	}
	return true
}

func (s *Server) handleListSaves(c *gin.Context) {
	if !s.slotsOr501(c) {
		return
	}
	list, err := s.cfg.Slots.List()
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []slots.Info{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleSave(c *gin.Context) {
	if !s.slotsOr501(c) {
		return
	}
	snap, err := s.cfg.World.Save(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	info, err := s.cfg.Slots.Save(c.Param("name"), snap)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) handleLoad(c *gin.Context) {
	if !s.slotsOr501(c) {
		return
	}
	snap, err := s.cfg.Slots.Load(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.cfg.World.Load(c.Request.Context(), snap); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": c.Param("name"), "tick": snap.Header.Tick})
}

func (s *Server) handleDeleteSave(c *gin.Context) {
	if !s.slotsOr501(c) {
		return
	}
	if err := s.cfg.Slots.Delete(c.Param("name")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
