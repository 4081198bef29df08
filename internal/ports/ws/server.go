package ws

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"bidwhist/internal/app"
	"bidwhist/internal/config"
	"bidwhist/internal/ports/wire"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const maxNameLength = 24

// Server hosts any number of tables over HTTP and websockets without Nakama.
type Server struct {
	cfg      config.TableConfig
	svc      *app.Service
	log      *logrus.Logger
	now      func() time.Time
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	tables map[string]*Table
}

// NewServer builds a server. log may be nil to use the logrus standard logger.
func NewServer(cfg config.TableConfig, svc *app.Service, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if svc == nil {
		svc = app.NewService(nil)
	}
	return &Server{
		cfg: cfg,
		svc: svc,
		log: log,
		now: time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tables: make(map[string]*Table),
	}
}

// CreateTable opens a table in its lobby. Zero pointsToWin selects the
// configured default.
func (s *Server) CreateTable(pointsToWin int) (*Table, error) {
	rules, err := s.cfg.Rules(pointsToWin)
	if err != nil {
		return nil, err
	}
	t := newTable(uuid.NewString(), s.cfg, rules, s.svc.Fork(), s.log, s.now)

	s.mu.Lock()
	s.tables[t.id] = t
	s.mu.Unlock()

	t.log.Info("table created")
	return t, nil
}

// Table returns the table with id.
func (s *Server) Table(id string) (*Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	return t, ok
}

// Tables lists open tables by id.
func (s *Server) Tables() []TableInfo {
	s.mu.RLock()
	tables := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	s.mu.RUnlock()

	out := make([]TableInfo, 0, len(tables))
	for _, t := range tables {
		if !t.Closed() {
			out = append(out, t.Info())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tick advances every table's turn clock and drops tables that have ended.
func (s *Server) Tick() {
	s.mu.RLock()
	tables := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	s.mu.RUnlock()

	for _, t := range tables {
		t.tick()
		if t.Closed() {
			s.mu.Lock()
			delete(s.tables, t.id)
			s.mu.Unlock()
			t.close()
			t.log.Info("table removed")
		}
	}
}

// Run ticks tables every interval until ctx is done, then closes them.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for id, t := range s.tables {
				t.close()
				delete(s.tables, id)
			}
			s.mu.Unlock()
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Router exposes the HTTP surface:
//
//	GET  /health
//	GET  /tables
//	POST /tables            {"points_to_win": 11|21}
//	GET  /ws?table=ID&name=NAME[&controller=ID]
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/tables", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Tables())
	})
	r.POST("/tables", s.handleCreateTable)
	r.GET("/ws", s.handleWebSocket)
	return r
}

type createTableRequest struct {
	PointsToWin int `json:"points_to_win"`
}

func (s *Server) handleCreateTable(c *gin.Context) {
	var req createTableRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, wire.ErrorFromErr(wire.ErrMalformed))
			return
		}
	}
	t, err := s.CreateTable(req.PointsToWin)
	if err != nil {
		dto := wire.ErrorFromErr(err)
		c.JSON(dto.Code, dto)
		return
	}
	c.JSON(http.StatusCreated, t.Info())
}

// handleWebSocket upgrades the request and attaches the connection to a
// table. A known controller id reconnects to its seats; otherwise a new id
// is issued. admit answers with a plain HTTP error before the upgrade; join
// repeats the check under the table lock.
func (s *Server) handleWebSocket(c *gin.Context) {
	t, ok := s.Table(c.Query("table"))
	if !ok {
		c.JSON(http.StatusNotFound, wire.ErrorFromErr(ErrTableNotFound))
		return
	}

	controllerID := c.Query("controller")
	if _, err := uuid.Parse(controllerID); err != nil {
		controllerID = uuid.NewString()
	}
	if err := t.admit(controllerID); err != nil {
		dto := wire.ErrorFromErr(err)
		c.JSON(dto.Code, dto)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	cl := newClient(controllerID, displayName(c.Query("name"), controllerID), conn)
	go cl.writePump()
	if err := t.join(cl); err != nil {
		s.log.WithFields(logrus.Fields{"table": t.id, "controller": controllerID}).Warnf("join refused: %v", err)
		return
	}
	cl.readPump(t)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}

func displayName(name, controllerID string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Player-" + controllerID[:8]
	}
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name
}

