package httpd

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"threadpool/internal/events"
	"threadpool/internal/logger"
	"threadpool/internal/metrics"
	"threadpool/internal/pool"
	"threadpool/internal/scenario"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"
)

// Server はプールの状態を公開する管理サーバー
type Server struct {
	addr     string
	pool     *pool.ThreadPool
	bus      *events.Bus
	registry *prometheus.Registry

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しい管理サーバーを作成する
func NewServer(addr string, p *pool.ThreadPool, bus *events.Bus) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewCollector(p.Metrics(), "threadpool", ""))

	return &Server{
		addr:      addr,
		pool:      p,
		bus:       bus,
		registry:  registry,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// Start はサーバーを開始する
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// イベントを WebSocket クライアントへ転送
	go s.forwardEvents(ctx)

	logger.Info("", "Admin server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Workers        int      `json:"workers"`
	RunningWorkers int      `json:"running_workers"`
	WorkerStates   []string `json:"worker_states"`
	QueueLen       int      `json:"queue_len"`
	Closed         bool     `json:"closed"`
}

func (s *Server) status() StatusResponse {
	states := s.pool.WorkerStates()
	names := make([]string, len(states))
	for i, st := range states {
		names[i] = st.String()
	}

	return StatusResponse{
		Workers:        s.pool.Size(),
		RunningWorkers: s.pool.RunningWorkers(),
		WorkerStates:   names,
		QueueLen:       s.pool.QueueLen(),
		Closed:         s.pool.Closed(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.status())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.pool.Metrics().Snapshot())
}

// PresetInfo はプリセット情報
type PresetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Workers     int    `json:"workers"`
	Producers   int    `json:"producers"`
	Jobs        int    `json:"jobs"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var presets []PresetInfo
	for _, name := range scenario.ListPresets() {
		config, _ := scenario.GetPreset(name)
		presets = append(presets, PresetInfo{
			Name:        config.Name,
			Description: config.Description,
			Workers:     config.Workers,
			Producers:   config.Producers,
			Jobs:        config.Jobs,
		})
	}

	s.writeJSON(w, presets)
}

func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) broadcast(data interface{}) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// forwardEvents はバスのイベントを購読し、全クライアントへ配信する
func (s *Server) forwardEvents(ctx context.Context) {
	if s.bus == nil {
		return
	}
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(map[string]interface{}{
				"type":  "event",
				"event": e,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
