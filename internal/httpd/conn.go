package httpd

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"threadpool/internal/logger"
	"threadpool/internal/pool"

	"golang.org/x/net/netutil"
)

//go:embed static/*
var staticFiles embed.FS

const (
	helloPage    = "static/hello.html"
	notFoundPage = "static/404.html"

	defaultSleepDelay  = 5 * time.Second
	defaultReadTimeout = 10 * time.Second
)

// Executor はジョブを受け付けるもの（*pool.ThreadPool が満たす）
type Executor interface {
	Execute(job pool.Job)
}

// ConnConfig は ConnServer の設定
type ConnConfig struct {
	Addr        string        // 待ち受けアドレス
	MaxConns    int           // 同時接続数の上限（0で無制限）
	SleepDelay  time.Duration // /sleep の待ち時間
	ReadTimeout time.Duration // リクエスト読み込みのタイムアウト
}

// DefaultConnConfig はデフォルト設定を返す
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		Addr:        "127.0.0.1:7878",
		SleepDelay:  defaultSleepDelay,
		ReadTimeout: defaultReadTimeout,
	}
}

// ConnServer は受け付けた TCP 接続を一つずつプールのジョブとして処理する
type ConnServer struct {
	config ConnConfig
	pool   Executor

	mu       sync.Mutex
	listener net.Listener

	accepted atomic.Uint64
	served   atomic.Uint64
}

// NewConnServer は新しい ConnServer を作成する
func NewConnServer(config ConnConfig, p Executor) *ConnServer {
	if config.SleepDelay <= 0 {
		config.SleepDelay = defaultSleepDelay
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaultReadTimeout
	}
	return &ConnServer{
		config: config,
		pool:   p,
	}
}

// Serve は設定されたアドレスで待ち受ける
func (s *ConnServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener は ln から接続を受け付け、ctx が終わるまでブロックする
func (s *ConnServer) ServeListener(ctx context.Context, ln net.Listener) error {
	if s.config.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConns)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()

	logger.Info("", "Connection server listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Info("", "Connection server stopped")
				return nil
			}
			return err
		}

		s.accepted.Add(1)
		if err := s.dispatch(conn); err != nil {
			_ = conn.Close()
			logger.Error("", "Connection server stopped: %v", err)
			return err
		}
	}
}

// dispatch は接続をプールに渡す。プールが閉じていればエラーを返す
func (s *ConnServer) dispatch(conn net.Conn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok || !errors.Is(perr, pool.ErrPoolClosed) {
				panic(r)
			}
			err = perr
		}
	}()

	s.pool.Execute(func() {
		s.handleConnection(conn)
	})
	return nil
}

// Addr は待ち受け中のアドレスを返す
func (s *ConnServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Accepted は受け付けた接続数を返す
func (s *ConnServer) Accepted() uint64 {
	return s.accepted.Load()
}

// Served は応答を返し終えた接続数を返す
func (s *ConnServer) Served() uint64 {
	return s.served.Load()
}

// handleConnection はリクエストを一件読み、ページを返して接続を閉じる
func (s *ConnServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		logger.Warn("", "Failed to read request from %s: %v", conn.RemoteAddr(), err)
		return
	}

	status, page := s.route(req)
	body, err := staticFiles.ReadFile(page)
	if err != nil {
		logger.Error("", "Failed to read page %s: %v", page, err)
		return
	}

	resp := &http.Response{
		StatusCode:    status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(bytes.NewReader(body)),
		Close:         true,
		Request:       req,
	}
	if err := resp.Write(conn); err != nil {
		logger.Warn("", "Failed to write response to %s: %v", conn.RemoteAddr(), err)
		return
	}
	s.served.Add(1)
}

// route はリクエストに対応するステータスとページを返す
func (s *ConnServer) route(req *http.Request) (int, string) {
	if req.Method != http.MethodGet {
		return http.StatusNotFound, notFoundPage
	}
	switch req.URL.Path {
	case "/":
		return http.StatusOK, helloPage
	case "/sleep":
		time.Sleep(s.config.SleepDelay)
		return http.StatusOK, helloPage
	default:
		return http.StatusNotFound, notFoundPage
	}
}
