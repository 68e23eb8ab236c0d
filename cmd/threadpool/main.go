// Package main is the entry point for the thread pool demo.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadpool/internal/config"
	"threadpool/internal/events"
	"threadpool/internal/httpd"
	"threadpool/internal/logger"
	"threadpool/internal/pool"
	"threadpool/internal/scenario"

	"github.com/go-co-op/gocron"
)

var (
	version = "dev"
)

const (
	defaultAddr          = "127.0.0.1:7878"
	defaultAdminAddr     = ":8080"
	defaultStatsInterval = 10 * time.Second
)

// options はコマンドラインフラグ
type options struct {
	configFile string
	envFile    string
	preset     string
	workers    int
	producers  int
	jobs       int
	logLevel   string
	addr       string
	adminAddr  string
}

func main() {
	var opts options

	// フラグ定義
	flag.StringVar(&opts.configFile, "config", "", "設定ファイルパス (YAML/JSON)")
	flag.StringVar(&opts.envFile, "env", ".env", ".env ファイルパス（存在しなければ無視）")
	flag.StringVar(&opts.preset, "preset", "", "プリセットシナリオ名 (quick, stress, ordering, slow, panic)")
	flag.IntVar(&opts.workers, "workers", 0, "プールのワーカー数")
	flag.IntVar(&opts.producers, "producers", 0, "ジョブ投入ゴルーチン数")
	flag.IntVar(&opts.jobs, "jobs", 0, "投入するジョブ総数")
	flag.StringVar(&opts.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
	flag.StringVar(&opts.addr, "addr", "", "接続サーバーのアドレス (例: 127.0.0.1:7878)")
	flag.StringVar(&opts.adminAddr, "admin-addr", "", "管理サーバーのアドレス (例: :8080)")
	serveMode := flag.Bool("serve", false, "サーバーモードで起動")
	listPresets := flag.Bool("list-presets", false, "利用可能なプリセットを表示")
	showVersion := flag.Bool("version", false, "バージョンを表示")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `threadpool - Fixed-size thread pool

Usage:
  threadpool [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # プリセットシナリオを実行
  threadpool --preset stress

  # 設定ファイルから実行
  threadpool --config threadpool.yaml

  # フラグでカスタマイズ
  threadpool --preset quick --workers 8 --jobs 5000

  # プリセット一覧を表示
  threadpool --list-presets

  # サーバーモードで起動
  threadpool --serve --addr 127.0.0.1:7878 --admin-addr :8080
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("threadpool version %s\n", version)
		return
	}

	// プリセット一覧表示
	if *listPresets {
		printPresets()
		return
	}

	fileConfig, err := buildFileConfig(opts)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	level, err := fileConfig.LogLevel()
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}
	logger.Default.SetLevel(level)

	// サーバーモード
	if *serveMode {
		if err := runServer(fileConfig); err != nil {
			logger.Error("", "サーバーエラー: %v", err)
			os.Exit(1)
		}
		return
	}

	scenarioConfig, err := fileConfig.ToScenarioConfig()
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	// シナリオ実行
	ok, err := runScenario(scenarioConfig)
	if err != nil {
		logger.Error("", "シナリオ実行エラー: %v", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// buildFileConfig は .env、設定ファイル、環境変数、フラグの順に設定を重ねる
func buildFileConfig(opts options) (*config.FileConfig, error) {
	if err := config.LoadEnv(opts.envFile); err != nil {
		return nil, err
	}

	fileConfig := &config.FileConfig{}
	if opts.configFile != "" {
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		fileConfig = loaded
	}

	if err := fileConfig.ApplyEnv(); err != nil {
		return nil, err
	}

	// フラグでオーバーライド
	if opts.preset != "" {
		fileConfig.Scenario.Preset = opts.preset
	}
	if opts.workers > 0 {
		fileConfig.Pool.Size = opts.workers
	}
	if opts.producers > 0 {
		fileConfig.Scenario.Producers = opts.producers
	}
	if opts.jobs > 0 {
		fileConfig.Scenario.Jobs = opts.jobs
	}
	if opts.logLevel != "" {
		fileConfig.Log.Level = opts.logLevel
	}
	if opts.addr != "" {
		fileConfig.Server.Addr = opts.addr
	}
	if opts.adminAddr != "" {
		fileConfig.Server.AdminAddr = opts.adminAddr
	}

	if err := fileConfig.Validate(); err != nil {
		return nil, fmt.Errorf("設定検証エラー: %w", err)
	}
	return fileConfig, nil
}

// runScenario はシナリオを実行し、合否を返す
func runScenario(cfg scenario.Config) (bool, error) {
	fmt.Println("threadpool - Fixed-size thread pool")
	fmt.Println("====================================")
	fmt.Printf("Scenario: %s\n", cfg.Name)
	fmt.Printf("Workers: %d, Producers: %d, Jobs: %d\n", cfg.Workers, cfg.Producers, cfg.Jobs)
	fmt.Println("====================================")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n中断シグナルを受信、投入を打ち切ります...")
			cancel()
		case <-ctx.Done():
		}
	}()

	engine := scenario.New(cfg)
	result, err := engine.Run(ctx)
	if err != nil {
		return false, err
	}

	// レポート出力
	fmt.Println(result.Report())

	return result.OK(), nil
}

// printPresets は利用可能なプリセットを表示する
func printPresets() {
	fmt.Println("利用可能なプリセットシナリオ:")
	fmt.Println()

	for _, name := range scenario.ListPresets() {
		preset, _ := scenario.GetPreset(name)
		fmt.Printf("  %-10s %s\n", name, preset.Description)
	}

	fmt.Println()
	fmt.Println("使用例: threadpool --preset quick")
}

// runServer は接続サーバーと管理サーバーを起動し、シグナルで停止する
func runServer(fileConfig *config.FileConfig) error {
	sleepDelay, statsInterval, err := fileConfig.Server.Durations()
	if err != nil {
		return err
	}
	if statsInterval == 0 {
		statsInterval = defaultStatsInterval
	}

	addr := fileConfig.Server.Addr
	if addr == "" {
		addr = defaultAddr
	}
	adminAddr := fileConfig.Server.AdminAddr
	if adminAddr == "" {
		adminAddr = defaultAdminAddr
	}

	bus := events.NewBus()
	defer bus.Close()

	poolConfig := fileConfig.ToPoolConfig()
	poolConfig.EventBus = bus
	p, err := pool.NewWithConfig(poolConfig)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Println("threadpool - Server Mode")
	fmt.Println("========================")
	fmt.Printf("Workers: %d\n", p.Size())
	fmt.Printf("Serving pages on http://%s\n", addr)
	fmt.Printf("Admin API on http://%s\n", adminAddr)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n中断シグナルを受信、サーバーを終了中...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// 定期的な統計ログ
	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(statsInterval).Do(logStats, p); err != nil {
		return fmt.Errorf("failed to schedule stats: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	connServer := httpd.NewConnServer(httpd.ConnConfig{
		Addr:       addr,
		MaxConns:   fileConfig.Server.MaxConns,
		SleepDelay: sleepDelay,
	}, p)
	adminServer := httpd.NewServer(adminAddr, p, bus)

	errCh := make(chan error, 2)
	go func() { errCh <- connServer.Serve(ctx) }()
	go func() { errCh <- adminServer.Start(ctx) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	logger.Info("", "Shutting down pool with %d workers", p.Size())
	return firstErr
}

// logStats はプールの統計をログに出力する
func logStats(p *pool.ThreadPool) {
	snap := p.Metrics().Snapshot()
	logger.Info("", "Stats: workers=%d/%d queued=%d active=%d completed=%d failed=%d avg=%v p99=%v",
		p.RunningWorkers(), p.Size(), p.QueueLen(),
		snap.ActiveJobs, snap.CompletedJobs, snap.FailedJobs,
		snap.AverageLatency, snap.P99Latency)
}
