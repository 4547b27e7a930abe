package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/weather-hub/weather-hub/internal/cache"
	"github.com/weather-hub/weather-hub/internal/config"
	"github.com/weather-hub/weather-hub/internal/logging"
	"github.com/weather-hub/weather-hub/internal/provider"
	"github.com/weather-hub/weather-hub/internal/server"
	"github.com/weather-hub/weather-hub/internal/server/routes"
	"github.com/weather-hub/weather-hub/internal/version"
	"github.com/weather-hub/weather-hub/internal/weather"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["namespace"] = cfg.Global.Namespace
		fields["fresh_ttl"] = cfg.Global.FreshTTL.DurationValue().String()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → Redis 存储 → 上游客户端 → Service → Fiber server”
	// 顺序，保证所有请求共享同一份存储连接池与防踩踏实例。
	store, err := cache.NewRedisStore(cache.RedisOptions{
		URL:         cfg.Global.RedisURL,
		PoolSize:    cfg.Global.RedisPoolSize,
		DialTimeout: cfg.Global.RedisDialTimeout.DurationValue(),
		ReadTimeout: cfg.Global.RedisReadTimeout.DurationValue(),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化 Redis 存储失败: %v\n", err)
		return 1
	}

	upstream := provider.NewClient(provider.ClientOptions{
		HTTPClient: provider.NewHTTPClient(cfg.Global.UpstreamTimeout.DurationValue()),
		Retries:    cfg.Global.UpstreamRetries,
	})

	service, err := weather.NewService(weather.Options{
		Store:  store,
		Keys:   cache.NewKeys(cfg.Global.Namespace),
		Policy: cachePolicy(cfg),
		Fetch:  upstream.CurrentByCity,
		Logger: logger,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建天气服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["namespace"] = cfg.Global.Namespace
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, service, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("weather-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 WEATHER_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("WEATHER_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// cachePolicy 把配置中的缓存时间参数映射为 Guard 的 Options。
func cachePolicy(cfg *config.Config) cache.Options {
	return cache.Options{
		FreshTTL:     cfg.Global.FreshTTL.DurationValue(),
		StaleTTL:     cfg.Global.StaleTTL.DurationValue(),
		JitterMax:    cfg.Global.JitterMax.DurationValue(),
		LockTTL:      cfg.Global.LockTTL.DurationValue(),
		WaitDeadline: cfg.Global.WaitDeadline.DurationValue(),
		PollInterval: cfg.Global.PollInterval.DurationValue(),
	}
}

func startHTTPServer(cfg *config.Config, service *weather.Service, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Service:    service,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterStatusRoutes(app, service, logger)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
