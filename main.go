package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/chaos-io/cleanlens/clean"
	"github.com/chaos-io/cleanlens/clean/editor"
	"github.com/chaos-io/cleanlens/config"
	"github.com/chaos-io/cleanlens/server"
	"github.com/chaos-io/cleanlens/tui"
	"github.com/chaos-io/cleanlens/util"
)

const usage = `cleanlens 去除图片水印，拖动分割线对比前后效果

用法:
  cleanlens [view] [-mode photo|video] [文件路径或 URL]   终端查看器（默认）
  cleanlens serve [-addr 127.0.0.1:8080]                  本地网页预览
  cleanlens key set|delete [provider]                     管理钥匙串里的 API Key
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := "view"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "view":
		err = runView(args, stderr)
	case "serve":
		err = runServe(args, stderr)
	case "key":
		err = runKey(args, stdin, stdout)
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func runView(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "photo", "photo 或 video")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 全屏界面占用终端，日志写到文件
	logFile, err := openLogFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer logFile.Close()
	util.InitLogger(cfg.Log.Level, false, logFile)

	orch, err := newOrchestrator(cfg, *mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []tui.Option{tui.WithExportDir(cfg.Process.ExportDir)}
	if fs.NArg() > 0 {
		opts = append(opts, tui.WithInitialPath(fs.Arg(0)))
	}
	log.Info().Str("editor", orch.EditorName()).Str("mode", orch.Mode().String()).Msg("starting viewer")
	return tui.Run(ctx, orch, opts...)
}

func runServe(args []string, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.Server.Addr, "监听地址")
	mode := fs.String("mode", "photo", "photo 或 video")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Server.Addr = *addr

	util.InitLogger(cfg.Log.Level, cfg.Log.Pretty, stderr)
	gin.SetMode(gin.ReleaseMode)

	orch, err := newOrchestrator(cfg, *mode)
	if err != nil {
		return err
	}
	srv, err := server.New(orch, cfg.Server, log.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func runKey(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: cleanlens key set|delete [provider]")
	}
	provider := editor.ProviderGemini
	if len(args) > 1 {
		provider = strings.ToLower(args[1])
	}

	switch args[0] {
	case "set":
		fmt.Fprintf(stdout, "输入 %s 的 API Key: ", provider)
		key, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read api key: %w", err)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return editor.ErrMissingAPIKey
		}
		if err := config.StoreAPIKey(provider, key); err != nil {
			return fmt.Errorf("store api key: %w", err)
		}
		fmt.Fprintf(stdout, "\n已保存 %s 的 API Key\n", provider)
	case "delete":
		if err := config.DeleteAPIKey(provider); err != nil {
			return fmt.Errorf("delete api key: %w", err)
		}
		fmt.Fprintf(stdout, "已删除 %s 的 API Key\n", provider)
	default:
		return fmt.Errorf("unknown key command %q", args[0])
	}
	return nil
}

func newOrchestrator(cfg config.Config, rawMode string) (*clean.Orchestrator, error) {
	mode, err := clean.ParseMode(rawMode)
	if err != nil {
		return nil, err
	}
	ed, err := editor.New(cfg.EditorConfig())
	if err != nil {
		return nil, err
	}
	return clean.New(ed,
		clean.WithMode(mode),
		clean.WithMaxEdge(cfg.Process.MaxEdge),
		clean.WithVideoDelay(cfg.Process.VideoDelay),
		clean.WithLogger(log.Logger),
	), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
