package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"enrollboard/internal/metrics"
	"enrollboard/internal/pipeline"
	"enrollboard/internal/server"
	"enrollboard/internal/util"
)

const shutdownTimeout = 5 * time.Second

// portSearchLimit 默认端口被占用时向后尝试的端口数
const portSearchLimit = 20

// resolvePort 端口未显式指定时，被占用则向后查找可用端口
func resolvePort(port int, fixed bool) (int, error) {
	if fixed {
		return port, nil
	}
	return util.FindAvailablePort(port, portSearchLimit)
}

func newServeCmd(a *app) *cobra.Command {
	var (
		port      int
		devMode   bool
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg

			// 命令行参数覆盖配置：config.toml 中显式配置的端口优先
			fixedPort := a.info.PortSpecified
			if port > 0 && !fixedPort {
				cfg.Server.Port = port
				fixedPort = true
			}
			listenPort, err := resolvePort(cfg.Server.Port, fixedPort)
			if err != nil {
				return err
			}
			if listenPort != cfg.Server.Port {
				fmt.Printf("端口 %d 已被占用，改用 %d\n", cfg.Server.Port, listenPort)
				cfg.Server.Port = listenPort
			}
			if devMode {
				cfg.Server.DevMode = true
			}
			if noBrowser {
				cfg.Server.OpenBrowser = false
			}

			fmt.Println("==========================================")
			fmt.Printf("  %s\n", cfg.Server.Title)
			fmt.Println("==========================================")
			if a.info.FromFile {
				fmt.Printf("配置文件: %s\n", a.info.Path)
			}
			fmt.Printf("数据源: %s\n", cfg.Source.URL)

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m, err := metrics.New(registry)
			if err != nil {
				return err
			}

			p, err := pipeline.New(cfg, pipeline.WithMetrics(m), pipeline.WithLogger(a.logger))
			if err != nil {
				return err
			}

			srv := server.NewServer(cfg, p, registry, a.logger)

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

			errCh := make(chan error, 1)
			go func() {
				fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
				errCh <- srv.Run(addr)
			}()

			// 打开浏览器
			if cfg.Server.OpenBrowser && !cfg.Server.DevMode {
				fmt.Printf("正在打开浏览器: %s\n", url)
				if err := util.OpenBrowserWithFallback(url); err != nil {
					fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
				}
			} else {
				fmt.Printf("请访问 %s\n", url)
			}

			fmt.Println("\n按 Ctrl+C 停止服务...")

			// 等待信号或服务异常退出
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("服务启动失败: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			fmt.Println("\n正在关闭服务...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("Graceful shutdown failed", zap.Error(err))
				return err
			}
			return <-errCh
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "开发模式（请求日志，不打开浏览器）")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "不自动打开浏览器")
	return cmd
}
