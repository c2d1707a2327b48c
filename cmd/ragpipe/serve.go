package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viant/mcp-protocol/schema"
	mcpsrv "github.com/viant/mcp/server"

	rmcp "github.com/viant/ragpipe/mcp"
	"github.com/viant/ragpipe/service"
)

func serveCmd(args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	common := registerCommon(flags)
	mcpAddr := flags.String("mcp-addr", "", "MCP server address (default from config or 127.0.0.1:6071)")
	metricsLog := flags.Bool("metrics-log", false, "log mcp metric lines")
	flags.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := common.service(ctx)
	defer func() { _ = svc.Close() }()

	addr := resolveMCPAddr(*mcpAddr, svc.Config())
	var logf func(format string, args ...any)
	if *metricsLog {
		logf = log.Printf
	}

	server, err := mcpsrv.New(
		mcpsrv.WithImplementation(schema.Implementation{Name: "ragpipe-mcp", Version: "0.1.0"}),
		mcpsrv.WithNewHandler(rmcp.NewHandler(svc, logf)),
		mcpsrv.WithEndpointAddress(addr),
		mcpsrv.WithRootRedirect(true),
		mcpsrv.WithStreamableURI("/mcp"),
	)
	if err != nil {
		log.Fatal(err)
	}

	server.UseStreamableHTTP(true)
	httpServer := server.HTTP(ctx, addr)
	httpServer.ReadHeaderTimeout = 10 * time.Second
	httpServer.ReadTimeout = 60 * time.Second
	// ask may wait on the generator for longer than a plain request
	httpServer.WriteTimeout = 3 * time.Minute
	httpServer.IdleTimeout = 120 * time.Second

	log.Printf("ragpipe-mcp listening on %s", httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %v", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
		return
	}
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Printf("ragpipe-mcp stopped")
}

func resolveMCPAddr(flagAddr string, cfg *service.Config) string {
	if flagAddr != "" {
		return flagAddr
	}
	if cfg != nil {
		if cfg.MCPServer.Addr != "" {
			return cfg.MCPServer.Addr
		}
		if cfg.MCPServer.Port > 0 {
			return fmt.Sprintf("127.0.0.1:%d", cfg.MCPServer.Port)
		}
	}
	return "127.0.0.1:6071"
}
