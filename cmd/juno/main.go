// juno: cloud voice brain for the Juno desk robot.
// Connects to a realtime speech provider, streams microphone audio up and
// assistant audio down, and serves a local dashboard.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/junolabs/go-juno/internal/config"
	"github.com/junolabs/go-juno/internal/log"
	"github.com/junolabs/go-juno/pkg/audio"
	"github.com/junolabs/go-juno/pkg/debug"
	"github.com/junolabs/go-juno/pkg/realtime"
	"github.com/junolabs/go-juno/pkg/tools"
	"github.com/junolabs/go-juno/pkg/web"
)

var (
	version   = "1.0.0"
	port      = flag.String("port", config.DefaultDashboardPort, "Dashboard HTTP port")
	logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	debugFlag = flag.Bool("debug", false, "Enable debug logging")
	debugWire = flag.Bool("debug-wire", false, "Log raw websocket traffic (very verbose)")
)

func main() {
	flag.Parse()
	debug.Enabled = *debugFlag
	debug.Wire = *debugWire
	log.Init(*logLevel)

	log.Info("juno starting", "version", version)

	settings := config.Settings()

	registry := tools.NewRegistry()
	if err := registry.RegisterAll(tools.Builtin(tools.BuiltinConfig{})); err != nil {
		log.Error("tool registration failed", "err", err)
		os.Exit(1)
	}
	settings.Tools = registry.Definitions()

	client, err := realtime.NewClient(settings)
	if err != nil {
		log.Error("client setup failed", "err", err)
		os.Exit(1)
	}

	// Speaker path: playback clock in front of a GStreamer pipeline.
	pipeline := audio.NewPipeline(settings.OutputSampleRate)
	playback := audio.NewPlayback(settings.OutputSampleRate)
	playback.Output = pipeline.Write
	playback.OnStop = pipeline.Stop

	server := web.NewServer(*port)
	server.OnToolTrigger = registry.Execute
	server.OnInterrupt = client.Interrupt
	server.ListTools = func() []web.ToolInfo {
		defs := registry.Definitions()
		infos := make([]web.ToolInfo, len(defs))
		for i, d := range defs {
			infos[i] = web.ToolInfo{Name: d.Name, Description: d.Description}
		}
		return infos
	}
	server.UpdateState(func(st *web.AgentState) {
		st.Provider = string(settings.Provider)
		st.Model = client.Settings().Model
		st.TurnState = realtime.TurnListening.String()
	})

	d := client.Dispatcher()
	d.Audio = playback
	d.Transcript = server
	d.Tools = registry
	d.OnError = func(err error) {
		server.AddLog("error", err.Error())
		server.UpdateState(func(st *web.AgentState) {
			st.LastError = err.Error()
		})
	}

	client.Turns().OnChange = func(from, to realtime.TurnState) {
		server.UpdateState(func(st *web.AgentState) {
			st.TurnState = to.String()
		})
	}
	client.OnStateChange = func(state realtime.ConnState) {
		server.UpdateState(func(st *web.AgentState) {
			st.Connected = state == realtime.StateConnected
			if !st.Connected {
				st.SessionReady = false
			}
		})
	}
	client.OnReady = func(err error) {
		if err != nil {
			server.UpdateState(func(st *web.AgentState) {
				st.LastError = err.Error()
			})
			return
		}
		server.UpdateState(func(st *web.AgentState) {
			st.SessionReady = true
		})
		server.AddLog("info", "Session ready")
	}
	client.OnDisconnect = func(err error) {
		server.AddLog("error", "Connection lost: "+err.Error())
	}

	server.StartAsync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = client.Connect(ctx)
	cancel()
	if err != nil {
		log.Error("connect failed", "err", err)
		os.Exit(1)
	}

	// Run until interrupted.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("juno shutting down")
	client.Close()
	playback.InterruptNow()
	server.Shutdown()
}
