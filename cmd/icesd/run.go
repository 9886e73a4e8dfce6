/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir-ices/internal/adminserver"
	"github.com/friendsincode/grimnir-ices/internal/config"
	"github.com/friendsincode/grimnir-ices/internal/crossfade"
	"github.com/friendsincode/grimnir-ices/internal/cuefile"
	"github.com/friendsincode/grimnir-ices/internal/eventbus"
	"github.com/friendsincode/grimnir-ices/internal/icecast"
	"github.com/friendsincode/grimnir-ices/internal/logbuffer"
	"github.com/friendsincode/grimnir-ices/internal/logging"
	"github.com/friendsincode/grimnir-ices/internal/metacache"
	"github.com/friendsincode/grimnir-ices/internal/orchestrator"
	"github.com/friendsincode/grimnir-ices/internal/outputstream"
	"github.com/friendsincode/grimnir-ices/internal/playhistory"
	"github.com/friendsincode/grimnir-ices/internal/playlist"
	"github.com/friendsincode/grimnir-ices/internal/plugin"
	"github.com/friendsincode/grimnir-ices/internal/reencode"
	"github.com/friendsincode/grimnir-ices/internal/signals"
	"github.com/friendsincode/grimnir-ices/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start streaming to every configured destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logs := logbuffer.New(2000)
	var logFile *logging.FileWriter
	additionalWriter := io.Writer(logbuffer.NewWriter(logs))
	if cfg.LogFile != "" {
		logFile, err = logging.NewFileWriter(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer logFile.Close()
		additionalWriter = zerolog.MultiLevelWriter(additionalWriter, logFile)
	}
	log := logging.SetupWithWriter(cfg.Environment, additionalWriter)
	log = log.With().Str("run_id", cfg.RunID).Logger()

	for _, w := range cfg.LegacyEnvWarnings {
		log.Warn().Msg(w)
	}

	tp, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "icesd",
		ServiceVersion: cfg.RunID,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, log)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer tp.Shutdown(context.Background())

	source, err := buildPlaylistSource(log, cfg)
	if err != nil {
		return fmt.Errorf("playlist: %w", err)
	}

	destinations, err := buildDestinations(log, cfg)
	if err != nil {
		return fmt.Errorf("destinations: %w", err)
	}

	chainPlugins := make([]plugin.Plugin, 0, 1)
	if cfg.ReplayGainEnabled {
		chainPlugins = append(chainPlugins, plugin.NewReplayGain(log, math.Pow(10, cfg.ReplayGainPreampDB/20)))
	}
	chain := plugin.NewChain(chainPlugins...)

	var ring *crossfade.Ring
	if cfg.CrossfadeEnabled {
		ring = crossfade.NewRing(log, cfg.CrossfadeSeconds, cfg.CrossfadeMinSeconds, cfg.Crossmix, 44100)
	}

	decoder := reencode.NewDecoder(log)

	var cue *cuefile.Writer
	if cfg.CuePath != "" {
		cue = cuefile.New(cfg.CuePath)
	}

	flags, stopSignals := signals.Watch(log)
	defer stopSignals()

	orch := orchestrator.New(log, source, destinations, chain, ring, decoder, cue, flags)
	if logFile != nil {
		orch.SetLogReopener(logFile)
	}

	if cfg.MetaCacheEnabled {
		cache := metacache.New(metacache.Config{
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisDB:       cfg.RedisDB,
			TTL:           metacache.DefaultTTL,
		}, log)
		defer cache.Close()
		for _, d := range destinations {
			d.Stream.SetMetaCache(cache)
		}
	}

	if cfg.EventBusEnabled {
		bus := eventbus.New(eventbus.NATSConfig{
			URL:           cfg.NATSURL,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			Timeout:       5 * time.Second,
			MaxFailures:   5,
		}, cfg.RunID, log)
		defer bus.Close()
		orch.SetEventBus(bus)
		for _, d := range destinations {
			d.Stream.SetEventBus(bus)
		}
	}

	if cfg.PlayHistoryEnabled {
		store, err := playhistory.Open(playhistory.Backend(cfg.DBBackend), cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("playhistory: %w", err)
		}
		defer store.Close()
		orch.SetHistory(store)
	}

	admin, err := adminserver.New(log, adminserver.Config{
		Bind:           cfg.AdminBind,
		Port:           cfg.AdminPort,
		AdminTokenHash: cfg.AdminTokenHash,
		SessionTTL:     cfg.AdminSessionTTL,
	}, orch, flags, logs)
	if err != nil {
		return fmt.Errorf("adminserver: %w", err)
	}

	adminErrCh := make(chan error, 1)
	go func() { adminErrCh <- admin.ListenAndServe() }()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- orch.Run(ctx) }()

	var runErr error
	select {
	case runErr = <-runErrCh:
	case err := <-adminErrCh:
		log.Error().Err(err).Msg("admin HTTP surface failed")
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("admin HTTP surface shutdown")
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("icesd stopped with error")
		return runErr
	}
	log.Info().Msg("icesd stopped")
	return nil
}

func buildPlaylistSource(log zerolog.Logger, cfg *config.Config) (playlist.Source, error) {
	switch cfg.PlaylistMode {
	case config.PlaylistBuiltin:
		return playlist.NewBuiltin(log, cfg.PlaylistPath, cfg.PlaylistShuffle)
	case config.PlaylistS3:
		return playlist.NewS3(context.Background(), log, cfg.PlaylistS3Bucket, cfg.PlaylistS3Prefix)
	case config.PlaylistScript:
		return playlist.NewScript(log, cfg.PlaylistScriptCmd)
	case config.PlaylistStatic:
		return playlist.NewStatic(log, cfg.PlaylistPath)
	default:
		return nil, fmt.Errorf("unsupported playlist mode %q", cfg.PlaylistMode)
	}
}

func buildDestinations(log zerolog.Logger, cfg *config.Config) ([]*orchestrator.Destination, error) {
	destinations := make([]*orchestrator.Destination, 0, len(cfg.Streams))
	for _, sc := range cfg.Streams {
		outCfg := outputstreamConfig(sc)

		transport, err := icecast.NewTransport(outCfg)
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", sc.Name, err)
		}

		stream := outputstream.New(log, outCfg, transport)

		var encoder *reencode.Encoder
		if sc.Reencode {
			encoder = reencode.NewEncoder(log, reencode.StreamEncodeConfig{
				BitrateKbps:   sc.BitrateKbps,
				OutSampleRate: sc.OutSampleRate,
				OutChannels:   sc.OutChannels,
			})
		}

		destinations = append(destinations, &orchestrator.Destination{Stream: stream, Encoder: encoder})
	}
	return destinations, nil
}

func outputstreamConfig(sc config.StreamConfig) outputstream.Config {
	proto := outputstream.ProtocolHTTP
	switch sc.Protocol {
	case config.ProtocolXAudiocast:
		proto = outputstream.ProtocolXAudiocast
	case config.ProtocolICY:
		proto = outputstream.ProtocolICY
	}

	return outputstream.Config{
		Host:          sc.Host,
		Mount:         sc.Mount,
		Port:          sc.Port,
		Password:      sc.Password,
		Protocol:      proto,
		BitrateKbps:   sc.BitrateKbps,
		OutSampleRate: sc.OutSampleRate,
		OutChannels:   sc.OutChannels,
		Reencode:      sc.Reencode,
		Name:          sc.StreamName,
		Genre:         sc.Genre,
		Description:   sc.Description,
		URL:           sc.URL,
		Public:        sc.Public,
		DumpFile:      sc.DumpFile,
	}
}

func init() {
	runCmd.SilenceUsage = true
}
