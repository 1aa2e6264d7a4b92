// Command griddy runs the microgrid dispatch scheduling engine: it
// connects to the field device's /out and /in WebSocket endpoints, runs the
// forecast/MILP/confidence pipeline on every telemetry frame, and streams
// dispatch commands back.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tetraslam/griddy"
	"github.com/tetraslam/griddy/internal/discovery"
	"github.com/tetraslam/griddy/internal/dispatch"
	"github.com/tetraslam/griddy/internal/escalation"
	"github.com/tetraslam/griddy/internal/logging"
)

func main() {
	var (
		sourcesFlag   = flag.String("sources", "", "comma-separated id:max_amps:cost_per_amp[:ramp_limit_amps] source list")
		kvURL         = flag.String("kv-url", "", "key-value URL returning the device IP as plain text")
		fallbackIP    = flag.String("fallback-ip", "192.168.1.1", "fallback device IP if kv-url lookup fails")
		llmEndpoint   = flag.String("llm-endpoint", "", "escalation RPC endpoint (empty disables escalation)")
		llmAPIKey     = flag.String("llm-api-key", "", "escalation RPC API key")
		horizon       = flag.Int("horizon", 10, "forecast/MILP horizon in epochs")
		ringCapacity  = flag.Int("ring-capacity", 1000, "demand history ring capacity")
		confThreshold = flag.Float64("confidence-threshold", 0.5, "escalation confidence threshold")
		supplyRef     = flag.Float64("supply-ref-amps", 5.0, "amps-to-PWM normalization reference")
		solverMS      = flag.Int("solver-deadline-ms", 500, "MILP solver wall-clock deadline")
		cycleMS       = flag.Int("cycle-deadline-ms", 83, "cycle abandonment deadline")
		verbose       = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	cfg := griddy.DefaultConfig()
	cfg.KVURL = *kvURL
	cfg.FallbackIP = *fallbackIP
	cfg.LLMEndpoint = *llmEndpoint
	cfg.LLMAPIKey = *llmAPIKey
	cfg.Horizon = *horizon
	cfg.RingCapacity = *ringCapacity
	cfg.ConfidenceThreshold = *confThreshold
	cfg.SupplyRefAmps = *supplyRef
	cfg.SolverDeadlineMS = *solverMS
	cfg.CycleDeadlineMS = *cycleMS

	sources, err := parseSources(*sourcesFlag)
	if err != nil {
		logger.Error("invalid -sources flag", "error", err)
		os.Exit(2)
	}
	cfg.Sources = sources

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(2)
	}

	var escClient *escalation.Client
	if cfg.LLMEndpoint != "" {
		escClient = escalation.NewClient(cfg.LLMEndpoint, cfg.LLMAPIKey)
	}

	controller := griddy.NewController(cfg, dispatch.NewBranchBoundSolver(), escClient, logger)
	controller.OnCycleReport = func(r griddy.CycleReport) {
		logger.Debug("cycle complete",
			"cycle", r.CycleID, "opt_ms", r.OptTimeMS, "confidence", r.Confidence,
			"dispatched", r.DispatchCount, "unmet", r.UnmetTotalAmps, "escalated", r.Escalated)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolveIP := func() string {
		return discovery.ResolveDeviceIP(ctx, cfg.KVURL, cfg.FallbackIP)
	}

	// The link manager redials resolveIP forever on disconnect, so a
	// transient kv-url outage is never fatal. But if the very first
	// resolution comes back empty, there is no fallback to retry with
	// either — the device address cannot be known at all, and looping
	// link.Run forever against "ws:///out" would hang silently instead
	// of reporting the real problem. Fail fast once, here, instead.
	if resolveIP() == "" {
		logger.Error("device address could not be resolved and no fallback-ip is set")
		os.Exit(3)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		controller.Start(ctx, resolveIP)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	cancel()

	select {
	case <-done:
		logger.Info("stopped cleanly")
	case <-time.After(2 * time.Second):
		logger.Info("shutdown timeout, forcing exit")
	}

	os.Exit(0)
}

// parseSources parses "id:max:cost[:ramp],..." into EnergySource values. An
// omitted ramp segment means the source has no ramp limit.
func parseSources(spec string) ([]dispatch.EnergySource, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var out []dispatch.EnergySource
	for _, part := range strings.Split(spec, ",") {
		fields := strings.Split(part, ":")
		if len(fields) < 3 || len(fields) > 4 {
			return nil, fmt.Errorf("source %q: expected id:max:cost[:ramp]", part)
		}
		max, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("source %q: invalid max_supply_amps: %w", part, err)
		}
		cost, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("source %q: invalid cost_per_amp: %w", part, err)
		}
		src := dispatch.EnergySource{ID: fields[0], MaxSupplyAmps: max, CostPerAmp: cost}
		if len(fields) == 4 {
			ramp, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, fmt.Errorf("source %q: invalid ramp_limit_amps: %w", part, err)
			}
			src.HasRampLimit = true
			src.RampLimitAmps = ramp
		}
		out = append(out, src)
	}
	return out, nil
}
