package griddy

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tetraslam/griddy/internal/confidence"
	"github.com/tetraslam/griddy/internal/dispatch"
	"github.com/tetraslam/griddy/internal/escalation"
	"github.com/tetraslam/griddy/internal/forecast"
	"github.com/tetraslam/griddy/internal/link"
	"github.com/tetraslam/griddy/internal/logging"
	"github.com/tetraslam/griddy/internal/metrics"
	"github.com/tetraslam/griddy/internal/ring"
	"github.com/tetraslam/griddy/internal/wire"
)

// Controller owns the ring, metrics, link handles, and config for one
// process lifetime; there is no package-level mutable state.
type Controller struct {
	cfg       Config
	solver    dispatch.Solver
	escClient *escalation.Client
	logger    *logging.Logger

	// OnCycleReport, if set, is invoked with every completed CycleReport.
	// Used by the dashboard/metrics surface, which is out of scope here.
	OnCycleReport func(CycleReport)

	mu      sync.Mutex // guards ring + metrics, per the single-mutex concurrency model
	ring    *ring.Ring
	metrics *metrics.Metrics

	outLink *link.Link
	inLink  *link.Link
	ready   *link.Ready

	cycleInFlight atomic.Bool

	sourceByte map[string]uint8
}

// NewController constructs a Controller. solver and escClient are injected
// capabilities, substitutable in tests; escClient may be nil, in which case
// the escalation gate never fires.
func NewController(cfg Config, solver dispatch.Solver, escClient *escalation.Client, logger *logging.Logger) *Controller {
	sourceByte := make(map[string]uint8, len(cfg.Sources))
	for i, s := range cfg.Sources {
		sourceByte[s.ID] = uint8(i + 1)
	}

	return &Controller{
		cfg:        cfg,
		solver:     solver,
		escClient:  escClient,
		logger:     logger,
		ring:       ring.New(cfg.RingCapacity),
		metrics:    metrics.New(),
		ready:      link.NewReady(),
		sourceByte: sourceByte,
	}
}

// Start wires the /out and /in links against the device resolved by
// resolveIP and runs until ctx is cancelled. The /in link does not begin
// connecting until /out has decoded at least one telemetry frame.
func (c *Controller) Start(ctx context.Context, resolveIP func() string) {
	c.outLink = link.NewLink("out", func() string { return "ws://" + resolveIP() + "/out" }, c.logger)
	c.inLink = link.NewLink("in", func() string { return "ws://" + resolveIP() + "/in" }, c.logger)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		c.outLink.Run(ctx, c.handleOutFrame)
	}()

	go func() {
		defer wg.Done()
		select {
		case <-c.ready.Done():
		case <-ctx.Done():
			return
		}
		c.inLink.Run(ctx, func([]byte) error { return nil })
	}()

	wg.Wait()
}

func (c *Controller) handleOutFrame(b []byte) error {
	pkt, err := wire.DecodeTelemetry(b)
	if err != nil {
		c.mu.Lock()
		c.metrics.IncrDecodeErrors()
		c.mu.Unlock()
		return WrapError("Controller.handleOutFrame", ErrCodeDecode, err)
	}

	c.ready.Fire()

	c.mu.Lock()
	for _, n := range pkt.Nodes {
		if n.Type != wire.NodeTypeConsumer {
			continue
		}
		c.ring.Push(ring.Record{
			Timestamp:   pkt.Timestamp,
			NodeID:      fmt.Sprint(n.ID),
			DemandAmps:  float64(n.Demand),
			Fulfillment: float64(n.Fulfillment),
		})
	}
	c.metrics.RecordInbound(time.Now())
	c.mu.Unlock()

	if c.cycleInFlight.CompareAndSwap(false, true) {
		go c.runCycle(context.Background())
	}
	return nil
}

func (c *Controller) runCycle(parent context.Context) {
	defer c.cycleInFlight.Store(false)

	cycleID := uuid.New()
	ctx, cancel := context.WithTimeout(parent, time.Duration(c.cfg.CycleDeadlineMS)*time.Millisecond)
	defer cancel()

	c.mu.Lock()
	if c.ring.Len() < 3 {
		c.mu.Unlock()
		return
	}
	snapshot := c.ring.Snapshot()
	c.mu.Unlock()

	aggregated := ring.Aggregate(snapshot)
	nodes := make([]string, 0, len(aggregated))
	for id := range aggregated {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	forecastCfg := forecast.Config{
		MinHistory:         c.cfg.MinHistory,
		SpectralComponents: c.cfg.SpectralComponents,
		BlendDecay:         c.cfg.BlendDecay,
	}
	forecastMap := make(map[string][]float64, len(nodes))
	for _, id := range nodes {
		hist := make([]float64, len(aggregated[id].History))
		for i, r := range aggregated[id].History {
			hist[i] = r.DemandAmps
		}
		forecastMap[id] = forecast.Project(hist, c.cfg.Horizon, forecastCfg)
	}

	model := dispatch.BuildModel(c.cfg.Sources, nodes, forecastMap, dispatch.Config{
		Horizon:       c.cfg.Horizon,
		UnmetPenalty:  c.cfg.UnmetPenalty,
		SwitchPenalty: c.cfg.SwitchPenalty,
	})

	start := time.Now()
	sol, err := c.solver.Solve(ctx, model, time.Duration(c.cfg.SolverDeadlineMS)*time.Millisecond)
	optTimeMS := float64(time.Since(start).Microseconds()) / 1000.0

	if ctx.Err() != nil {
		c.logger.Warn("cycle deadline exceeded, abandoning", "cycle", cycleID)
		return
	}
	if err != nil || sol == nil || sol.Status == dispatch.StatusInfeasible || sol.Status == dispatch.StatusNoSolution {
		sol = &dispatch.Solution{Status: dispatch.StatusNoSolution, Values: map[string]float64{}}
	}

	insts := dispatch.Extract(model, sol)

	totalSupply := 0.0
	for _, inst := range insts {
		totalSupply += inst.SupplyAmps
	}
	totalDemand := 0.0
	for _, id := range nodes {
		totalDemand += aggregated[id].LatestDemand
	}
	recentDemands := make([]float64, 0, len(snapshot))
	for _, r := range snapshot {
		recentDemands = append(recentDemands, r.DemandAmps)
	}

	conf := confidence.Score(confidence.Inputs{
		OptTimeMS:     optTimeMS,
		TotalSupply:   totalSupply,
		TotalDemand:   totalDemand,
		RecentDemands: recentDemands,
	})
	failed := sol.Status == dispatch.StatusNoSolution
	if failed {
		conf = 0
	}

	escalated := false
	if c.escClient != nil && confidence.ShouldEscalate(conf, confidence.Config{Threshold: c.cfg.ConfidenceThreshold}) {
		insts, conf, escalated = c.tryEscalate(ctx, cycleID, nodes, aggregated, optTimeMS, conf, insts)
	}

	if ctx.Err() != nil {
		c.logger.Warn("cycle deadline exceeded during escalation, abandoning", "cycle", cycleID)
		return
	}

	c.sendDispatch(insts)

	unmetTotal := 0.0
	for _, id := range nodes {
		unmetTotal += sol.Values[fmt.Sprintf("u|%s|1", id)]
	}

	c.mu.Lock()
	c.metrics.RecordOptTime(optTimeMS)
	c.metrics.RecordDispatchCount(len(insts))
	c.metrics.RecordConfidence(conf)
	c.mu.Unlock()

	report := CycleReport{
		CycleID:        cycleID,
		OptTimeMS:      optTimeMS,
		Confidence:     conf,
		DispatchCount:  len(insts),
		UnmetTotalAmps: unmetTotal,
		Escalated:      escalated,
		Failed:         failed,
	}
	if c.OnCycleReport != nil {
		c.OnCycleReport(report)
	}
}

func (c *Controller) tryEscalate(
	ctx context.Context,
	cycleID uuid.UUID,
	nodes []string,
	aggregated map[string]*ring.NodeState,
	optTimeMS, deterministicConf float64,
	fallback []dispatch.Instruction,
) ([]dispatch.Instruction, float64, bool) {
	req := escalation.Request{
		OptTimeMS:         optTimeMS,
		DeterministicConf: deterministicConf,
	}
	for _, id := range nodes {
		req.Readings = append(req.Readings, escalation.NodeReading{
			ID:          id,
			Type:        "consumer",
			DemandAmps:  aggregated[id].LatestDemand,
			Fulfillment: aggregated[id].LatestFulfillment,
		})
	}
	for _, s := range c.cfg.Sources {
		req.Sources = append(req.Sources, escalation.SourceInfo{
			ID:            s.ID,
			MaxSupplyAmps: s.MaxSupplyAmps,
			CostPerAmp:    s.CostPerAmp,
			RampLimitAmps: s.RampLimitAmps,
		})
	}

	escStart := time.Now()
	resp, err := c.escClient.Escalate(ctx, req)
	escTimeMS := float64(time.Since(escStart).Microseconds()) / 1000.0

	c.mu.Lock()
	c.metrics.RecordEscalationTime(escTimeMS)
	if err != nil {
		c.metrics.IncrEscalationFailures()
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("escalation failed, deterministic result stands", "cycle", cycleID, "error", err)
		return fallback, deterministicConf, false
	}

	insts := make([]dispatch.Instruction, 0, len(resp.Decisions))
	for _, d := range resp.Decisions {
		insts = append(insts, dispatch.Instruction{NodeID: d.ID, SupplyAmps: d.SupplyAmps, SourceID: d.SourceID})
	}
	return insts, resp.Confidence, true
}

func (c *Controller) sendDispatch(insts []dispatch.Instruction) {
	nodes := make([]wire.DispatchNode, 0, len(insts))
	for _, inst := range insts {
		id, ok := nodeIDToByte(inst.NodeID)
		if !ok {
			c.logger.Warn("dropping instruction with non-byte node id", "node", inst.NodeID)
			continue
		}
		supply := inst.SupplyAmps / c.cfg.SupplyRefAmps
		if supply < 0 {
			supply = 0
		}
		if supply > 1 {
			supply = 1
		}
		src, ok := c.sourceByte[inst.SourceID]
		if !ok {
			src = 1
		}
		nodes = append(nodes, wire.DispatchNode{ID: id, Supply: float32(supply), Source: src})
	}

	frame, err := wire.EncodeDispatch(&wire.DispatchPacket{Nodes: nodes})
	if err != nil {
		c.logger.Warn("failed to encode dispatch frame", "error", err)
		return
	}

	if c.inLink == nil || c.inLink.State() != link.Open {
		c.logger.Debug("dropping dispatch, /in link not open")
		return
	}
	if err := c.inLink.Send(frame); err != nil {
		c.logger.Warn("failed to send dispatch frame", "error", err)
		return
	}
	c.mu.Lock()
	c.metrics.RecordOutbound(time.Now())
	c.mu.Unlock()
}

func nodeIDToByte(id string) (uint8, bool) {
	v, err := strconv.ParseUint(id, 10, 8)
	if err != nil {
		return 0, false
	}
	return uint8(v), true
}

// MetricsSnapshot exposes the controller's current rolling-window metrics.
func (c *Controller) MetricsSnapshot() metrics.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics.Snapshot()
}
