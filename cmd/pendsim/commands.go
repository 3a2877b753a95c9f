package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pendsim/internal/config"
	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/experiment"
	"github.com/san-kum/pendsim/internal/export"
	"github.com/san-kum/pendsim/internal/goal"
	"github.com/san-kum/pendsim/internal/gym"
	"github.com/san-kum/pendsim/internal/harness"
	"github.com/san-kum/pendsim/internal/model"
	"github.com/san-kum/pendsim/internal/optim"
	"github.com/san-kum/pendsim/internal/sim"
	"github.com/san-kum/pendsim/internal/storage"
	"github.com/san-kum/pendsim/internal/viz"
)

func buildModel(cfg *config.Config) (*model.Model, error) {
	m, err := model.New(cfg.Physics, model.WithWorkers(cfg.Harness.Workers))
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	return m, nil
}

// envFactory seeds trajectory i with seed+i.
func envFactory(cfg *config.Config) harness.EnvFactory {
	gcfg := cfg.GymConfig()
	return func(traj int) harness.Env {
		return gym.NewPendulum(gcfg, cfg.Harness.Seed+int64(traj))
	}
}

func harnessOptions(cfg *config.Config, rec *storage.Recorder) []harness.Option {
	opts := []harness.Option{
		harness.WithEpsilon(cfg.Harness.Epsilon),
	}
	if cfg.Harness.Workers > 0 {
		opts = append(opts, harness.WithWorkers(cfg.Harness.Workers))
	}
	if rec != nil {
		opts = append(opts, harness.WithObserver(rec))
	}
	if verbose {
		opts = append(opts, harness.WithObserver(harness.ObserverFunc(func(r harness.StepResult) {
			fmt.Println(viz.RenderStep(r))
		})))
	}
	return opts
}

func runCompare(cmd *cobra.Command, args []string) error {
	return compare(cmd, 0)
}

func runBatched(cmd *cobra.Command, args []string) error {
	n, err := cmd.Flags().GetInt("batch")
	if err != nil {
		return err
	}
	return compare(cmd, n)
}

// compare runs single-step mode when batchSize is 0, batched mode otherwise.
func compare(cmd *cobra.Command, batchSize int) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	var rec *storage.Recorder
	if save {
		rec = &storage.Recorder{}
	}
	opts := harnessOptions(cfg, rec)

	start := time.Now()
	var rep *harness.Report
	if batchSize == 0 {
		rep, err = harness.Compare(cmd.Context(), envFactory(cfg)(0), m, cfg.Harness.TimeSteps, opts...)
	} else {
		rep, err = harness.CompareBatched(cmd.Context(), envFactory(cfg), m, batchSize, cfg.Harness.TimeSteps, opts...)
	}
	if err != nil {
		return err
	}

	fmt.Println(viz.RenderReport(rep, maxShow))
	fmt.Printf("completed in %v\n", time.Since(start))

	if plot {
		fmt.Println(viz.Plot("state diff (cyan) / cost diff (magenta)", 10, 70, rep.StateSeries, rep.CostSeries))
	}

	if rec != nil {
		runID, err := saveRun(cfg, rep, rec.Steps)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return nil
}

func saveRun(cfg *config.Config, rep *harness.Report, results []harness.StepResult) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	return st.Save(storage.RunInfo{Seed: cfg.Harness.Seed, Params: cfg.Physics, Preset: preset}, rep, results)
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tSTEPS\tSTATE DIFF\tCOST DIFF\tSTATE FLAGS\tCOST FLAGS\tVERDICT")

	for _, size := range cfg.Harness.BatchSizes {
		rep, err := harness.CompareBatched(cmd.Context(), envFactory(cfg), m, size, cfg.Harness.TimeSteps, harnessOptions(cfg, nil)...)
		if err != nil {
			return fmt.Errorf("batch size %d: %w", size, err)
		}
		verdict := "clean"
		if !rep.Clean() {
			verdict = "flagged"
		}
		fmt.Fprintf(w, "%d\t%d\t%.6g\t%.6g\t%d\t%d\t%s\n",
			size, rep.Steps, rep.TotalStateDiff, rep.TotalCostDiff, rep.StateFlags, rep.CostFlags, verdict)
	}

	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}
	n, err := cmd.Flags().GetInt("batch")
	if err != nil {
		return err
	}

	var session *harness.Session
	if n <= 1 {
		session, err = harness.NewSingleSession(envFactory(cfg)(0), m, cfg.Harness.TimeSteps, harnessOptions(cfg, nil)...)
	} else {
		session, err = harness.NewBatchedSession(envFactory(cfg), m, n, cfg.Harness.TimeSteps, harnessOptions(cfg, nil)...)
	}
	if err != nil {
		return err
	}

	live := viz.NewLive(cmd.Context(), session)
	if _, err := tea.NewProgram(live).Run(); err != nil {
		return err
	}
	if err := live.Err(); err != nil {
		return err
	}

	fmt.Println(viz.RenderReport(session.Report(), maxShow))
	return nil
}

func runRollout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(experiment.Config{
		Params:           cfg.Physics,
		Integrator:       cfg.Rollout.Integrator,
		Controller:       cfg.Rollout.Controller,
		ControllerParams: cfg.GetControllerParams(),
		InitState:        cfg.GetInitState(),
		Steps:            cfg.Rollout.Steps,
		StopAtGoal:       cfg.Rollout.StopAtGoal,
	})
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}

	if runs > 1 {
		return runEnsemble(cmd, cfg, exp)
	}

	fmt.Printf("rolling out %s/%s from %v...\n", cfg.Rollout.Integrator, cfg.Rollout.Controller, cfg.GetInitState())
	params := exp.Params()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s=%g\n", k, params[k])
	}
	start := time.Now()

	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("steps: %d\n", result.StepsTaken)
	if result.GoalReached {
		fmt.Printf("goal reached at step %d\n", result.GoalStep)
	} else {
		fmt.Println("goal not reached")
	}
	for _, e := range result.Errors {
		fmt.Println(viz.FlagStyle().Render(e.Error()))
	}

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	if plot && len(result.States) > 1 {
		thetas := make([]float64, len(result.States))
		for i, x := range result.States {
			thetas[i] = float64(x.Theta())
		}
		fmt.Println(viz.Plot("theta", 10, 70, thetas))
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, cfg *config.Config, exp *experiment.Experiment) error {
	reg := experiment.NewRegistry()
	if _, err := reg.GetController(cfg.Rollout.Controller, nil); err != nil {
		return err
	}

	ens := sim.NewEnsemble(exp.Model(),
		func(run int) dynamo.Controller {
			params := cfg.GetControllerParams()
			params["seed"] += float64(run)
			ctrl, _ := reg.GetController(cfg.Rollout.Controller, params)
			return ctrl
		},
		func() []dynamo.Metric { return reg.DefaultMetrics(cfg.Physics) },
		runs)

	results, err := ens.Run(cmd.Context(), cfg.GetInitState(), sim.Config{
		Steps:         cfg.Rollout.Steps,
		StopAtGoal:    cfg.Rollout.StopAtGoal,
		ValidateState: true,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTEPS\tTOTAL COST\tGOAL\tENERGY DRIFT")
	costs := make([]float64, len(results))
	for i, r := range results {
		costs[i] = r.TotalCost
		goalStep := "-"
		if r.GoalReached {
			goalStep = strconv.Itoa(r.GoalStep)
		}
		fmt.Fprintf(w, "%d\t%d\t%.6f\t%s\t%.4g\n", i, r.StepsTaken, r.TotalCost, goalStep, r.EnergyDrift)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("total cost: mean %.6f  std %.6f\n", stat.Mean(costs, nil), stat.StdDev(costs, nil))
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	build := func(gains map[string]float64) (*experiment.Experiment, error) {
		params := cfg.GetControllerParams()
		for k, v := range gains {
			params[k] = v
		}
		exp := experiment.New(experiment.Config{
			Params:           cfg.Physics,
			Integrator:       cfg.Rollout.Integrator,
			Controller:       "pid",
			ControllerParams: params,
			InitState:        cfg.GetInitState(),
			Steps:            cfg.Rollout.Steps,
		})
		return exp, exp.Setup(reg)
	}

	gs := optim.NewGridSearch([]string{"kp", "ki", "kd"}, [][]float64{kpGrid, kiGrid, kdGrid})
	fmt.Printf("searching %d gain combinations...\n", len(kpGrid)*len(kiGrid)*len(kdGrid))

	best, cost, err := gs.Search(cmd.Context(), build, "total_cost")
	if err != nil {
		return err
	}
	fmt.Printf("best: kp=%g ki=%g kd=%g  total_cost=%.6f\n", best["kp"], best["ki"], best["kd"], cost)
	return nil
}

func runGoal(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		g := goal.NewGenerator(seed).Next()
		fmt.Printf("goal: theta=%g theta_dot=%g\n", g.Theta(), g.ThetaDot())
		return nil
	}

	v := make([]float32, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
		v[i] = float32(f)
	}

	ok, err := goal.CheckVector(v)
	if err != nil {
		return err
	}
	fmt.Println(viz.Verdict(ok), map[bool]string{true: "goal reached", false: "not a goal"}[ok])
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tTIME\tBATCH\tSTEPS\tSEED\tSTATE DIFF\tCOST DIFF\tFLAGS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.4g\t%.4g\t%d\n",
			run.ID,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.BatchSize,
			run.Steps,
			run.Seed,
			run.TotalStateDiff,
			run.TotalCostDiff,
			run.StateFlags+run.CostFlags+run.ShapeMismatches,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	records, err := st.LoadSteps(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("mode: %s  batch: %d  steps: %d  seed: %d\n", meta.Mode, meta.BatchSize, meta.Steps, meta.Seed)

	stateSeries, costSeries := storage.Series(records)
	trajs := make([]int, 0, len(stateSeries))
	for traj := range stateSeries {
		trajs = append(trajs, traj)
	}
	sort.Ints(trajs)

	states := make([][]float64, 0, len(trajs))
	costs := make([][]float64, 0, len(trajs))
	for _, traj := range trajs {
		states = append(states, stateSeries[traj])
		costs = append(costs, costSeries[traj])
	}

	fmt.Println(viz.Plot("state diff per trajectory", 10, 70, states...))
	fmt.Println(viz.Plot("cost diff per trajectory", 10, 70, costs...))

	if svgPath != "" {
		colors := []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88"}
		series := make([]export.Series, 0, 2*len(trajs))
		for i, traj := range trajs {
			series = append(series,
				export.Series{Name: fmt.Sprintf("state %d", traj), Values: stateSeries[traj], Color: colors[(2*i)%len(colors)]},
				export.Series{Name: fmt.Sprintf("cost %d", traj), Values: costSeries[traj], Color: colors[(2*i+1)%len(colors)]})
		}
		if err := os.WriteFile(svgPath, []byte(export.SeriesToSVG(series, 800, 400)), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	return st.ExportJSON(w, args[0])
}
