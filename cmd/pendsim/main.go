package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/pendsim/internal/config"
	"github.com/san-kum/pendsim/internal/experiment"
)

var (
	dataDir    string
	configFile string
	preset     string

	steps   int
	seed    int64
	batch   int
	epsilon float64
	workers int
	save    bool
	plot    bool
	verbose bool
	svgPath string
	maxShow int

	integrator   string
	controller   string
	rolloutSteps int
	theta        float64
	omega        float64
	kp           float64
	ki           float64
	kd           float64
	target       float64
	torque       float64
	stopAtGoal   bool
	runs         int

	outPath string

	kpGrid []float64
	kiGrid []float64
	kdGrid []float64
)

// main registers the pendsim commands and exits with status 1 if the chosen
// command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:          "pendsim",
		Short:        "validate an analytical pendulum model against Pendulum-v0",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pendsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "compare model and reference one step at a time",
		Args:  cobra.NoArgs,
		RunE:  runCompare,
	}
	addHarnessFlags(compareCmd)

	batchedCmd := &cobra.Command{
		Use:   "batched",
		Short: "compare over a batch of independent trajectories",
		Args:  cobra.NoArgs,
		RunE:  runBatched,
	}
	addHarnessFlags(batchedCmd)
	batchedCmd.Flags().IntVar(&batch, "batch", 2, "number of trajectories")

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "run batched comparisons for every configured batch size",
		Args:  cobra.NoArgs,
		RunE:  runTest,
	}
	addHarnessFlags(testCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch a comparison in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addHarnessFlags(liveCmd)
	liveCmd.Flags().IntVar(&batch, "batch", 1, "number of trajectories")

	rolloutCmd := &cobra.Command{
		Use:   "rollout",
		Short: "roll the analytical model forward under a controller",
		Args:  cobra.NoArgs,
		RunE:  runRollout,
	}
	rolloutCmd.Flags().IntVar(&rolloutSteps, "steps", config.DefaultRolloutSize, "rollout length")
	rolloutCmd.Flags().StringVar(&integrator, "integrator", "semi-implicit", "integrator")
	rolloutCmd.Flags().StringVar(&controller, "controller", "none", "controller")
	rolloutCmd.Flags().Float64Var(&theta, "theta", config.DefaultTheta, "initial angle")
	rolloutCmd.Flags().Float64Var(&omega, "omega", 0.0, "initial angular velocity")
	rolloutCmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	rolloutCmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	rolloutCmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
	rolloutCmd.Flags().Float64Var(&target, "target", 0.0, "pid target")
	rolloutCmd.Flags().Float64Var(&torque, "torque", 0.0, "torque for the manual controller")
	rolloutCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	rolloutCmd.Flags().BoolVar(&stopAtGoal, "stop-at-goal", false, "stop once the goal is reached")
	rolloutCmd.Flags().BoolVar(&plot, "plot", false, "plot the angle")
	rolloutCmd.Flags().IntVar(&runs, "runs", 1, "independent rollouts, each controller seeded seed+i")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search PID gains for the lowest rollout cost",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	tuneCmd.Flags().IntVar(&rolloutSteps, "steps", config.DefaultRolloutSize, "rollout length")
	tuneCmd.Flags().Float64Var(&theta, "theta", config.DefaultTheta, "initial angle")
	tuneCmd.Flags().Float64Var(&omega, "omega", 0.0, "initial angular velocity")
	tuneCmd.Flags().Float64SliceVar(&kpGrid, "kp-grid", []float64{0, 5, 10, 20}, "kp values to try")
	tuneCmd.Flags().Float64SliceVar(&kiGrid, "ki-grid", []float64{0, 0.1}, "ki values to try")
	tuneCmd.Flags().Float64SliceVar(&kdGrid, "kd-grid", []float64{0, 1, 5}, "kd values to try")

	goalCmd := &cobra.Command{
		Use:   "goal [theta theta_dot]",
		Short: "draw a random goal, or check whether a state is a goal",
		Args:  cobra.MaximumNArgs(2),
		RunE:  runGoal,
	}
	goalCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot divergence of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the plot as svg")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			reg := experiment.NewRegistry()
			fmt.Printf("integrators: %v\n", reg.ListIntegrators())
			fmt.Printf("controllers: %v\n", reg.ListControllers())
			return nil
		},
	}

	rootCmd.AddCommand(compareCmd, batchedCmd, testCmd, liveCmd, rolloutCmd, tuneCmd, goalCmd, listCmd, plotCmd, exportJSONCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func addHarnessFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&steps, "steps", config.DefaultTimeSteps, "time steps per trajectory")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "flag threshold (default float32 epsilon)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent reference steps (default from config)")
	cmd.Flags().BoolVar(&save, "save", false, "save the run to the data directory")
	cmd.Flags().BoolVar(&plot, "plot", false, "plot per-step divergence")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every step")
	cmd.Flags().IntVar(&maxShow, "max-flags", 10, "flagged steps to list (-1 for all)")
}

// loadConfig layers defaults, the preset, the config file and finally any
// flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		if cmd.Name() == "rollout" || cmd.Name() == "tune" {
			cfg.Rollout.Steps = rolloutSteps
		} else {
			cfg.Harness.TimeSteps = steps
		}
	}
	if flags.Changed("seed") {
		cfg.Harness.Seed = seed
	}
	if flags.Changed("epsilon") {
		cfg.Harness.Epsilon = epsilon
	}
	if flags.Changed("workers") {
		cfg.Harness.Workers = workers
	}
	if flags.Changed("integrator") {
		cfg.Rollout.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Rollout.Controller = controller
	}
	if flags.Changed("theta") {
		cfg.Rollout.InitState.Theta = theta
	}
	if flags.Changed("omega") {
		cfg.Rollout.InitState.Omega = omega
	}
	if flags.Changed("kp") {
		cfg.Rollout.ControllerParams.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.Rollout.ControllerParams.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.Rollout.ControllerParams.Kd = kd
	}
	if flags.Changed("target") {
		cfg.Rollout.ControllerParams.Target = target
	}
	if flags.Changed("torque") {
		cfg.Rollout.ControllerParams.Torque = torque
	}
	if flags.Changed("stop-at-goal") {
		cfg.Rollout.StopAtGoal = stopAtGoal
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
