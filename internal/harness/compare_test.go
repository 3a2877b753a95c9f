package harness_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/gym"
	"github.com/san-kum/pendsim/internal/harness"
	"github.com/san-kum/pendsim/internal/integrators"
	"github.com/san-kum/pendsim/internal/model"
)

var _ = Describe("Compare", func() {
	var (
		ctx context.Context
		m   *model.Model
		cfg gym.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = gym.DefaultConfig()
		var err error
		m, err = model.New(dynamo.DefaultParams())
		Expect(err).NotTo(HaveOccurred())
	})

	factory := func(seed int64) harness.EnvFactory {
		return func(traj int) harness.Env {
			return gym.NewPendulum(cfg, seed+int64(traj))
		}
	}

	Context("in single-step mode", func() {
		It("reports nothing for zero time steps", func() {
			rep, err := harness.Compare(ctx, gym.NewPendulum(cfg, 1), m, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.TotalStateDiff).To(BeZero())
			Expect(rep.TotalCostDiff).To(BeZero())
			Expect(rep.Flagged).To(BeEmpty())
		})

		It("matches the reference within epsilon away from the speed limit", func() {
			cfg.MaxSpeed = 1e9
			rep, err := harness.Compare(ctx, gym.NewPendulum(cfg, 8), m, 150)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Clean()).To(BeTrue())
			Expect(rep.StateSummary.Max).To(BeNumerically("<", rep.Epsilon))
			Expect(rep.CostSummary.Max).To(BeNumerically("<", rep.Epsilon))
		})

		It("flags a model built on the wrong integrator", func() {
			explicit, err := model.New(dynamo.DefaultParams(), model.WithIntegrator(integrators.NewEuler()))
			Expect(err).NotTo(HaveOccurred())

			var seen []harness.StepResult
			rep, err := harness.Compare(ctx, gym.NewPendulum(cfg, 2), explicit, 40,
				harness.WithObserver(harness.ObserverFunc(func(r harness.StepResult) { seen = append(seen, r) })))
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.StateFlags).To(BeNumerically(">", 0))
			Expect(rep.TotalStateDiff).To(BeNumerically(">", 0))
			Expect(seen).To(HaveLen(40))
			Expect(rep.Flagged).NotTo(BeEmpty())
			Expect(rep.Flagged[0].StateFlag).To(BeTrue())
		})

		It("counts cost flags when the threshold is zero", func() {
			rep, err := harness.Compare(ctx, gym.NewPendulum(cfg, 4), m, 10, harness.WithEpsilon(0))
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.CostFlags).To(Equal(10))
		})
	})

	Context("in batched mode", func() {
		It("agrees with single-step mode for one trajectory", func() {
			single, err := harness.Compare(ctx, gym.NewPendulum(cfg, 17), m, 120)
			Expect(err).NotTo(HaveOccurred())
			batched, err := harness.CompareBatched(ctx, factory(17), m, 1, 120)
			Expect(err).NotTo(HaveOccurred())

			Expect(batched.TotalStateDiff).To(Equal(single.TotalStateDiff))
			Expect(batched.TotalCostDiff).To(Equal(single.TotalCostDiff))
			Expect(batched.StateSeries).To(Equal(single.StateSeries))
		})

		It("drives every trajectory for every step", func() {
			counts := make(map[int]int)
			rep, err := harness.CompareBatched(ctx, factory(30), m, 4, 25,
				harness.WithWorkers(2),
				harness.WithObserver(harness.ObserverFunc(func(r harness.StepResult) { counts[r.Trajectory]++ })))
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Trajectories).To(Equal(4))
			Expect(rep.Steps).To(Equal(25))
			Expect(counts).To(Equal(map[int]int{0: 25, 1: 25, 2: 25, 3: 25}))
		})
	})
})
