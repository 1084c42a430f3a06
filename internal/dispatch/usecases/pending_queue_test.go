package usecases_test

import (
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/dispatch/usecases"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("PendingQueue", func() {
	var queue *usecases.PendingQueue

	ginkgo.BeforeEach(func() {
		queue = usecases.NewPendingQueue(usecases.DefaultQueueCapacity, usecases.DefaultMergeWindow)
	})

	ginkgo.Context("Insert", func() {
		ginkgo.It("should order by priority and keep arrival order within a priority", func() {
			first := command(domain.KindCyclePreset, domain.DirectionNext, epoch)
			second := command(domain.KindCyclePreset, domain.DirectionPrevious, epoch.Add(time.Millisecond))
			queue.Insert(command(domain.KindCyclePalette, domain.DirectionNext, epoch))
			queue.Insert(first)
			queue.Insert(command(domain.KindTogglePower, 0, epoch))
			queue.Insert(second)
			queue.Insert(command(domain.KindSetPreset, 4, epoch))

			live := queue.Live()
			gomega.Expect(kinds(live)).To(gomega.Equal([]domain.Kind{
				domain.KindTogglePower,
				domain.KindSetPreset,
				domain.KindCyclePreset,
				domain.KindCyclePreset,
				domain.KindCyclePalette,
			}))
			gomega.Expect(live[2].ID).To(gomega.Equal(first.ID))
			gomega.Expect(live[3].ID).To(gomega.Equal(second.ID))
		})

		ginkgo.It("should never exceed its capacity", func() {
			for i := range 100 {
				queue.Insert(command(domain.KindCyclePalette, domain.DirectionNext, epoch.Add(time.Duration(i)*time.Millisecond)))
				gomega.Expect(queue.Len()).To(gomega.BeNumerically("<=", queue.Capacity()))
			}
			gomega.Expect(queue.Len()).To(gomega.Equal(usecases.DefaultQueueCapacity))
		})

		ginkgo.It("should evict exactly the oldest entry when full, whatever its priority", func() {
			oldest := command(domain.KindTogglePower, 0, epoch)
			queue.Insert(oldest)
			for i := 1; i < usecases.DefaultQueueCapacity; i++ {
				queue.Insert(command(domain.KindCyclePalette, domain.DirectionNext, epoch.Add(time.Duration(i)*time.Millisecond)))
			}
			gomega.Expect(queue.Len()).To(gomega.Equal(usecases.DefaultQueueCapacity))
			before := queue.Evicted()

			evicted, ok := queue.Insert(command(domain.KindCyclePalette, domain.DirectionNext, epoch.Add(time.Second)))

			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(evicted.ID).To(gomega.Equal(oldest.ID))
			gomega.Expect(queue.Len()).To(gomega.Equal(usecases.DefaultQueueCapacity))
			gomega.Expect(queue.Evicted()).To(gomega.Equal(before + 1))
		})
	})

	ginkgo.Context("Deduplicate", func() {
		ginkgo.It("should keep only the newest mergeable command inside the merge window", func() {
			queue.Insert(command(domain.KindSetBrightness, 50, epoch))
			queue.Insert(command(domain.KindSetBrightness, 80, epoch.Add(100*time.Millisecond)))

			gomega.Expect(queue.Deduplicate()).To(gomega.Equal(1))
			live := queue.Live()
			gomega.Expect(live).To(gomega.HaveLen(1))
			gomega.Expect(live[0].Value).To(gomega.Equal(80))
			gomega.Expect(queue.Deduplicated()).To(gomega.BeEquivalentTo(1))
		})

		ginkgo.It("should leave commands further apart than the merge window", func() {
			queue.Insert(command(domain.KindSetBrightness, 50, epoch))
			queue.Insert(command(domain.KindSetBrightness, 80, epoch.Add(300*time.Millisecond)))

			gomega.Expect(queue.Deduplicate()).To(gomega.BeZero())
			gomega.Expect(queue.Live()).To(gomega.HaveLen(2))
		})

		ginkgo.It("should never merge non-mergeable kinds", func() {
			queue.Insert(command(domain.KindTogglePower, 0, epoch))
			queue.Insert(command(domain.KindTogglePower, 0, epoch))
			queue.Insert(command(domain.KindCyclePreset, domain.DirectionNext, epoch))
			queue.Insert(command(domain.KindCyclePreset, domain.DirectionNext, epoch))

			gomega.Expect(queue.Deduplicate()).To(gomega.BeZero())
			gomega.Expect(queue.Live()).To(gomega.HaveLen(4))
		})

		ginkgo.It("should collapse a burst down to its last value", func() {
			for i, value := range []int{10, 20, 30, 40} {
				queue.Insert(command(domain.KindSetBrightness, value, epoch.Add(time.Duration(i)*50*time.Millisecond)))
			}
			queue.Deduplicate()
			queue.Compact()

			live := queue.Live()
			gomega.Expect(live).To(gomega.HaveLen(1))
			gomega.Expect(live[0].Value).To(gomega.Equal(40))
			gomega.Expect(queue.Len()).To(gomega.Equal(1))
		})
	})

	ginkgo.Context("SweepExpired", func() {
		ginkgo.It("should drop commands strictly past their deadline", func() {
			cmd := command(domain.KindSetBrightness, 50, epoch)
			queue.Insert(cmd)

			gomega.Expect(queue.SweepExpired(cmd.Deadline)).To(gomega.BeEmpty())
			expired := queue.SweepExpired(cmd.Deadline.Add(time.Millisecond))
			gomega.Expect(expired).To(gomega.HaveLen(1))
			gomega.Expect(queue.Expired()).To(gomega.BeEquivalentTo(1))
			gomega.Expect(queue.Live()).To(gomega.BeEmpty())

			gomega.Expect(queue.Compact()).To(gomega.Equal(1))
			gomega.Expect(queue.Len()).To(gomega.BeZero())
		})
	})

	ginkgo.Context("Compact", func() {
		ginkgo.It("should preserve the order of survivors", func() {
			a := command(domain.KindCyclePreset, domain.DirectionNext, epoch)
			b := command(domain.KindSetBrightness, 10, epoch)
			c := command(domain.KindSetBrightness, 20, epoch.Add(10*time.Millisecond))
			d := command(domain.KindCyclePreset, domain.DirectionPrevious, epoch.Add(20*time.Millisecond))
			for _, cmd := range []domain.Command{a, b, c, d} {
				queue.Insert(cmd)
			}
			queue.Deduplicate()
			gomega.Expect(queue.Compact()).To(gomega.Equal(1))

			live := queue.Live()
			gomega.Expect([]domain.ID{live[0].ID, live[1].ID, live[2].ID}).To(gomega.Equal([]domain.ID{a.ID, c.ID, d.ID}))
		})
	})

	ginkgo.Context("Requeue", func() {
		ginkgo.It("should put returned commands at the front of their priority band", func() {
			waiting := command(domain.KindSetPreset, 7, epoch.Add(time.Second))
			queue.Insert(waiting)
			queue.Insert(command(domain.KindCyclePalette, domain.DirectionNext, epoch))

			returned := []domain.Command{
				command(domain.KindSetPreset, 1, epoch),
				command(domain.KindSetQuickLoad, 2, epoch),
			}
			queue.Requeue(returned)

			live := queue.Live()
			gomega.Expect(live[0].ID).To(gomega.Equal(returned[0].ID))
			gomega.Expect(live[1].ID).To(gomega.Equal(returned[1].ID))
			gomega.Expect(live[2].ID).To(gomega.Equal(waiting.ID))
			gomega.Expect(live[3].Kind).To(gomega.Equal(domain.KindCyclePalette))
		})
	})
})
