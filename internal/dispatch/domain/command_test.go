package domain_test

import (
	"time"

	"lumen-remote/internal/dispatch/domain"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Command", func() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ginkgo.Context("Classify", func() {
		ginkgo.DescribeTable("maps every kind from the table",
			func(kind domain.Kind, priority domain.Priority, strategy domain.BatchStrategy) {
				c, err := domain.Classify(domain.Intent{Kind: kind})
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(c.Priority).To(gomega.Equal(priority))
				gomega.Expect(c.Strategy).To(gomega.Equal(strategy))
				gomega.Expect(c.Lifetime).To(gomega.BeNumerically(">", 0))
			},
			ginkgo.Entry("set preset", domain.KindSetPreset, domain.PriorityHigh, domain.BatchStrategyMerge),
			ginkgo.Entry("quick load", domain.KindSetQuickLoad, domain.PriorityHigh, domain.BatchStrategyMerge),
			ginkgo.Entry("brightness", domain.KindSetBrightness, domain.PriorityNormal, domain.BatchStrategyMerge),
			ginkgo.Entry("power toggle", domain.KindTogglePower, domain.PriorityCritical, domain.BatchStrategyNone),
			ginkgo.Entry("preset cycle", domain.KindCyclePreset, domain.PriorityNormal, domain.BatchStrategySequence),
			ginkgo.Entry("palette cycle", domain.KindCyclePalette, domain.PriorityLow, domain.BatchStrategySequence),
			ginkgo.Entry("state sync", domain.KindSyncState, domain.PriorityBatchable, domain.BatchStrategyConsolidate),
			ginkgo.Entry("reconnect", domain.KindReconnectTransport, domain.PriorityCritical, domain.BatchStrategyNone),
		)

		ginkgo.It("should return the same classification for identical input", func() {
			intent := domain.Intent{Kind: domain.KindSetBrightness, Value: 80}
			first, err := domain.Classify(intent)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			second, err := domain.Classify(intent)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(second).To(gomega.Equal(first))
		})

		ginkgo.It("should honour an explicit priority override without touching the strategy", func() {
			low := domain.PriorityLow
			c, err := domain.Classify(domain.Intent{Kind: domain.KindSetPreset, Value: 2, Priority: &low})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(c.Priority).To(gomega.Equal(domain.PriorityLow))
			gomega.Expect(c.Strategy).To(gomega.Equal(domain.BatchStrategyMerge))
		})

		ginkgo.It("should reject unknown kinds", func() {
			_, err := domain.Classify(domain.Intent{Kind: "dance"})
			gomega.Expect(err).To(gomega.MatchError(domain.ErrUnknownKind))
		})
	})

	ginkgo.Context("NewCommand", func() {
		ginkgo.It("should stamp id, creation time and a later deadline", func() {
			cmd, err := domain.NewCommand(domain.Intent{Kind: domain.KindSetPreset, Value: 4}, now)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(cmd.ID).NotTo(gomega.BeEmpty())
			gomega.Expect(cmd.CreatedAt).To(gomega.Equal(now))
			gomega.Expect(cmd.Deadline.After(cmd.CreatedAt)).To(gomega.BeTrue())
			gomega.Expect(cmd.CanMerge()).To(gomega.BeTrue())
		})

		ginkgo.It("should not allow toggles to merge", func() {
			cmd, err := domain.NewCommand(domain.Intent{Kind: domain.KindTogglePower}, now)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(cmd.CanMerge()).To(gomega.BeFalse())
		})

		ginkgo.DescribeTable("should validate values",
			func(intent domain.Intent) {
				_, err := domain.NewCommand(intent, now)
				gomega.Expect(err).To(gomega.MatchError(domain.ErrInvalidValue))
			},
			ginkgo.Entry("brightness too high", domain.Intent{Kind: domain.KindSetBrightness, Value: 256}),
			ginkgo.Entry("negative brightness", domain.Intent{Kind: domain.KindSetBrightness, Value: -1}),
			ginkgo.Entry("preset zero", domain.Intent{Kind: domain.KindSetPreset, Value: 0}),
			ginkgo.Entry("quick load out of range", domain.Intent{Kind: domain.KindSetQuickLoad, Value: 251}),
			ginkgo.Entry("bad direction", domain.Intent{Kind: domain.KindCyclePalette, Value: 3}),
		)
	})

	ginkgo.Context("Retried", func() {
		ginkgo.It("should bump the retry count, demote and push the deadline out", func() {
			cmd, _ := domain.NewCommand(domain.Intent{Kind: domain.KindSetPreset, Value: 4}, now)
			later := now.Add(time.Second)

			retried := cmd.Retried(later)

			gomega.Expect(retried.RetryCount).To(gomega.Equal(1))
			gomega.Expect(retried.LastRetryAt).To(gomega.Equal(later))
			gomega.Expect(retried.Priority).To(gomega.Equal(domain.PriorityNormal))
			gomega.Expect(retried.Deadline.After(cmd.Deadline)).To(gomega.BeTrue())
			gomega.Expect(retried.ID).To(gomega.Equal(cmd.ID))
		})
	})

	ginkgo.Context("Priority", func() {
		ginkgo.DescribeTable("Demote",
			func(from, to domain.Priority) {
				gomega.Expect(from.Demote()).To(gomega.Equal(to))
			},
			ginkgo.Entry("critical", domain.PriorityCritical, domain.PriorityHigh),
			ginkgo.Entry("high", domain.PriorityHigh, domain.PriorityNormal),
			ginkgo.Entry("normal", domain.PriorityNormal, domain.PriorityLow),
			ginkgo.Entry("low stays", domain.PriorityLow, domain.PriorityLow),
			ginkgo.Entry("batchable stays", domain.PriorityBatchable, domain.PriorityBatchable),
		)

		ginkgo.It("should parse its own names", func() {
			p, err := domain.ParsePriority("high")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(p).To(gomega.Equal(domain.PriorityHigh))
			gomega.Expect(p.String()).To(gomega.Equal("high"))

			_, err = domain.ParsePriority("urgent")
			gomega.Expect(err).To(gomega.MatchError(domain.ErrInvalidValue))
		})
	})
})
