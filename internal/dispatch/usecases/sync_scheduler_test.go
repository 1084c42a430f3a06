package usecases_test

import (
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/dispatch/usecases"
	mockusecases "lumen-remote/test/unit/doubles/dispatch/usecases"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = ginkgo.Describe("SyncScheduler", func() {
	var (
		ctrl   *gomock.Controller
		poster *mockusecases.MockIntentPoster
		ticker *time.Ticker
	)

	ginkgo.BeforeEach(func() {
		ctrl = gomock.NewController(ginkgo.GinkgoT())
		poster = mockusecases.NewMockIntentPoster(ctrl)
		ticker = time.NewTicker(time.Hour)
	})

	ginkgo.AfterEach(func() {
		ctrl.Finish()
		ticker.Stop()
	})

	ginkgo.It("should reject an invalid schedule", func() {
		_, err := usecases.NewSyncScheduler(ticker, "every now and then", poster, 0)
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("should post a sync intent each time the schedule comes due", func() {
		scheduler, err := usecases.NewSyncScheduler(ticker, "@every 30s", poster, 5*time.Millisecond)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		poster.EXPECT().Post(domain.Intent{Kind: domain.KindSyncState}, 5*time.Millisecond).Return(true).Times(2)

		gomega.Expect(scheduler.Evaluate(epoch)).To(gomega.BeFalse())
		gomega.Expect(scheduler.Evaluate(epoch.Add(10 * time.Second))).To(gomega.BeFalse())
		gomega.Expect(scheduler.Evaluate(epoch.Add(30 * time.Second))).To(gomega.BeTrue())
		gomega.Expect(scheduler.Evaluate(epoch.Add(40 * time.Second))).To(gomega.BeFalse())
		gomega.Expect(scheduler.Evaluate(epoch.Add(61 * time.Second))).To(gomega.BeTrue())
	})

	ginkgo.It("should accept standard five-field cron expressions", func() {
		scheduler, err := usecases.NewSyncScheduler(ticker, "*/5 * * * *", poster, 0)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		poster.EXPECT().Post(gomock.Any(), usecases.DefaultPostTimeout).Return(false)

		gomega.Expect(scheduler.Evaluate(epoch)).To(gomega.BeFalse())
		gomega.Expect(scheduler.Evaluate(epoch.Add(5 * time.Minute))).To(gomega.BeTrue())
	})
})
