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

var _ = ginkgo.Describe("ReconnectWorker", func() {
	var (
		ctrl   *gomock.Controller
		stream *mockusecases.MockStreamSink
		link   *mockusecases.MockLinkMonitor
		poster *mockusecases.MockIntentPoster
		ticker *time.Ticker
		worker *usecases.ReconnectWorker
	)

	ginkgo.BeforeEach(func() {
		ctrl = gomock.NewController(ginkgo.GinkgoT())
		stream = mockusecases.NewMockStreamSink(ctrl)
		link = mockusecases.NewMockLinkMonitor(ctrl)
		poster = mockusecases.NewMockIntentPoster(ctrl)
		ticker = time.NewTicker(time.Hour)
		worker = usecases.NewReconnectWorker(ticker, stream, link, poster)
	})

	ginkgo.AfterEach(func() {
		ctrl.Finish()
		ticker.Stop()
	})

	ginkgo.It("should stay quiet while the stream is connected", func() {
		stream.EXPECT().IsConnected().Return(true)
		gomega.Expect(worker.Check()).To(gomega.BeFalse())
	})

	ginkgo.It("should wait for the link before asking for a re-dial", func() {
		stream.EXPECT().IsConnected().Return(false)
		link.EXPECT().IsLinkAvailable().Return(false)
		gomega.Expect(worker.Check()).To(gomega.BeFalse())
	})

	ginkgo.It("should post a reconnect intent when the stream is down and the link is up", func() {
		stream.EXPECT().IsConnected().Return(false)
		link.EXPECT().IsLinkAvailable().Return(true)
		poster.EXPECT().Post(domain.Intent{Kind: domain.KindReconnectTransport}, time.Duration(0)).Return(true)
		gomega.Expect(worker.Check()).To(gomega.BeTrue())
	})
})
