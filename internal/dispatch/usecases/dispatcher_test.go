package usecases_test

import (
	"context"
	"errors"
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/dispatch/usecases"
	"lumen-remote/internal/infra/clock"
	mockusecases "lumen-remote/test/unit/doubles/dispatch/usecases"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = ginkgo.Describe("Dispatcher", func() {
	var (
		ctrl       *gomock.Controller
		stream     *mockusecases.MockStreamSink
		fallback   *mockusecases.MockTransportSink
		link       *mockusecases.MockLinkMonitor
		feedback   *mockusecases.MockFeedbackNotifier
		clk        *clock.FakeClock
		queue      *usecases.PendingQueue
		guard      *usecases.TransportGuard
		metrics    *usecases.CongestionMetrics
		dispatcher *usecases.Dispatcher
		ctx        context.Context
	)

	batchOf := func(cmds ...domain.Command) domain.Batch {
		return domain.Batch{ID: domain.NewID(), Commands: cmds, ReadyForExecution: true}
	}

	ginkgo.BeforeEach(func() {
		ctrl = gomock.NewController(ginkgo.GinkgoT())
		stream = mockusecases.NewMockStreamSink(ctrl)
		fallback = mockusecases.NewMockTransportSink(ctrl)
		link = mockusecases.NewMockLinkMonitor(ctrl)
		feedback = mockusecases.NewMockFeedbackNotifier(ctrl)
		clk = clock.Fake(epoch)
		queue = usecases.NewPendingQueue(usecases.DefaultQueueCapacity, usecases.DefaultMergeWindow)
		guard = usecases.NewTransportGuard(usecases.GuardConfig{}, usecases.WithJitterSource(noJitter))
		metrics = usecases.NewCongestionMetrics()
		dispatcher = usecases.NewDispatcher(
			usecases.DispatcherConfig{MaxRetries: 2, IOTimeout: 100 * time.Millisecond},
			queue, guard, metrics, stream, fallback, link, feedback, nil, clk,
		)
		ctx = context.Background()

		stream.EXPECT().Name().Return("websocket").AnyTimes()
		fallback.EXPECT().Name().Return("http").AnyTimes()
	})

	ginkgo.AfterEach(func() {
		ctrl.Finish()
	})

	ginkgo.It("should do nothing for an empty batch", func() {
		outcome := dispatcher.Execute(ctx, domain.Batch{})
		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeIdle))
	})

	ginkgo.It("should consolidate a batch into one request on the connected stream", func() {
		brightness := command(domain.KindSetBrightness, 120, epoch)
		preset := command(domain.KindSetPreset, 4, epoch)

		link.EXPECT().IsLinkAvailable().Return(true)
		stream.EXPECT().IsConnected().Return(true)
		stream.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, patch domain.StatePatch) (time.Duration, error) {
				gomega.Expect(*patch.Bri).To(gomega.Equal(120))
				gomega.Expect(patch.Preset).To(gomega.Equal(4))
				return 40 * time.Millisecond, nil
			})
		feedback.EXPECT().OnOutcome(true).Times(1)

		outcome := dispatcher.Execute(ctx, batchOf(preset, brightness))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeDelivered))
		gomega.Expect(outcome.Sink).To(gomega.Equal("websocket"))
		gomega.Expect(outcome.Consolidated).To(gomega.BeTrue())
		gomega.Expect(outcome.Delivered).To(gomega.Equal(2))
		gomega.Expect(metrics.CommandsSent).To(gomega.BeEquivalentTo(2))
		gomega.Expect(metrics.BatchesProcessed).To(gomega.BeEquivalentTo(1))
		gomega.Expect(guard.State().LastSuccessAt).To(gomega.Equal(epoch))
	})

	ginkgo.It("should use the request/response sink when the stream is down", func() {
		link.EXPECT().IsLinkAvailable().Return(true)
		stream.EXPECT().IsConnected().Return(false)
		fallback.EXPECT().Send(gomock.Any(), gomock.Any()).Return(30*time.Millisecond, nil)
		feedback.EXPECT().OnOutcome(true)

		outcome := dispatcher.Execute(ctx, batchOf(command(domain.KindSetPreset, 4, epoch)))

		gomega.Expect(outcome.Sink).To(gomega.Equal("http"))
		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeDelivered))
	})

	ginkgo.It("should requeue without a guard trial when the link is down", func() {
		link.EXPECT().IsLinkAvailable().Return(false)
		cmd := command(domain.KindSetPreset, 4, epoch)

		outcome := dispatcher.Execute(ctx, batchOf(cmd))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeLinkDown))
		gomega.Expect(outcome.Err).To(gomega.MatchError(domain.ErrLinkDown))
		gomega.Expect(outcome.Requeued).To(gomega.Equal(1))
		gomega.Expect(queue.Live()[0].ID).To(gomega.Equal(cmd.ID))
		gomega.Expect(guard.State().ConsecutiveFailures).To(gomega.BeZero())
		gomega.Expect(metrics.LinkDown).To(gomega.BeEquivalentTo(1))
	})

	ginkgo.It("should requeue at the front without sending while the guard is open", func() {
		guard.RecordFailure(epoch)
		link.EXPECT().IsLinkAvailable().Return(true)
		queue.Insert(command(domain.KindSetQuickLoad, 2, epoch.Add(time.Second)))
		cmd := command(domain.KindSetPreset, 4, epoch)

		outcome := dispatcher.Execute(ctx, batchOf(cmd))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeGuardDenied))
		gomega.Expect(outcome.Err).To(gomega.MatchError(domain.ErrGuardDenied))
		gomega.Expect(queue.Live()[0].ID).To(gomega.Equal(cmd.ID))
		gomega.Expect(queue.Live()[0].RetryCount).To(gomega.BeZero())
		gomega.Expect(metrics.GuardDenied).To(gomega.BeEquivalentTo(1))
	})

	ginkgo.It("should retry failed commands with a demoted priority and a later deadline", func() {
		cmd := command(domain.KindSetPreset, 4, epoch)
		link.EXPECT().IsLinkAvailable().Return(true)
		stream.EXPECT().IsConnected().Return(false)
		fallback.EXPECT().Send(gomock.Any(), gomock.Any()).Return(time.Duration(0), transportFailure())

		outcome := dispatcher.Execute(ctx, batchOf(cmd))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeFailed))
		gomega.Expect(errors.Is(outcome.Err, domain.ErrTransport)).To(gomega.BeTrue())
		gomega.Expect(outcome.Retried).To(gomega.Equal(1))

		retried := queue.Live()[0]
		gomega.Expect(retried.ID).To(gomega.Equal(cmd.ID))
		gomega.Expect(retried.RetryCount).To(gomega.Equal(1))
		gomega.Expect(retried.Priority).To(gomega.Equal(domain.PriorityNormal))
		gomega.Expect(retried.Deadline.After(cmd.Deadline)).To(gomega.BeTrue())

		gomega.Expect(guard.State().ConsecutiveFailures).To(gomega.Equal(1))
		gomega.Expect(guard.Permits(epoch)).To(gomega.BeFalse())
		gomega.Expect(metrics.CommandsFailed).To(gomega.BeEquivalentTo(1))
	})

	ginkgo.It("should report a final failure once retries are exhausted", func() {
		cmd := command(domain.KindSetPreset, 4, epoch)
		cmd.RetryCount = 2
		link.EXPECT().IsLinkAvailable().Return(true)
		stream.EXPECT().IsConnected().Return(false)
		fallback.EXPECT().Send(gomock.Any(), gomock.Any()).Return(time.Duration(0), transportFailure())
		feedback.EXPECT().OnOutcome(false).Times(1)

		outcome := dispatcher.Execute(ctx, batchOf(cmd))

		gomega.Expect(outcome.Dropped).To(gomega.Equal(1))
		gomega.Expect(queue.Len()).To(gomega.BeZero())
		gomega.Expect(metrics.FinalFailures).To(gomega.BeEquivalentTo(1))
	})

	ginkgo.It("should fall back to one request per command on a field conflict", func() {
		first := command(domain.KindCyclePreset, domain.DirectionNext, epoch)
		second := command(domain.KindCyclePreset, domain.DirectionNext, epoch)

		link.EXPECT().IsLinkAvailable().Return(true).Times(2)
		stream.EXPECT().IsConnected().Return(true).Times(2)
		stream.EXPECT().Send(gomock.Any(), domain.StatePatch{Preset: "~"}).Return(20*time.Millisecond, nil).Times(2)
		feedback.EXPECT().OnOutcome(true).Times(2)

		outcome := dispatcher.Execute(ctx, batchOf(first, second))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeDelivered))
		gomega.Expect(outcome.Consolidated).To(gomega.BeFalse())
		gomega.Expect(outcome.Delivered).To(gomega.Equal(2))
	})

	ginkgo.It("should fall back when the sink rejects an oversized payload", func() {
		brightness := command(domain.KindSetBrightness, 120, epoch)
		preset := command(domain.KindSetPreset, 4, epoch)

		link.EXPECT().IsLinkAvailable().Return(true).Times(2)
		stream.EXPECT().IsConnected().Return(true).Times(3)
		gomock.InOrder(
			stream.EXPECT().Send(gomock.Any(), gomock.Any()).Return(time.Duration(0), domain.ErrPayloadOverflow),
			stream.EXPECT().Send(gomock.Any(), gomock.Any()).Return(20*time.Millisecond, nil).Times(2),
		)
		feedback.EXPECT().OnOutcome(true).Times(2)

		outcome := dispatcher.Execute(ctx, batchOf(preset, brightness))

		gomega.Expect(outcome.Delivered).To(gomega.Equal(2))
		gomega.Expect(guard.State().ConsecutiveFailures).To(gomega.BeZero())
	})

	ginkgo.It("should stop the per-command fallback once the guard opens", func() {
		first := command(domain.KindCyclePreset, domain.DirectionNext, epoch)
		second := command(domain.KindCyclePreset, domain.DirectionNext, epoch)

		link.EXPECT().IsLinkAvailable().Return(true).Times(2)
		stream.EXPECT().IsConnected().Return(false)
		fallback.EXPECT().Send(gomock.Any(), gomock.Any()).Return(time.Duration(0), transportFailure())

		outcome := dispatcher.Execute(ctx, batchOf(first, second))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeFailed))
		gomega.Expect(outcome.Retried).To(gomega.Equal(1))
		gomega.Expect(outcome.Requeued).To(gomega.Equal(1))
		gomega.Expect(queue.Len()).To(gomega.Equal(2))
		gomega.Expect(metrics.GuardDenied).To(gomega.BeEquivalentTo(1))
	})

	ginkgo.It("should drop a single command the sink can never carry without opening the guard", func() {
		link.EXPECT().IsLinkAvailable().Return(true)
		stream.EXPECT().IsConnected().Return(true)
		stream.EXPECT().Send(gomock.Any(), gomock.Any()).Return(time.Duration(0), domain.ErrPayloadOverflow)
		feedback.EXPECT().OnOutcome(false)

		outcome := dispatcher.Execute(ctx, batchOf(command(domain.KindSetPreset, 4, epoch)))

		gomega.Expect(outcome.Dropped).To(gomega.Equal(1))
		gomega.Expect(guard.Permits(epoch)).To(gomega.BeTrue())
	})

	ginkgo.It("should re-dial the stream for a reconnect command", func() {
		link.EXPECT().IsLinkAvailable().Return(true)
		stream.EXPECT().IsConnected().Return(false)
		stream.EXPECT().Reconnect(gomock.Any()).Return(nil)
		feedback.EXPECT().OnOutcome(true)

		outcome := dispatcher.Execute(ctx, batchOf(command(domain.KindReconnectTransport, 0, epoch)))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeDelivered))
		gomega.Expect(outcome.Sink).To(gomega.Equal("websocket"))
	})

	ginkgo.It("should not re-dial a stream that is already connected", func() {
		link.EXPECT().IsLinkAvailable().Return(true)
		stream.EXPECT().IsConnected().Return(true)
		feedback.EXPECT().OnOutcome(true)

		outcome := dispatcher.Execute(ctx, batchOf(command(domain.KindReconnectTransport, 0, epoch)))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeDelivered))
	})

	ginkgo.It("should keep the backoff when a reconnect finds nothing to re-dial", func() {
		guard.RecordFailure(epoch)
		guard.RecordFailure(epoch)
		gomega.Expect(guard.State().Backoff).To(gomega.Equal(400 * time.Millisecond))
		clk.Advance(time.Second)

		link.EXPECT().IsLinkAvailable().Return(true)
		stream.EXPECT().IsConnected().Return(true)
		feedback.EXPECT().OnOutcome(true)

		outcome := dispatcher.Execute(ctx, batchOf(command(domain.KindReconnectTransport, 0, epoch)))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeDelivered))
		gomega.Expect(guard.State().Backoff).To(gomega.Equal(400 * time.Millisecond))
		gomega.Expect(guard.State().ConsecutiveFailures).To(gomega.Equal(2))
		gomega.Expect(metrics.CommandsSent).To(gomega.BeZero())

		gomega.Expect(guard.RecordFailure(clk.Now())).To(gomega.Equal(800 * time.Millisecond))
	})

	ginkgo.It("should re-dial a retried reconnect that shares a batch with other commands", func() {
		reconnect := command(domain.KindReconnectTransport, 0, epoch).Retried(epoch)
		preset := command(domain.KindSetPreset, 4, epoch)

		link.EXPECT().IsLinkAvailable().Return(true).Times(2)
		gomock.InOrder(
			stream.EXPECT().IsConnected().Return(false),
			stream.EXPECT().Reconnect(gomock.Any()).Return(nil),
			stream.EXPECT().IsConnected().Return(true),
			stream.EXPECT().Send(gomock.Any(), gomock.Any()).Return(20*time.Millisecond, nil),
		)
		feedback.EXPECT().OnOutcome(true).Times(2)

		outcome := dispatcher.Execute(ctx, batchOf(reconnect, preset))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeDelivered))
		gomega.Expect(outcome.Delivered).To(gomega.Equal(2))
		gomega.Expect(outcome.Dropped).To(gomega.BeZero())
	})

	ginkgo.It("should treat a failed re-dial like any transport failure", func() {
		link.EXPECT().IsLinkAvailable().Return(true)
		stream.EXPECT().IsConnected().Return(false)
		stream.EXPECT().Reconnect(gomock.Any()).Return(&domain.TransportError{Sink: "websocket", Op: "dial", Err: errors.New("refused")})

		outcome := dispatcher.Execute(ctx, batchOf(command(domain.KindReconnectTransport, 0, epoch)))

		gomega.Expect(outcome.Status).To(gomega.Equal(usecases.OutcomeFailed))
		gomega.Expect(guard.State().ConsecutiveFailures).To(gomega.Equal(1))
		gomega.Expect(queue.Live()[0].Kind).To(gomega.Equal(domain.KindReconnectTransport))
		gomega.Expect(queue.Live()[0].Priority).To(gomega.Equal(domain.PriorityHigh))
	})
})
