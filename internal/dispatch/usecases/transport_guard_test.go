package usecases_test

import (
	"time"

	"lumen-remote/internal/dispatch/usecases"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("TransportGuard", func() {
	ginkgo.It("should permit attempts while healthy", func() {
		guard := usecases.NewTransportGuard(usecases.GuardConfig{})
		gomega.Expect(guard.Permits(epoch)).To(gomega.BeTrue())
		gomega.Expect(guard.Circuit(epoch)).To(gomega.Equal(usecases.CircuitClosed))
	})

	ginkgo.It("should double the backoff on consecutive failures and deny for the whole window", func() {
		guard := usecases.NewTransportGuard(usecases.GuardConfig{}, usecases.WithJitterSource(maxJitter))
		now := epoch
		expected := []time.Duration{200, 400, 800, 1600, 3200}

		for i, backoffMs := range expected {
			backoff := backoffMs * time.Millisecond
			window := guard.RecordFailure(now)

			gomega.Expect(guard.State().Backoff).To(gomega.Equal(backoff))
			gomega.Expect(guard.State().ConsecutiveFailures).To(gomega.Equal(i + 1))
			gomega.Expect(window).To(gomega.BeNumerically(">=", backoff))
			gomega.Expect(window).To(gomega.BeNumerically("<", backoff+backoff/4))

			gomega.Expect(guard.Permits(now)).To(gomega.BeFalse())
			gomega.Expect(guard.Permits(now.Add(window - time.Nanosecond))).To(gomega.BeFalse())
			gomega.Expect(guard.Circuit(now)).To(gomega.Equal(usecases.CircuitOpen))

			now = now.Add(window)
			gomega.Expect(guard.Permits(now)).To(gomega.BeTrue())
			gomega.Expect(guard.Circuit(now)).To(gomega.Equal(usecases.CircuitHalfOpen))
		}
	})

	ginkgo.It("should never exceed the maximum backoff", func() {
		guard := usecases.NewTransportGuard(usecases.GuardConfig{}, usecases.WithJitterSource(noJitter))
		for range 10 {
			guard.RecordFailure(epoch)
		}
		gomega.Expect(guard.State().Backoff).To(gomega.Equal(usecases.DefaultGuardMaxBackoff))
	})

	ginkgo.It("should clear the backoff only on reset", func() {
		guard := usecases.NewTransportGuard(usecases.GuardConfig{}, usecases.WithJitterSource(noJitter))
		guard.RecordFailure(epoch)
		guard.RecordFailure(epoch)

		later := epoch.Add(time.Minute)
		guard.Reset(later)

		state := guard.State()
		gomega.Expect(state.Backoff).To(gomega.BeZero())
		gomega.Expect(state.ConsecutiveFailures).To(gomega.BeZero())
		gomega.Expect(state.LastSuccessAt).To(gomega.Equal(later))
		gomega.Expect(guard.Circuit(later)).To(gomega.Equal(usecases.CircuitClosed))

		guard.RecordFailure(later)
		gomega.Expect(guard.State().Backoff).To(gomega.Equal(usecases.DefaultGuardBase))
	})

	ginkgo.It("should start from a tuned base", func() {
		guard := usecases.NewTransportGuard(usecases.GuardConfig{}, usecases.WithJitterSource(noJitter))
		guard.SetBase(500 * time.Millisecond)
		guard.RecordFailure(epoch)
		gomega.Expect(guard.State().Backoff).To(gomega.Equal(500 * time.Millisecond))
	})

	ginkgo.It("should ignore a base above the maximum backoff", func() {
		guard := usecases.NewTransportGuard(usecases.GuardConfig{})
		guard.SetBase(time.Minute)
		gomega.Expect(guard.Base()).To(gomega.Equal(usecases.DefaultGuardBase))
	})
})
