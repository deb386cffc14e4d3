package device_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k0rventen/avea/device"
)

var _ = Describe("PlanTransition", func() {
	It("should cap the frame rate at 5 updates per second", func() {
		plan := device.PlanTransition(
			device.Frame{},
			device.Frame{Red: 4095, Green: 4095, Blue: 4095},
			1*time.Second, 60,
		)
		Expect(plan.Frames).To(HaveLen(5))
		Expect(plan.Interval).To(Equal(200 * time.Millisecond))
	})

	It("should land exactly on the target in the final frame", func() {
		plan := device.PlanTransition(
			device.Frame{},
			device.Frame{Red: 4095, Green: 17, Blue: 2000},
			1*time.Second, 60,
		)
		Expect(plan.Frames[len(plan.Frames)-1]).To(Equal(device.Frame{Red: 4095, Green: 17, Blue: 2000}))
	})

	It("should produce monotonically non-decreasing values towards a higher target", func() {
		plan := device.PlanTransition(device.Frame{}, device.Frame{Red: 4095}, 1*time.Second, 60)
		last := uint16(0)
		for _, frame := range plan.Frames {
			Expect(frame.Red).To(BeNumerically(">=", last))
			last = frame.Red
		}
	})

	It("should produce monotonically non-increasing values towards a lower target", func() {
		plan := device.PlanTransition(device.Frame{Blue: 4000}, device.Frame{Blue: 16}, 2*time.Second, 3)
		last := uint16(4000)
		for _, frame := range plan.Frames {
			Expect(frame.Blue).To(BeNumerically("<=", last))
			last = frame.Blue
		}
	})

	It("should floor the frame rate at 1", func() {
		plan := device.PlanTransition(device.Frame{}, device.Frame{Red: 100}, 2*time.Second, 0)
		Expect(plan.Frames).To(HaveLen(2))
		Expect(plan.Interval).To(Equal(1 * time.Second))
	})

	It("should always produce at least one frame", func() {
		plan := device.PlanTransition(device.Frame{}, device.Frame{Red: 100}, 0, 5)
		Expect(plan.Frames).To(HaveLen(1))
		Expect(plan.Frames[0]).To(Equal(device.Frame{Red: 100}))
	})

	It("should round the frame count from the duration and rate", func() {
		plan := device.PlanTransition(device.Frame{}, device.Frame{}, 2500*time.Millisecond, 2)
		Expect(plan.Frames).To(HaveLen(5))
	})

	It("should keep all channels synchronized on the same fraction", func() {
		plan := device.PlanTransition(device.Frame{}, device.Frame{Red: 4000, Green: 2000, Blue: 400}, 1*time.Second, 5)
		for _, frame := range plan.Frames {
			// green tracks half of red, blue a tenth, within rounding
			Expect(frame.Green).To(BeNumerically("~", frame.Red/2, 1))
			Expect(frame.Blue).To(BeNumerically("~", frame.Red/10, 1))
		}
	})
})
