package avea_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k0rventen/avea"
	"github.com/k0rventen/avea/common"
	"github.com/k0rventen/avea/mocks"
)

var _ = Describe("Client", func() {
	var (
		transport *mocks.Transport
		client    *avea.Client

		timeout = 4 * time.Second
	)

	BeforeEach(func() {
		transport = new(mocks.Transport)
		client = avea.NewClient(transport)
	})

	Describe("Discover", func() {
		It("should return a bulb for every matching descriptor", func() {
			transport.On(`Scan`, timeout).Return([]common.DeviceDescriptor{
				{Address: `AA:BB:CC:DD:EE:01`, Name: `AveaBulb1`},
				{Address: `AA:BB:CC:DD:EE:02`, Name: `Kitchen Speaker`},
				{Address: `AA:BB:CC:DD:EE:03`, ManufacturerData: map[uint16][]byte{
					0x0157: []byte(`Avea`),
				}},
			}, nil)

			bulbs, err := client.Discover(timeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(bulbs).To(HaveLen(2))
			Expect(bulbs[0].Address()).To(Equal(`AA:BB:CC:DD:EE:01`))
			Expect(bulbs[0].AdvertisedName()).To(Equal(`AveaBulb1`))
			Expect(bulbs[1].Address()).To(Equal(`AA:BB:CC:DD:EE:03`))
		})

		It("should return an empty result when nothing matches", func() {
			transport.On(`Scan`, timeout).Return([]common.DeviceDescriptor{
				{Address: `AA:BB:CC:DD:EE:02`, Name: `Kitchen Speaker`},
			}, nil)

			bulbs, err := client.Discover(timeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(bulbs).To(BeEmpty())
		})

		It("should surface scan failures", func() {
			transport.On(`Scan`, timeout).Return(nil, errors.New(`adapter off`))

			_, err := client.Discover(timeout)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("NewBulb", func() {
		It("should bind a bulb to a known address without scanning", func() {
			bulb := client.NewBulb(`AA:BB:CC:DD:EE:0F`)
			Expect(bulb.Address()).To(Equal(`AA:BB:CC:DD:EE:0F`))
			transport.AssertNotCalled(GinkgoT(), `Scan`, timeout)
		})
	})
})
