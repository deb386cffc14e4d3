package protocol_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k0rventen/avea/common"
	"github.com/k0rventen/avea/protocol"
)

var _ = Describe("Codec", func() {
	Describe("EncodeBrightness", func() {
		It("should produce the documented wire bytes for 256", func() {
			Expect(protocol.EncodeBrightness(256)).To(Equal([]byte{0x57, 0x00, 0x01}))
		})

		It("should emit the level little-endian after the tag", func() {
			Expect(protocol.EncodeBrightness(4095)).To(Equal([]byte{0x57, 0xff, 0x0f}))
			Expect(protocol.EncodeBrightness(0)).To(Equal([]byte{0x57, 0x00, 0x00}))
		})
	})

	Describe("EncodeColor", func() {
		It("should produce the documented wire bytes for white 2000", func() {
			Expect(protocol.EncodeColor(2000, 0, 0, 0)).To(Equal([]byte{
				0x35, 0x11, 0x01, 0x0a, 0x00,
				0xd0, 0x87, // white 2000|0x8000
				0x00, 0x30, // red marker
				0x00, 0x20, // green marker
				0x00, 0x10, // blue marker
			}))
		})

		It("should set each channel marker in its word", func() {
			payload := protocol.EncodeColor(1, 2, 3, 4)
			Expect(payload[5:7]).To(Equal([]byte{0x01, 0x80}))
			Expect(payload[7:9]).To(Equal([]byte{0x02, 0x30}))
			Expect(payload[9:11]).To(Equal([]byte{0x03, 0x20}))
			Expect(payload[11:13]).To(Equal([]byte{0x04, 0x10}))
		})
	})

	Describe("EncodeName", func() {
		It("should emit the tag followed by the UTF-8 name", func() {
			Expect(protocol.EncodeName(`Bedroom`)).To(Equal(append([]byte{0x58}, []byte(`Bedroom`)...)))
		})

		It("should not bound the name length", func() {
			long := make([]byte, 512)
			for i := range long {
				long[i] = 'a'
			}
			Expect(protocol.EncodeName(string(long))).To(HaveLen(513))
		})
	})

	Describe("query payloads", func() {
		It("should be a bare command tag", func() {
			Expect(protocol.QueryBrightness()).To(Equal([]byte{0x57}))
			Expect(protocol.QueryColor()).To(Equal([]byte{0x35}))
			Expect(protocol.QueryName()).To(Equal([]byte{0x58}))
		})
	})

	Describe("DecodeNotification", func() {
		It("should decode a brightness report", func() {
			n, err := protocol.DecodeNotification([]byte{0x57, 0x00, 0x01})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(protocol.BrightnessReport{Level: 256}))
			Expect(n.Tag()).To(Equal(byte(0x57)))
		})

		It("should round-trip every color channel through the encoder", func() {
			for _, c := range [][4]uint16{
				{2000, 0, 0, 0},
				{0, 4095, 0, 0},
				{0, 0, 4095, 0},
				{0, 0, 0, 4095},
				{1, 2, 3, 4},
				{4095, 4095, 4095, 4095},
				{0, 0, 0, 0},
			} {
				n, err := protocol.DecodeNotification(protocol.EncodeColor(c[0], c[1], c[2], c[3]))
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(protocol.ColorReport{White: c[0], Red: c[1], Green: c[2], Blue: c[3]}))
			}
		})

		It("should read the channel words from the payload tail", func() {
			// extra leading bytes the bulb echoes ahead of the channel words
			payload := append([]byte{0x35, 0xde, 0xad}, protocol.EncodeColor(10, 20, 30, 40)[5:]...)
			n, err := protocol.DecodeNotification(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(protocol.ColorReport{White: 10, Red: 20, Green: 30, Blue: 40}))
		})

		It("should decode a name report", func() {
			n, err := protocol.DecodeNotification(append([]byte{0x58}, []byte(`Bedroom`)...))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(protocol.NameReport{Name: `Bedroom`}))
		})

		It("should substitute a sentinel name for invalid UTF-8", func() {
			n, err := protocol.DecodeNotification([]byte{0x58, 0xff, 0xfe, 0xfd})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(protocol.NameReport{Name: protocol.UnknownName}))
		})

		It("should reject empty payloads", func() {
			_, err := protocol.DecodeNotification(nil)
			Expect(err).To(Equal(common.ErrShortPayload))
		})

		It("should reject truncated color payloads", func() {
			_, err := protocol.DecodeNotification([]byte{0x35, 0x01, 0x02})
			Expect(err).To(Equal(common.ErrShortPayload))
		})

		It("should reject unknown command tags", func() {
			_, err := protocol.DecodeNotification([]byte{0x99, 0x01})
			Expect(err).To(Equal(common.ErrUnknownCommand))
		})
	})
})

var _ = Describe("Bounds", func() {
	Describe("Clamp", func() {
		It("should pass through in-range values", func() {
			Expect(protocol.Clamp(0)).To(Equal(uint16(0)))
			Expect(protocol.Clamp(2048)).To(Equal(uint16(2048)))
			Expect(protocol.Clamp(4095)).To(Equal(uint16(4095)))
		})

		It("should clamp values above the maximum", func() {
			Expect(protocol.Clamp(4096)).To(Equal(uint16(4095)))
			Expect(protocol.Clamp(1 << 20)).To(Equal(uint16(4095)))
		})

		It("should clamp negative values to zero", func() {
			Expect(protocol.Clamp(-1)).To(Equal(uint16(0)))
			Expect(protocol.Clamp(-4096)).To(Equal(uint16(0)))
		})
	})

	Describe("ParseValue", func() {
		It("should parse and clamp numeric strings", func() {
			Expect(protocol.ParseValue(`300`)).To(Equal(uint16(300)))
			Expect(protocol.ParseValue(`90000`)).To(Equal(uint16(4095)))
			Expect(protocol.ParseValue(`-5`)).To(Equal(uint16(0)))
		})

		It("should default non-numeric input to zero", func() {
			Expect(protocol.ParseValue(`abc`)).To(Equal(uint16(0)))
			Expect(protocol.ParseValue(``)).To(Equal(uint16(0)))
		})
	})
})

var _ = Describe("MatchesVendor", func() {
	It("should match on the advertised name", func() {
		Expect(protocol.MatchesVendor(common.DeviceDescriptor{Name: `AveaBulb1`})).To(BeTrue())
	})

	It("should match on manufacturer data", func() {
		desc := common.DeviceDescriptor{
			ManufacturerData: map[uint16][]byte{0x004c: []byte("xxAveaxx")},
		}
		Expect(protocol.MatchesVendor(desc)).To(BeTrue())
	})

	It("should match on an advertised service UUID", func() {
		Expect(protocol.MatchesVendor(common.DeviceDescriptor{ServiceUUIDs: []string{`Avea-svc`}})).To(BeTrue())
	})

	It("should not match unrelated devices", func() {
		desc := common.DeviceDescriptor{
			Name:             `Kitchen Speaker`,
			ManufacturerData: map[uint16][]byte{0x004c: {0x01, 0x02}},
			ServiceUUIDs:     []string{`0000180f-0000-1000-8000-00805f9b34fb`},
		}
		Expect(protocol.MatchesVendor(desc)).To(BeFalse())
	})
})
