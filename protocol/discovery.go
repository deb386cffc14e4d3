package protocol

import (
	"strings"

	"github.com/k0rventen/avea/common"
)

// VendorMarker is the substring identifying an Avea bulb in its
// advertisement data
const VendorMarker = `Avea`

// MatchesVendor reports whether a scanned device advertises as an Avea bulb.
// A device matches when its advertised name, any manufacturer data blob
// (decoded as lossy UTF-8) or any advertised service UUID contains the
// vendor marker.
func MatchesVendor(desc common.DeviceDescriptor) bool {
	if strings.Contains(desc.Name, VendorMarker) {
		return true
	}
	for _, data := range desc.ManufacturerData {
		if strings.Contains(string(data), VendorMarker) {
			return true
		}
	}
	for _, uuid := range desc.ServiceUUIDs {
		if strings.Contains(uuid, VendorMarker) {
			return true
		}
	}
	return false
}
