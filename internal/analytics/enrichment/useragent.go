package enrichment

import (
	ua "github.com/mileusna/useragent"
)

// Device types stored with each click.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// DeviceDetector classifies User-Agent strings.
type DeviceDetector struct{}

// NewDeviceDetector .
func NewDeviceDetector() *DeviceDetector {
	return &DeviceDetector{}
}

// DetectDevice returns one of the Device* constants. Bots win over form factor.
func (d *DeviceDetector) DetectDevice(userAgent string) string {
	if userAgent == "" {
		return DeviceUnknown
	}

	parsed := ua.Parse(userAgent)
	switch {
	case parsed.Bot:
		return DeviceBot
	case parsed.Tablet:
		return DeviceTablet
	case parsed.Mobile:
		return DeviceMobile
	case parsed.Desktop:
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}
