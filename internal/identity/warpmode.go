package identity

// WARP connectivity classification, derived from identity flags and the
// device service mode. Derived locally, never fetched.
const (
	ModeGatewayWithWARP = "Gateway with WARP"
	ModeGatewayWithDoH  = "Gateway with DoH"
	ModeWARPConsumer    = "WARP (Consumer)"
	ModeProxy           = "Proxy Mode"
	ModeDeviceInfoOnly  = "Device Information Only"
	ModeWARPNoGateway   = "WARP without Gateway"
	ModeRegisteredOnly  = "Registered (Not Connected)"
	ModeWARPConnected   = "WARP Connected"
	ModeDisconnected    = "Disconnected"
	ModeUnknown         = "Unknown"
)

// WarpModeInfo is the derived classification attached to the combined
// response.
type WarpModeInfo struct {
	Mode        string `json:"mode"`
	IsWarp      bool   `json:"is_warp"`
	IsGateway   bool   `json:"is_gateway"`
	ServiceMode string `json:"service_mode,omitempty"`
}

// ClassifyWarpMode applies the fixed decision table. Both flags set wins
// outright; otherwise the device service mode refines the answer, and a
// registered but disconnected device is reported as such rather than as a
// plain disconnect.
func ClassifyWarpMode(rec *Record, dev *DeviceRecord) WarpModeInfo {
	if rec == nil {
		return WarpModeInfo{Mode: ModeUnknown}
	}
	serviceMode := ""
	if dev != nil {
		serviceMode = dev.ServiceMode
	}
	info := WarpModeInfo{
		IsWarp:      rec.IsWarp,
		IsGateway:   rec.IsGateway,
		ServiceMode: serviceMode,
	}
	switch {
	case rec.IsWarp && rec.IsGateway:
		info.Mode = ModeGatewayWithWARP
	case rec.IsGateway:
		info.Mode = ModeGatewayWithDoH
	case rec.IsWarp:
		switch serviceMode {
		case "proxy":
			info.Mode = ModeProxy
		case "posture_only":
			info.Mode = ModeDeviceInfoOnly
		case "warp":
			info.Mode = ModeWARPNoGateway
		case "":
			// Tunnel up with no enrolled device: consumer WARP.
			info.Mode = ModeWARPConsumer
		default:
			info.Mode = ModeWARPConnected
		}
	default:
		if dev != nil && dev.ID != "" {
			info.Mode = ModeRegisteredOnly
		} else {
			info.Mode = ModeDisconnected
		}
	}
	return info
}
