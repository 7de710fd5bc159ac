package constant

const (
	TypeVLESS       = "vless"
	TypeVMess       = "vmess"
	TypeTrojan      = "trojan"
	TypeShadowsocks = "shadowsocks"
)

// ProxyTypes is the detection priority order.
var ProxyTypes = []string{TypeVLESS, TypeTrojan, TypeVMess, TypeShadowsocks}

func ProxyDisplayName(proxyType string) string {
	switch proxyType {
	case TypeShadowsocks:
		return "Shadowsocks"
	case TypeVMess:
		return "VMess"
	case TypeTrojan:
		return "Trojan"
	case TypeVLESS:
		return "VLESS"
	default:
		return "Unknown"
	}
}
