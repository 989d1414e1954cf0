package main

import (
	"os"

	"github.com/sweeney/net-watchdog/internal/status"
)

// Variables pi-helper writes to /run/pi-helper.env; systemd passes them in
// through EnvironmentFile.
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// readNetworkInfo returns the host's network summary, or nil when pi-helper
// has not run.
func readNetworkInfo() *status.NetworkInfo {
	return networkInfoFrom(os.Getenv)
}

func networkInfoFrom(getenv func(string) string) *status.NetworkInfo {
	state := getenv(envNetworkStatus)
	if state == "" {
		return nil
	}
	info := &status.NetworkInfo{Status: state}
	for name, field := range map[string]*string{
		envNetworkType:       &info.Type,
		envNetworkIP:         &info.IP,
		envNetworkGateway:    &info.Gateway,
		envNetworkWifiStatus: &info.WifiStatus,
		envNetworkWifiSSID:   &info.SSID,
	} {
		*field = getenv(name)
	}
	return info
}
