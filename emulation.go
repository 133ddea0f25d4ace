// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pagelens

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// EmulationProfile describes the device and network conditions a page is
// loaded under.
type EmulationProfile struct {
	Name              string  `json:"name"`
	Width             int64   `json:"width"`
	Height            int64   `json:"height"`
	DeviceScaleFactor float64 `json:"deviceScaleFactor"`
	Mobile            bool    `json:"mobile"`
	UserAgent         string  `json:"userAgent,omitempty"`
	// Network throttling. Zero values disable the corresponding limit.
	LatencyMs    float64 `json:"latencyMs"`
	DownloadKbps float64 `json:"downloadKbps"`
	UploadKbps   float64 `json:"uploadKbps"`
	// CPUSlowdown is the CPU throttling multiplier; values <= 1 disable it.
	CPUSlowdown float64 `json:"cpuSlowdown"`
}

const (
	mobileUserAgent  = "Mozilla/5.0 (Linux; Android 11; moto g power (2022)) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Mobile Safari/537.36"
	desktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
)

// Profiles mirroring the Lighthouse presets. The mobile profile carries the
// slow-4G values DevTools applies (request latency = RTT * 3.75).
var (
	MobileProfile = &EmulationProfile{
		Name:              "mobile",
		Width:             412,
		Height:            823,
		DeviceScaleFactor: 1.75,
		Mobile:            true,
		UserAgent:         mobileUserAgent,
		LatencyMs:         562.5,
		DownloadKbps:      1474.56,
		UploadKbps:        675,
		CPUSlowdown:       4,
	}

	DesktopProfile = &EmulationProfile{
		Name:              "desktop",
		Width:             1350,
		Height:            940,
		DeviceScaleFactor: 1,
		UserAgent:         desktopUserAgent,
		LatencyMs:         40,
		DownloadKbps:      10240,
		UploadKbps:        10240,
		CPUSlowdown:       1,
	}

	NoThrottlingProfile = &EmulationProfile{
		Name:              "none",
		Width:             1350,
		Height:            940,
		DeviceScaleFactor: 1,
		UserAgent:         desktopUserAgent,
	}
)

// ProfileByName looks up one of the built-in profiles.
func ProfileByName(name string) (*EmulationProfile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mobile":
		return MobileProfile, nil
	case "desktop":
		return DesktopProfile, nil
	case "none", "unthrottled":
		return NoThrottlingProfile, nil
	default:
		return nil, fmt.Errorf("unknown emulation profile %q (expected mobile, desktop or none)", name)
	}
}

// Throttled reports whether the profile limits the network.
func (p *EmulationProfile) Throttled() bool {
	return p != nil && (p.LatencyMs > 0 || p.DownloadKbps > 0 || p.UploadKbps > 0)
}

// Actions returns the DevTools commands that apply the profile to a tab.
func (p *EmulationProfile) Actions() []chromedp.Action {
	if p == nil {
		return nil
	}

	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(p.Width, p.Height, p.DeviceScaleFactor, p.Mobile),
	}
	if p.Mobile {
		actions = append(actions, emulation.SetTouchEmulationEnabled(true))
	}
	if p.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(p.UserAgent))
	}
	if p.Throttled() {
		actions = append(actions, network.EmulateNetworkConditions(
			false,
			p.LatencyMs,
			kbpsToBytesPerSecond(p.DownloadKbps),
			kbpsToBytesPerSecond(p.UploadKbps),
		))
	}
	if p.CPUSlowdown > 1 {
		actions = append(actions, emulation.SetCPUThrottlingRate(p.CPUSlowdown))
	}
	return actions
}

// kbpsToBytesPerSecond converts a Kbps limit into what DevTools expects.
// DevTools reads -1 as "no limit".
func kbpsToBytesPerSecond(kbps float64) float64 {
	if kbps <= 0 {
		return -1
	}
	return kbps * 1024 / 8
}
