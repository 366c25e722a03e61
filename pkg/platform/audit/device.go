package audit

import "github.com/mssola/useragent"

// Device is the coarse client description derived from a User-Agent header.
type Device struct {
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Mobile  bool   `json:"mobile,omitempty"`
	Bot     bool   `json:"bot,omitempty"`
}

// ParseDevice extracts browser, OS and form factor from a User-Agent string.
// An empty string yields the zero Device.
func ParseDevice(userAgent string) Device {
	if userAgent == "" {
		return Device{}
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	return Device{
		Browser: browser,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
}
