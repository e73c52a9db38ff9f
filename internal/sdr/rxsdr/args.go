package rxsdr

import "strings"

// soapyDrivers maps osmosdr device keys to SoapySDR driver names.
var soapyDrivers = map[string]string{
	"rtl":    "rtlsdr",
	"airspy": "airspy",
	"uhd":    "uhd",
	"fcd":    "fcdpp",
	"hackrf": "hackrf",
	"soapy":  "",
}

// SoapyArgs converts an osmosdr style device string, such as
// "numchan=1 rtl=0,bias=1", into SoapySDR device arguments. The channel
// count is dropped; unknown keys are passed through.
func SoapyArgs(osmo string) string {
	fields := strings.FieldsFunc(osmo, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})

	var args []string
	for _, field := range fields {
		key, value, hasValue := strings.Cut(field, "=")
		if key == "numchan" {
			continue
		}

		if driver, ok := soapyDrivers[key]; ok {
			if driver != "" {
				args = append(args, "driver="+driver)
			}
			// rtl=<serial> selects a dongle by serial; a bare index is
			// left to the driver enumeration order.
			if key == "rtl" && hasValue && !isIndex(value) {
				args = append(args, "serial="+value)
			}
			continue
		}

		args = append(args, field)
	}

	return strings.Join(args, ",")
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
