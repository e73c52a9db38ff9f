package rxsdr

import "testing"

func TestSoapyArgs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"numchan=1 rtl=0", "driver=rtlsdr"},
		{"numchan=1 rtl=0,bias=1", "driver=rtlsdr,bias=1"},
		{"numchan=1 rtl=dongle-a", "driver=rtlsdr,serial=dongle-a"},
		{"numchan=1 airspy", "driver=airspy"},
		{"numchan=1 uhd,type=b200", "driver=uhd,type=b200"},
		{"numchan=1 fcd=0", "driver=fcdpp"},
		{"numchan=1 soapy=0,driver=lime", "driver=lime"},
		{"numchan=1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SoapyArgs(tt.in); got != tt.want {
				t.Errorf("SoapyArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
