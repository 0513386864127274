package attpc

import "testing"

func TestHardwareAddressID(t *testing.T) {
	cases := []struct {
		addr HardwareAddress
		want uint64
	}{
		{HardwareAddress{Cobo: 0, Asad: 0, Aget: 0, Channel: 0}, 0},
		{HardwareAddress{Cobo: 0, Asad: 0, Aget: 0, Channel: 10}, 10},
		{HardwareAddress{Cobo: 0, Asad: 0, Aget: 1, Channel: 10}, 110},
		{HardwareAddress{Cobo: 0, Asad: 1, Aget: 1, Channel: 10}, 10110},
		{HardwareAddress{Cobo: 1, Asad: 1, Aget: 1, Channel: 10}, 1010110},
	}

	for _, c := range cases {
		if got := c.addr.ID(); got != c.want {
			t.Errorf("%+v.ID() = %d, want %d", c.addr, got, c.want)
		}
	}
}

func TestDetectorKindIsSilicon(t *testing.T) {
	if DetectorPad.IsSilicon() {
		t.Error("DetectorPad.IsSilicon() = true, want false")
	}
	for _, k := range []DetectorKind{
		DetectorSiliconUpstreamFront,
		DetectorSiliconUpstreamBack,
		DetectorSiliconDownstreamFront,
		DetectorSiliconDownstreamBack,
	} {
		if !k.IsSilicon() {
			t.Errorf("%v.IsSilicon() = false, want true", k)
		}
	}
}
