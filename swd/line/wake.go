package line

// The dormant-state wake sequence is specified bit-exact by ADIv5: a
// 128-bit "JTAG-to-Dormant" selection alert, followed by an 8-bit
// "Dormant-to-SWD" activation code. Both are reproduced verbatim here;
// see spec.md §4.1 and §6.

// dormantAlert is the 128-bit selection alert sequence, transmitted
// LSB-first starting with the low byte.
var dormantAlert = [16]byte{
	0x92, 0xF3, 0x09, 0x62,
	0x95, 0x2D, 0x85, 0x86,
	0xE9, 0xAF, 0xDD, 0xE3,
	0xA2, 0x0E, 0xBC, 0x19,
}

// swdActivationCode is the 8-bit Dormant-to-SWD activation code.
const swdActivationCode byte = 0x1A

// dormantAlertBits unrolls dormantAlert into 128 wire bits, LSB of
// byte 0 first, matching the byte order ADIv5 specifies for the
// alert sequence.
func dormantAlertBits() []bool {
	bits := make([]bool, 0, 128)
	for _, b := range dormantAlert {
		bits = append(bits, HeaderBits(b)...)
	}
	return bits
}

// activationCodeBits unrolls the 8-bit SWD activation code.
func activationCodeBits() []bool {
	return HeaderBits(swdActivationCode)
}
