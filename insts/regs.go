package insts

import (
	"fmt"
	"strings"
)

// ABINames lists the calling-convention register names by number.
var ABINames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var registers = func() map[string]uint8 {
	m := map[string]uint8{"fp": 8}
	for n, name := range ABINames {
		m[name] = uint8(n)
		m[fmt.Sprintf("x%d", n)] = uint8(n)
	}
	return m
}()

// ParseRegister accepts x0..x31 and the ABI names, in any case.
func ParseRegister(name string) (uint8, bool) {
	reg, ok := registers[strings.ToLower(name)]
	return reg, ok
}
