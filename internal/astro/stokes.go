package astro

import "fmt"

// stokesNames follows the CASA Stokes enumeration used in the POLARIZATION
// table CORR_TYPE column.
var stokesNames = map[int]string{
	1:  "I",
	2:  "Q",
	3:  "U",
	4:  "V",
	5:  "RR",
	6:  "RL",
	7:  "LR",
	8:  "LL",
	9:  "XX",
	10: "XY",
	11: "YX",
	12: "YY",
}

// StokesName maps a CASA correlation type code to its CAOM polarization state.
func StokesName(code int) (string, error) {
	name, ok := stokesNames[code]
	if !ok {
		return "", fmt.Errorf("astro: unknown correlation type %d", code)
	}
	return name, nil
}
